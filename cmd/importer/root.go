package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ResourceImporter/internal/application"
	"github.com/JonMunkholm/ResourceImporter/internal/config"
	"github.com/JonMunkholm/ResourceImporter/internal/logging"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Bulk-import records from a CSV file into the content store",
	Long: `importer reads a CSV (or .xlsx) file and creates one record per data row.
Core field columns become record fields, _attachment names a media file,
every _tag column adds a tag, and all other columns become metadata.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; existing variables win
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default: importer.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// loadConfig loads configuration and routes logs to stderr.
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configPath, overrides...)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logging.SetupWriter(os.Stderr, level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	return cfg, nil
}

// memoryStore selects the in-memory store, which needs no database.
func memoryStore(c *config.Config) {
	c.Store.Driver = config.DriverMemory
}

// newApp wires the configured store without overrides.
func newApp(cmd *cobra.Command, cfg *config.Config) (*application.App, error) {
	return application.New(cmd.Context(), cfg, application.Options{})
}
