package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ResourceImporter/internal/application"
	"github.com/JonMunkholm/ResourceImporter/internal/config"
)

var (
	runAttachments string
	runDryRun      bool
	runNoProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Import every row of the CSV file",
	Long: `Import every row of the CSV file in file order. A row that fails does not
stop the run; its errors are listed at the end. The command fails only when
the file itself cannot be read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var overrides []func(*config.Config)
		if runDryRun {
			overrides = append(overrides, memoryStore)
		}
		cfg, err := loadConfig(overrides...)
		if err != nil {
			return err
		}

		opts := application.Options{
			DryRun:         runDryRun,
			AttachmentsDir: runAttachments,
		}
		if len(args) == 1 {
			opts.Source = args[0]
		}

		app, err := application.New(cmd.Context(), cfg, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		progress := &progressReporter{w: os.Stderr}
		onProgress := progress.update
		if runNoProgress {
			onProgress = nil
		}

		report, err := app.Service.Run(cmd.Context(), onProgress)
		printReport(cmd.OutOrStdout(), report, runDryRun)
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runAttachments, "attachments", "", "directory attachment names resolve against (default: attachments next to the executable)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "route every write to an in-memory store")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "hide the progress bar")
	rootCmd.AddCommand(runCmd)
}
