package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent import runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		limit := runsLimit
		if limit <= 0 {
			limit = cfg.Import.HistoryLimit
		}

		runs, err := app.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if runsJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(runs)
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "runs to show (default: import.history_limit)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(runsCmd)
}
