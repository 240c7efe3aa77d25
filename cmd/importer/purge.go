package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeYes bool

var purgeCmd = &cobra.Command{
	Use:   "purge <run-id>",
	Short: "Delete every record a run created",
	Long: `Delete every record a run created, with its metadata, tags and media
files. Use it to clear a partial run before importing the file again.
Records a run updated in place are left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		if !purgeYes {
			return errors.New("purge deletes records permanently; rerun with --yes to confirm")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.Purge(cmd.Context(), runID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Run "+result.RunID+" purged"))
		fmt.Fprintf(out, "  %s records deleted\n", successStyle.Render(fmt.Sprintf("%d", result.RecordsDeleted)))
		fmt.Fprintf(out, "  %s media files deleted\n", successStyle.Render(fmt.Sprintf("%d", result.MediaDeleted)))
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "confirm the deletion")
	rootCmd.AddCommand(purgeCmd)
}
