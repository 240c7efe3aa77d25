package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ResourceImporter/internal/application"
	"github.com/JonMunkholm/ResourceImporter/internal/config"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/logging"
	"github.com/JonMunkholm/ResourceImporter/internal/watch"
)

var (
	watchAttachments string
	watchDryRun      bool
	watchInitial     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-run the import each time the CSV file changes",
	Long: `Watch the CSV file and import it again after every change. Changes are
debounced, and runs never overlap: edits made during a run queue one more run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var overrides []func(*config.Config)
		if watchDryRun {
			overrides = append(overrides, memoryStore)
		}
		cfg, err := loadConfig(overrides...)
		if err != nil {
			return err
		}

		opts := application.Options{DryRun: watchDryRun, AttachmentsDir: watchAttachments}
		if len(args) == 1 {
			opts.Source = args[0]
		}

		app, err := application.New(cmd.Context(), cfg, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		guard := core.NewRunGuard(0)
		out := cmd.OutOrStdout()
		trigger := func(ctx context.Context, path string) error {
			if !guard.TryAcquire("watch") {
				return core.ErrImportRunning
			}
			defer guard.Release()

			logging.WithFields(ctx, "source", path).Info("watch triggered")
			report, err := app.Service.RunSource(context.WithoutCancel(ctx), path, nil)
			printReport(out, report, watchDryRun)
			return err
		}

		w, err := watch.New(app.Service.Source(), cfg.Watch.Debounce, trigger)
		if err != nil {
			return err
		}

		if watchInitial {
			if err := trigger(ctx, w.Path()); err != nil {
				w.OnError(w.Path(), err)
			}
		}

		fmt.Fprintln(out, mutedStyle.Render("Watching "+w.Path()+" (Ctrl-C to stop)"))
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAttachments, "attachments", "", "directory attachment names resolve against")
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "route every write to an in-memory store")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "run once before waiting for changes")
	rootCmd.AddCommand(watchCmd)
}
