package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ResourceImporter/internal/application"
	"github.com/JonMunkholm/ResourceImporter/internal/auth"
	"github.com/JonMunkholm/ResourceImporter/internal/config"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/logging"
	"github.com/JonMunkholm/ResourceImporter/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: importer.yaml if present)")
	flag.Parse()

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	app, err := application.New(ctx, cfg, application.Options{})
	if err != nil {
		slog.Error("failed to start importer", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	authz, err := auth.NewAuthorizer(auth.Config{
		RequireAuth:   cfg.Security.RequireAuth,
		APIKeys:       cfg.Security.APIKeys,
		JWTSecret:     cfg.Security.JWTSecret,
		TokenDuration: cfg.Security.TokenDuration,
		ImportRole:    cfg.Security.ImportRole,
	})
	if err != nil {
		slog.Error("failed to configure authorization", "error", err)
		os.Exit(1)
	}

	guard := core.NewRunGuard(cfg.Import.MaxWaitTime)
	server := web.NewServer(web.Deps{
		Service:    app.Service,
		Guard:      guard,
		Authorizer: authz,
		History:    app,
		Health:     app,
		Metrics:    app.Metrics,
	}, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for the active import to complete (with timeout)
		if status := guard.Status(); status.Active {
			slog.Info("waiting for import to complete", "holder", status.Holder, "since", status.Since)
			if err := guard.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("import did not complete in time", "error", err)
			} else {
				slog.Info("import completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
}
