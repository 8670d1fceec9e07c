package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/pacprobe/internal/alert"
	"github.com/hazz-dev/pacprobe/internal/config"
	"github.com/hazz-dev/pacprobe/internal/probe"
	"github.com/hazz-dev/pacprobe/internal/scheduler"
	"github.com/hazz-dev/pacprobe/internal/server"
	"github.com/hazz-dev/pacprobe/internal/storage"
)

func serveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Probe on an interval and serve the history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.settings, "config", "", "YAML settings file (defaults apply when empty)")
	return cmd
}

func loadSettings(cmd *cobra.Command, opts *options) (*config.Settings, error) {
	settings := config.Defaults()
	if opts.settings != "" {
		var err error
		settings, err = config.Load(opts.settings)
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}
	if cmd.Flags().Changed("db") {
		settings.Storage.Path = opts.dbPath
	}
	return settings, nil
}

type waiter interface {
	Wait()
}

// drain waits on each worker in order. The scheduler comes first so no
// new webhook can start once the alerter is being waited on.
func drain(workers []waiter) {
	for _, w := range workers {
		w.Wait()
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	logger := slog.Default()

	// 1. Load credentials and settings
	creds, err := config.LoadCredentials(opts.envPath)
	if err != nil {
		return err
	}
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	endpoint := probe.Endpoint(creds)
	logger.Info("settings loaded", "endpoint", endpoint, "interval", settings.Interval.Duration)

	// 2. Open SQLite
	db, err := storage.Open(settings.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// 3. Build scheduler, with the alerter if configured
	sched := scheduler.New(probe.New(creds, settings.Timeout.Duration), endpoint, settings.Interval.Duration, db, logger)
	workers := []waiter{sched}
	if settings.Alerts.Webhook.URL != "" {
		alerter := alert.New(settings.Alerts.Webhook.URL, settings.Alerts.Webhook.Cooldown.Duration, logger)
		sched.SetOnResult(alerter.Notify)
		workers = append(workers, alerter)
	}

	// 4. Build API server
	apiServer := server.New(db, endpoint, settings.Interval.Duration, logger)
	httpServer := &http.Server{
		Addr:              settings.Server.Address,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sched.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", settings.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 6. Wait for signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		drain(workers)
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 7. Graceful shutdown
	drain(workers)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
