package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pagewiki/app/internal/app/bootstrap"
	"pagewiki/app/internal/config"
	applog "pagewiki/app/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

type overrides struct {
	port int
	db   string
}

func newRootCmd() *cobra.Command {
	var flags overrides

	root := &cobra.Command{
		Use:           "pagewiki",
		Short:         "pagewiki serves a small markdown wiki",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cmd, flags)
		},
	}
	root.PersistentFlags().IntVar(&flags.port, "port", 0, "HTTP port (overrides SERVER_PORT)")
	root.PersistentFlags().StringVar(&flags.db, "db", "", "SQLite database path (overrides DB_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Prepare the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context(), cmd, flags)
		},
	})

	return root
}

func serve(ctx context.Context, cmd *cobra.Command, flags overrides) error {
	deps, shutdown, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer shutdown()

	instance, err := bootstrap.Start(ctx, deps)
	if err != nil {
		return eris.Wrap(err, "starting wiki")
	}

	return instance.Wait(ctx)
}

func migrate(ctx context.Context, cmd *cobra.Command, flags overrides) error {
	deps, shutdown, err := setup(cmd, flags)
	if err != nil {
		return err
	}
	defer shutdown()

	_, cleanup, err := bootstrap.PrepareSchema(ctx, deps)
	if err != nil {
		return eris.Wrap(err, "preparing schema")
	}
	deps.Logger.Info("schema is up to date")

	return cleanup()
}

// setup loads configuration and builds the logger, sentry hub and metrics registry.
func setup(cmd *cobra.Command, flags overrides) (bootstrap.Dependencies, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return bootstrap.Dependencies{}, nil, eris.Wrap(err, "failure loading configuration")
	}
	applyOverrides(cmd, cfg, flags)

	logger, err := applog.NewLogger(applog.Settings{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return bootstrap.Dependencies{}, nil, eris.Wrap(err, "failure initialising logger")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hook, err := applog.NewPrometheusHook(registry, "pagewiki")
	if err != nil {
		return bootstrap.Dependencies{}, nil, eris.Wrap(err, "failure initialising log metrics")
	}
	logger.AddHook(hook)

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return bootstrap.Dependencies{}, nil, eris.Wrap(err, "failure initialising sentry")
	}

	logger.WithFields(logrus.Fields{
		"driver":      cfg.DB.Driver,
		"environment": cfg.Environment,
		"port":        cfg.ServerPort,
	}).Debug("configuration loaded")

	return bootstrap.Dependencies{
		Config:    *cfg,
		Logger:    logger,
		SentryHub: sentryHub,
		Metrics:   registry,
	}, flush, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config, flags overrides) {
	if cmd.Flags().Changed("port") {
		cfg.ServerPort = flags.port
	}
	if cmd.Flags().Changed("db") {
		cfg.DB.Path = flags.db
	}
}
