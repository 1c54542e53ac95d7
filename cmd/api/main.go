package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/app"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/config"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/db"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/messaging"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "patient-dashboard",
		Short: "Hospital patient dashboard",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres documents table and its change trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			database, err := db.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := docstore.NewPostgres(database, cfg.PostgresDSN(), logger).Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Msg("documents schema is up to date")
			return nil
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// openStore connects the backend selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case docstore.BackendMemory:
		logger.Warn().Msg("using in-memory store, records are lost on restart")
		return docstore.NewMemory(), nil
	case docstore.BackendPostgres:
		database, err := db.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return docstore.NewPostgres(database, cfg.PostgresDSN(), logger), nil
	case docstore.BackendFirestore:
		return docstore.NewFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredPath)
	}
	return nil, fmt.Errorf("%w: %q", docstore.ErrUnknownBackend, cfg.StoreBackend)
}

// openPublisher connects to RabbitMQ when enabled. Events are dropped when
// it is disabled or unreachable.
func openPublisher(cfg *config.Config, logger zerolog.Logger) messaging.PublisherInterface {
	if !cfg.RabbitMQEnabled {
		logger.Info().Msg("RabbitMQ disabled, events will not be published")
		return messaging.NopPublisher{}
	}

	publisher, err := messaging.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to connect to RabbitMQ, events will not be published")
		return messaging.NopPublisher{}
	}
	return messaging.NewBreakerPublisher(publisher, messaging.DefaultBreakerSettings(), logger)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *telemetry.Metrics
	if cfg.OTelEnabled {
		provider, err := telemetry.InitProvider(ctx, telemetry.ConfigFrom(cfg), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("failed to shut down OpenTelemetry")
				}
			}()
		}

		if metrics, err = telemetry.InitMetrics(); err != nil {
			logger.Warn().Err(err).Msg("failed to initialize metrics")
			metrics = nil
		}
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open document store")
		return err
	}
	defer store.Close()

	publisher := openPublisher(cfg, logger)
	defer publisher.Close()

	dashboard := app.New(app.Options{
		ServiceName:    cfg.OTelServiceName,
		Collection:     cfg.PatientsCollection,
		AllowedOrigins: cfg.AllowedOrigins,
		Store:          store,
		Publisher:      publisher,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err := dashboard.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to subscribe to patients")
		return err
	}
	defer dashboard.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           dashboard.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
