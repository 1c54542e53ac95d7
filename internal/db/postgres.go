package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/config"
)

// Connect creates a connection to PostgreSQL with OpenTelemetry instrumentation
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required database configuration")
	}

	attrs := otelsql.WithAttributes(
		semconv.DBSystemPostgreSQL,
		semconv.DBName(cfg.DBName),
	)

	db, err := otelsql.Open("postgres", cfg.PostgresDSN(), attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Register database stats for metrics
	if err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		logger.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)

	logger.Info().
		Str("host", cfg.DBHost).
		Str("database", cfg.DBName).
		Msg("connected to PostgreSQL")
	return db, nil
}
