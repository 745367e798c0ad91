package tracker

import (
	"context"
	"fmt"
	"time"

	"marketwatch/config"
	"marketwatch/internal/snapshot"
	"marketwatch/pkg/storage/postgres"
	"marketwatch/pkg/yahoo"

	"go.uber.org/zap"
)

// Open wires a tracker to the live provider and, when enabled, the Postgres
// snapshot mirror.
func Open(cfg *config.Config, logger *zap.Logger) (*Tracker, error) {
	// Create REST client for quotes and daily bars
	restClient := yahoo.NewRESTClient(cfg.Provider.BaseURL, cfg.Provider.Timeout).
		WithUserAgent(cfg.Provider.UserAgent)

	var (
		mirror snapshot.Mirror
		db     *postgres.PostgresClient
	)
	if cfg.Snapshot.Mirror {
		var err error
		db, err = postgres.InitializeAndMigrateSnapshotRecord(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		healthy := db.IsHealthy(ctx)
		cancel()
		if !healthy {
			_ = db.Close()
			return nil, fmt.Errorf("snapshot mirror %s is not reachable", cfg.Postgres.DBName)
		}
		mirror = db
		logger.Info("snapshot mirror enabled", zap.String("db", cfg.Postgres.DBName))
	}

	t, err := New(cfg, restClient, mirror, logger)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	if db != nil {
		t.closers = append(t.closers, db.Close)
	}
	return t, nil
}
