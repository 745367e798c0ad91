package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketwatch/config"
	"marketwatch/internal/tracker"
	"marketwatch/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// quote cache, snapshot store, conversion and valuation
	t, err := tracker.Open(cfg, log)
	if err != nil {
		log.Fatal("tracker failed", zap.Error(err))
	}
	defer t.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// daily snapshot refresh: now, then every local midnight
	done := t.Start(ctx)
	log.Info("marketwatch started",
		zap.Int("universe", len(t.Universe())),
		zap.String("snapshot", cfg.Snapshot.Path))

	<-ctx.Done()
	log.Info("shutting down")
	<-done
}
