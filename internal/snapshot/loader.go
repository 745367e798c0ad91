package snapshot

import (
	"context"

	"marketwatch/config"

	"go.uber.org/zap"
)

// SymbolLoader streams the configured snapshot universe: equities, then
// commodities, then currency pairs.
type SymbolLoader struct {
	Cfg    config.SnapshotConfig
	Logger *zap.Logger
}

// LoadSymbols sends every configured symbol into ch and closes it.
func (l *SymbolLoader) LoadSymbols(ctx context.Context, ch chan<- string) error {
	defer close(ch) // Ensure downstream consumers can exit cleanly

	symbols := l.Cfg.Universe()
	l.Logger.Info("loaded symbols",
		zap.Int("equities", len(l.Cfg.Equities)),
		zap.Int("commodities", len(l.Cfg.Commodities)),
		zap.Int("currencies", len(l.Cfg.Currencies)),
		zap.Int("unique", len(symbols)))

	for _, symbol := range symbols {
		select {
		case ch <- symbol:
		case <-ctx.Done():
			l.Logger.Warn("symbol streaming interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}

	return nil
}
