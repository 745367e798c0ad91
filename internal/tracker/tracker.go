// Package tracker is the entry point the web layer calls into: live quotes,
// the daily snapshot, currency conversion and holding valuation.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketwatch/config"
	"marketwatch/internal/conversion"
	"marketwatch/internal/memorystore"
	"marketwatch/internal/quote"
	"marketwatch/internal/scheduler"
	"marketwatch/internal/snapshot"
	"marketwatch/internal/valuation"
	"marketwatch/pkg/yahoo"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provider is everything the tracker needs from the market-data API.
type Provider interface {
	quote.Provider
	snapshot.Fetcher
}

type Tracker struct {
	cfg    *config.Config
	logger *zap.Logger

	provider  Provider
	quotes    *cachedPrices
	fxPrices  *cachedPrices
	names     *memorystore.Cache[string, quote.Instrument]
	resolver  *quote.Resolver
	history   *memorystore.Cache[string, []snapshot.Row]
	snapshots *snapshot.Store
	universe  *memorystore.MemorySymbolStore
	fx        *conversion.Service
	engine    *valuation.Engine
	loc       *time.Location

	closers []func() error
}

// New builds a tracker over provider. mirror may be nil.
func New(cfg *config.Config, provider Provider, mirror snapshot.Mirror, logger *zap.Logger) (*Tracker, error) {
	loc, err := cfg.Snapshot.Location()
	if err != nil {
		return nil, err
	}

	resolver := quote.NewResolver(provider, cfg.Provider.Timeout, logger)
	cache := memorystore.NewCache[string, quote.PriceQuote]()

	t := &Tracker{
		cfg:      cfg,
		logger:   logger.Named("tracker"),
		provider: provider,
		quotes:   &cachedPrices{cache: cache, resolver: resolver, ttl: cfg.Cache.QuoteTTL},
		fxPrices: &cachedPrices{cache: cache, resolver: resolver, ttl: cfg.Cache.FXTTL},
		names:    memorystore.NewCache[string, quote.Instrument](),
		resolver: resolver,
		history:  memorystore.NewCache[string, []snapshot.Row](),
		universe: memorystore.NewSymbolStore(),
		engine:   valuation.NewEngine(cfg.Valuation.DomesticSuffixes),
		loc:      loc,
	}

	t.fx = conversion.NewService(t.fxPrices, cfg.Conversion.DefaultFallbackRate, cfg.Conversion.FallbackRates, logger)

	opts := snapshot.Options{
		Path:         cfg.Snapshot.Path,
		RequestDelay: cfg.Snapshot.RequestDelay,
		Timeout:      cfg.Provider.Timeout,
		Location:     loc,
		Retention:    cfg.Snapshot.MirrorRetentionDays,
	}
	if mirror != nil {
		opts.Mirror = mirror
	}
	t.snapshots = snapshot.Open(provider, opts, logger)

	// Load the configured universe into the symbol store
	loader := &snapshot.SymbolLoader{Cfg: cfg.Snapshot, Logger: t.logger}
	symbolCh := make(chan string, 100)
	done := t.universe.StartWorker(symbolCh)
	if err := loader.LoadSymbols(context.Background(), symbolCh); err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	<-done

	return t, nil
}

// Start refreshes the snapshot now and after every local midnight until ctx
// ends. The returned channel closes when the scheduler has stopped.
func (t *Tracker) Start(ctx context.Context) <-chan struct{} {
	d := &scheduler.Daily{
		Name:     "snapshot-refresh",
		Job:      t.RefreshSnapshotIfStale,
		Location: t.loc,
		Logger:   t.logger,
	}
	return d.Start(ctx)
}

// Close releases the tracker's resources.
func (t *Tracker) Close() error {
	var firstErr error
	for _, c := range t.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Watch adds symbols (e.g. a user's favorites) to the snapshot universe.
// They are fetched from the next refresh on.
func (t *Tracker) Watch(symbols ...string) {
	for _, s := range symbols {
		if t.universe.Add(s) {
			t.logger.Debug("watching symbol", zap.String("symbol", s))
		}
	}
}

// Universe lists the symbols the snapshot tracks.
func (t *Tracker) Universe() []string {
	return t.universe.GetAll()
}

// ResolvePrice returns the current quote for symbol, served from cache
// for up to the configured quote TTL.
func (t *Tracker) ResolvePrice(ctx context.Context, symbol string) quote.PriceQuote {
	return t.quotes.ResolvePrice(ctx, symbol)
}

// Describe returns the display name and currency of symbol, cached for the
// quote TTL. Lookup failures are not cached.
func (t *Tracker) Describe(ctx context.Context, symbol string) (quote.Instrument, error) {
	return t.names.GetOrResolve(ctx, symbol, func(ctx context.Context) (quote.Instrument, error) {
		return t.resolver.Describe(ctx, symbol)
	}, t.cfg.Cache.QuoteTTL)
}

// ListSnapshot returns the last persisted daily table, possibly empty.
func (t *Tracker) ListSnapshot() map[string]snapshot.Row {
	return t.snapshots.Read()
}

// RefreshSnapshotIfStale refreshes the daily table unless it is already
// dated today.
func (t *Tracker) RefreshSnapshotIfStale(ctx context.Context) error {
	if t.snapshots.Fresh() {
		return nil
	}
	return t.snapshots.Refresh(ctx, t.universe.GetAll())
}

// ConvertToBase returns the base-currency rate for pair, falling back to
// the configured approximation.
func (t *Tracker) ConvertToBase(ctx context.Context, pair string) decimal.Decimal {
	return t.fx.RateToBase(ctx, pair)
}

// ValueHolding prices one holding. Foreign equities are converted with the
// configured base pair.
func (t *Tracker) ValueHolding(ctx context.Context, h valuation.Holding) valuation.Result {
	q := t.ResolvePrice(ctx, h.Symbol)

	fxRate := decimal.NewFromInt(1)
	if q.Available() && t.engine.NeedsConversion(h) {
		fxRate = t.ConvertToBase(ctx, t.cfg.Conversion.Pair)
	}
	return t.engine.ComputeHolding(h, q.Price, fxRate)
}

// ValuePortfolio prices every holding concurrently. Results keep the input
// order; totals cover only holdings with a price.
func (t *Tracker) ValuePortfolio(ctx context.Context, holdings []valuation.Holding) ([]valuation.Result, valuation.Totals) {
	results := make([]valuation.Result, len(holdings))

	var g errgroup.Group
	if t.cfg.Tracker.Workers > 0 {
		g.SetLimit(t.cfg.Tracker.Workers)
	}
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			results[i] = t.ValueHolding(ctx, h)
			return nil
		})
	}
	_ = g.Wait() // ValueHolding never fails

	return results, valuation.Aggregate(results)
}

// PriceHistory returns the daily candles of the configured lookback window
// for charting, oldest first.
func (t *Tracker) PriceHistory(ctx context.Context, symbol string) ([]snapshot.Row, error) {
	return t.history.GetOrResolve(ctx, symbol, func(ctx context.Context) ([]snapshot.Row, error) {
		if t.cfg.Provider.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.cfg.Provider.Timeout)
			defer cancel()
		}

		bars, err := t.provider.DailyBars(ctx, symbol, t.cfg.Provider.HistoryDays)
		if err != nil {
			return nil, fmt.Errorf("price history %s: %w", symbol, err)
		}
		return barsToRows(symbol, bars), nil
	}, t.cfg.Cache.HistoryTTL)
}

func barsToRows(symbol string, bars []yahoo.Bar) []snapshot.Row {
	rows := make([]snapshot.Row, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, snapshot.Row{
			Symbol: symbol,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			AsOf:   snapshot.DateOf(b.Time, time.UTC),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AsOf.Before(rows[j].AsOf) })
	return rows
}
