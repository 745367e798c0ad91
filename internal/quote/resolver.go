// Package quote resolves a single best-effort current price per symbol.
package quote

import (
	"context"
	"fmt"
	"math"
	"time"

	"marketwatch/pkg/yahoo"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider is the subset of the market-data client the resolver reads.
type Provider interface {
	FastPrice(ctx context.Context, symbol string) (*float64, error)
	QuoteFields(ctx context.Context, symbol string) (*yahoo.QuoteFields, error)
}

type Resolver struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewResolver(provider Provider, timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		timeout:  timeout,
		logger:   logger.Named("resolver"),
		now:      time.Now,
	}
}

// Resolve returns the first numeric field among: fast last price, detailed
// market price, previous close. It never fails; provider errors and
// timeouts come back as an unavailable quote.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (q PriceQuote) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("provider panicked", zap.String("symbol", symbol), zap.Any("panic", rec))
			q = r.quote(symbol, decimal.NullDecimal{}, SourceUnavailable)
		}
	}()

	if p, err := r.fast(ctx, symbol); err != nil {
		r.logger.Debug("fast price failed", zap.String("symbol", symbol), zap.Error(err))
	} else if p.Valid {
		return r.quote(symbol, p, SourceFast)
	}

	fields, err := r.detailed(ctx, symbol)
	if err != nil {
		r.logger.Debug("detailed quote failed", zap.String("symbol", symbol), zap.Error(err))
		return r.quote(symbol, decimal.NullDecimal{}, SourceUnavailable)
	}

	src := SourceUnavailable
	p := toNull(fields.RegularMarketPrice)
	if p.Valid {
		src = SourceDetailed
	} else if p = toNull(fields.RegularMarketPreviousClose); p.Valid {
		src = SourceFallback
	}
	q = r.quote(symbol, p, src)
	q.Name = fields.LongName
	return q
}

// Describe returns the instrument's display name and currency. Unlike
// Resolve it reports provider failures.
func (r *Resolver) Describe(ctx context.Context, symbol string) (Instrument, error) {
	fields, err := r.detailed(ctx, symbol)
	if err != nil {
		return Instrument{}, fmt.Errorf("describe %s: %w", symbol, err)
	}
	return Instrument{
		Symbol:   symbol,
		Name:     fields.LongName,
		Currency: fields.Currency,
	}, nil
}

func (r *Resolver) fast(ctx context.Context, symbol string) (decimal.NullDecimal, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := r.provider.FastPrice(ctx, symbol)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return toNull(p), nil
}

func (r *Resolver) detailed(ctx context.Context, symbol string) (*yahoo.QuoteFields, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fields, err := r.provider.QuoteFields(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		return &yahoo.QuoteFields{}, nil
	}
	return fields, nil
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Resolver) quote(symbol string, price decimal.NullDecimal, src Source) PriceQuote {
	return PriceQuote{
		Symbol:     symbol,
		Price:      price,
		ResolvedAt: r.now(),
		Source:     src,
	}
}

// toNull treats nil, NaN and ±Inf as absent.
func toNull(f *float64) decimal.NullDecimal {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f))
}
