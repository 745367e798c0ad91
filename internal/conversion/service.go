// Package conversion turns a currency-pair quote into a base-currency rate.
package conversion

import (
	"context"
	"strings"

	"marketwatch/internal/quote"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSource resolves a (possibly cached) quote for a symbol.
type PriceSource interface {
	ResolvePrice(ctx context.Context, symbol string) quote.PriceQuote
}

// Rate is a base-currency-per-foreign-unit rate. Live is false when Value is
// the configured approximation.
type Rate struct {
	Pair  string          `json:"pair"`
	Value decimal.Decimal `json:"value"`
	Live  bool            `json:"live"`
}

type Service struct {
	prices          PriceSource
	fallbacks       map[string]decimal.Decimal
	defaultFallback decimal.Decimal
	logger          *zap.Logger
}

// NewService builds a converter. fallbacks are approximate per-pair rates
// used when the provider yields nothing; defaultFallback covers other pairs.
func NewService(prices PriceSource, defaultFallback float64, fallbacks map[string]float64, logger *zap.Logger) *Service {
	fb := make(map[string]decimal.Decimal, len(fallbacks))
	for pair, v := range fallbacks {
		fb[pair] = decimal.NewFromFloat(v)
	}
	return &Service{
		prices:          prices,
		fallbacks:       fb,
		defaultFallback: decimal.NewFromFloat(defaultFallback),
		logger:          logger.Named("conversion"),
	}
}

// RateToBase returns the live rate for pair, or its fallback constant.
func (s *Service) RateToBase(ctx context.Context, pair string) decimal.Decimal {
	return s.Rate(ctx, pair).Value
}

// Rate is RateToBase with provenance.
func (s *Service) Rate(ctx context.Context, pair string) Rate {
	q := s.prices.ResolvePrice(ctx, pair)
	if q.Available() && q.Price.Decimal.IsPositive() {
		return Rate{Pair: pair, Value: q.Price.Decimal, Live: true}
	}

	fb := s.fallback(pair)
	s.logger.Warn("using approximate fallback rate",
		zap.String("pair", pair),
		zap.String("source", string(q.Source)),
		zap.String("rate", fb.String()))
	return Rate{Pair: pair, Value: fb, Live: false}
}

// fallback looks pair up exactly, then case-insensitively; config loaders
// may lower-case map keys.
func (s *Service) fallback(pair string) decimal.Decimal {
	if v, ok := s.fallbacks[pair]; ok {
		return v
	}
	for k, v := range s.fallbacks {
		if strings.EqualFold(k, pair) {
			return v
		}
	}
	return s.defaultFallback
}
