package conversion

import (
	"context"
	"testing"

	"marketwatch/internal/quote"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubPrices map[string]quote.PriceQuote

func (s stubPrices) ResolvePrice(ctx context.Context, symbol string) quote.PriceQuote {
	if q, ok := s[symbol]; ok {
		return q
	}
	return quote.PriceQuote{Symbol: symbol, Source: quote.SourceUnavailable}
}

func live(v float64) quote.PriceQuote {
	return quote.PriceQuote{Price: decimal.NewNullDecimal(decimal.NewFromFloat(v)), Source: quote.SourceFast}
}

// go test -v --run TestRateToBase
func TestRateToBase(t *testing.T) {
	svc := NewService(stubPrices{
		"USDINR=X": live(83.42),
		"BADINR=X": live(0),
	}, 80, map[string]float64{"eurinr=x": 90.5}, zap.NewNop())
	ctx := context.Background()

	r := svc.Rate(ctx, "USDINR=X")
	assert.True(t, r.Live)
	assert.True(t, decimal.NewFromFloat(83.42).Equal(r.Value))

	r = svc.Rate(ctx, "EURINR=X")
	assert.False(t, r.Live)
	assert.True(t, decimal.NewFromFloat(90.5).Equal(r.Value))

	// a zero rate would wipe out every converted value
	r = svc.Rate(ctx, "BADINR=X")
	assert.False(t, r.Live)
	assert.True(t, decimal.NewFromInt(80).Equal(r.Value))

	assert.True(t, decimal.NewFromInt(80).Equal(svc.RateToBase(ctx, "GBPINR=X")))
}
