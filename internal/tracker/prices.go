package tracker

import (
	"context"
	"time"

	"marketwatch/internal/memorystore"
	"marketwatch/internal/quote"
)

// cachedPrices puts the TTL cache in front of the resolver.
type cachedPrices struct {
	cache    *memorystore.Cache[string, quote.PriceQuote]
	resolver *quote.Resolver
	ttl      time.Duration
}

// ResolvePrice never fails. An unavailable quote is cached like any other.
// A caller whose context ends first gets an uncached unavailable quote while
// the shared lookup carries on for everyone else.
func (p *cachedPrices) ResolvePrice(ctx context.Context, symbol string) quote.PriceQuote {
	q, err := p.cache.GetOrResolve(ctx, symbol, func(ctx context.Context) (quote.PriceQuote, error) {
		return p.resolver.Resolve(ctx, symbol), nil
	}, p.ttl)
	if err != nil {
		return quote.PriceQuote{Symbol: symbol, ResolvedAt: time.Now(), Source: quote.SourceUnavailable}
	}
	return q
}
