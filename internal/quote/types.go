package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source records which provider field produced a quote.
type Source string

const (
	SourceFast        Source = "fast"        // chart last price
	SourceDetailed    Source = "detailed"    // quote regular market price
	SourceFallback    Source = "fallback"    // previous close
	SourceUnavailable Source = "unavailable" // nothing numeric, or the provider failed
)

// PriceQuote is one resolved price observation. Price.Valid is false when
// no field produced a number; a valid zero is a real price.
type PriceQuote struct {
	Symbol     string              `json:"symbol"`
	Name       string              `json:"name,omitempty"` // set when the detailed lookup ran
	Price      decimal.NullDecimal `json:"price"`
	ResolvedAt time.Time           `json:"resolved_at"`
	Source     Source              `json:"source"`
}

// Available reports whether the quote carries a price.
func (q PriceQuote) Available() bool {
	return q.Price.Valid
}

// Instrument describes a symbol for display next to its price.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}
