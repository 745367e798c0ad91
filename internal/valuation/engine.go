// Package valuation computes profit and loss from holdings and prices.
package valuation

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	domesticSuffixes []string
}

// NewEngine treats symbols ending in one of domesticSuffixes as quoted in
// the base currency.
func NewEngine(domesticSuffixes []string) *Engine {
	return &Engine{domesticSuffixes: domesticSuffixes}
}

// NeedsConversion reports whether h's price must be multiplied by an fx rate.
// Only foreign equities do; commodities and currency pairs are already local.
func (e *Engine) NeedsConversion(h Holding) bool {
	return h.AssetClass == Equity && !e.IsDomestic(h.Symbol)
}

func (e *Engine) IsDomestic(symbol string) bool {
	for _, suffix := range e.domesticSuffixes {
		if strings.HasSuffix(symbol, suffix) {
			return true
		}
	}
	return false
}

// ComputeHolding values one holding. An absent price gives a flagged result
// with zero value and zero P&L.
func (e *Engine) ComputeHolding(h Holding, currentPrice decimal.NullDecimal, fxRate decimal.Decimal) Result {
	investment := h.Quantity.Mul(h.PurchasePrice)
	res := Result{
		Symbol:            h.Symbol,
		CurrentPrice:      currentPrice,
		Investment:        investment,
		CurrentValue:      decimal.Zero,
		ProfitLoss:        decimal.Zero,
		ProfitLossPercent: decimal.Zero,
	}

	if !currentPrice.Valid {
		res.PriceUnavailable = true
		res.EffectivePrice = decimal.Zero
		return res
	}

	effective := currentPrice.Decimal
	if e.NeedsConversion(h) {
		effective = effective.Mul(fxRate)
	}

	res.EffectivePrice = effective
	res.CurrentValue = h.Quantity.Mul(effective)
	res.ProfitLoss = res.CurrentValue.Sub(investment)
	res.ProfitLossPercent = percent(res.ProfitLoss, investment)
	return res
}

// Aggregate sums investment and current value over priced results and
// derives the portfolio P&L from those sums.
func Aggregate(results []Result) Totals {
	t := Totals{
		Investment:   decimal.Zero,
		CurrentValue: decimal.Zero,
	}
	for _, r := range results {
		if r.PriceUnavailable {
			t.Unavailable++
			continue
		}
		t.Investment = t.Investment.Add(r.Investment)
		t.CurrentValue = t.CurrentValue.Add(r.CurrentValue)
	}
	t.ProfitLoss = t.CurrentValue.Sub(t.Investment)
	t.ProfitLossPercent = percent(t.ProfitLoss, t.Investment)
	return t
}

func percent(pl, investment decimal.Decimal) decimal.Decimal {
	if !investment.IsPositive() {
		return decimal.Zero
	}
	return pl.Div(investment).Mul(hundred)
}
