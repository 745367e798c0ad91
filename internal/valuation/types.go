package valuation

import "github.com/shopspring/decimal"

type AssetClass string

const (
	Equity    AssetClass = "equity"
	Commodity AssetClass = "commodity"
	Currency  AssetClass = "currency"
)

// Holding is a position as stored by the persistence layer. Read-only here.
type Holding struct {
	Symbol        string          `json:"symbol"`
	AssetClass    AssetClass      `json:"asset_class"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

// Result is derived per request and never persisted. When PriceUnavailable
// is set the money fields other than Investment are zero and mean "no data",
// not a loss.
type Result struct {
	Symbol            string              `json:"symbol"`
	CurrentPrice      decimal.NullDecimal `json:"current_price"`
	EffectivePrice    decimal.Decimal     `json:"effective_price"` // after fx conversion
	Investment        decimal.Decimal     `json:"investment"`
	CurrentValue      decimal.Decimal     `json:"current_value"`
	ProfitLoss        decimal.Decimal     `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal     `json:"profit_loss_percent"`
	PriceUnavailable  bool                `json:"price_unavailable"`
}

// Totals aggregates priced holdings only; Unavailable counts the rest.
type Totals struct {
	Investment        decimal.Decimal `json:"investment"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
	Unavailable       int             `json:"unavailable"`
}
