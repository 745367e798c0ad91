package yahoo

import "time"

// ChartResponse is the envelope of /v8/finance/chart/{symbol}.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *APIError     `json:"error"`
	} `json:"chart"`
}

type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"` // seconds since epoch, one per bar
	Indicators struct {
		Quote []ChartQuote `json:"quote"`
	} `json:"indicators"`
}

type ChartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"` // last traded price
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
}

// ChartQuote holds parallel OHLCV arrays. Entries are null for sessions
// without trades, hence the pointers.
type ChartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// QuoteResponse is the envelope of /v7/finance/quote.
type QuoteResponse struct {
	QuoteResponse struct {
		Result []QuoteFields `json:"result"`
		Error  *APIError     `json:"error"`
	} `json:"quoteResponse"`
}

// QuoteFields are the detailed quote fields. Any of them may be missing.
type QuoteFields struct {
	Symbol                     string   `json:"symbol"`
	LongName                   string   `json:"longName"`
	Currency                   string   `json:"currency"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
}

type APIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}

// Bar is one daily OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
