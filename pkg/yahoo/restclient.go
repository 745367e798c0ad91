package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Provider failures. Callers above the resolver never see these.
var (
	ErrUnavailable   = errors.New("provider unavailable")
	ErrTimeout       = errors.New("provider timeout")
	ErrSymbolUnknown = errors.New("symbol unknown")
	ErrRateLimited   = errors.New("provider rate limited")
)

type RESTClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithUserAgent sets the User-Agent header; the public endpoints reject empty ones.
func (c *RESTClient) WithUserAgent(ua string) *RESTClient {
	c.userAgent = ua
	return c
}

// FastPrice returns the chart meta's last traded price, or nil when the
// provider has none for the symbol.
func (c *RESTClient) FastPrice(ctx context.Context, symbol string) (*float64, error) {
	res, err := c.chart(ctx, symbol, Range1Day)
	if err != nil {
		return nil, err
	}
	return res.Meta.RegularMarketPrice, nil
}

// QuoteFields fetches the detailed quote record for symbol.
func (c *RESTClient) QuoteFields(ctx context.Context, symbol string) (*QuoteFields, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	var rawResp QuoteResponse
	if err := c.get(ctx, "/v7/finance/quote", params, &rawResp); err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if rawResp.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote %s: %w: %w", symbol, ErrUnavailable, rawResp.QuoteResponse.Error)
	}

	for i := range rawResp.QuoteResponse.Result {
		if rawResp.QuoteResponse.Result[i].Symbol == symbol {
			return &rawResp.QuoteResponse.Result[i], nil
		}
	}
	if len(rawResp.QuoteResponse.Result) == 1 {
		return &rawResp.QuoteResponse.Result[0], nil
	}
	return nil, fmt.Errorf("quote %s: %w", symbol, ErrSymbolUnknown)
}

// DailyBars returns up to the last `days` daily candles for symbol, oldest first.
func (c *RESTClient) DailyBars(ctx context.Context, symbol string, days int) ([]Bar, error) {
	r, err := RangeForDays(days)
	if err != nil {
		return nil, err
	}

	res, err := c.chart(ctx, symbol, r)
	if err != nil {
		return nil, err
	}

	bars := ParseBars(*res)
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (c *RESTClient) chart(ctx context.Context, symbol string, r ChartRange) (*ChartResult, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("chart %s: unsupported range %q", symbol, r)
	}

	params := url.Values{}
	params.Set("range", string(r))
	params.Set("interval", IntervalDaily)

	var rawResp ChartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, &rawResp); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if rawResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %w: %w", symbol, ErrSymbolUnknown, rawResp.Chart.Error)
	}
	if len(rawResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, ErrSymbolUnknown)
	}
	return &rawResp.Chart.Result[0], nil
}

// get performs one GET and decodes the JSON body into out, mapping
// transport and status failures onto the provider sentinels.
func (c *RESTClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrSymbolUnknown
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
