// Package oracle converts storefront-currency amounts into token
// amounts using an external price feed.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay/metrics"
	"github.com/hivepay/hivepay/types"
)

// Client queries a price feed exposing
// GET {base}/prices/{fiatCurrency}?id={tokenID} -> {"current_price": n}.
type Client struct {
	baseURL string
	http    *http.Client
	rec     metrics.Recorder
}

// New builds a price oracle client. timeout bounds each quote call.
func New(baseURL string, timeout time.Duration, rec metrics.Recorder) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		rec:     rec,
	}
}

type quoteResponse struct {
	CurrentPrice *float64 `json:"current_price"`
}

// Convert turns amount units of fromCurrency into token units. When the
// storefront currency already is the token there is nothing to convert:
// the amount passes through rounded to the token's three decimal
// places, and no network call is made. That bypass keeps an
// already-exact amount free of quote noise.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, fromCurrency string, token types.Token) (decimal.Decimal, error) {
	if strings.EqualFold(fromCurrency, string(token.Symbol)) {
		return amount.Round(types.AmountPlaces), nil
	}

	if c.baseURL == "" {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrConfigMissing,
			"price oracle URL not configured for converted-currency payments")
	}

	price, err := c.quote(ctx, fromCurrency, token.OracleID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsZero() {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrPriceUnavailable,
			fmt.Sprintf("oracle quoted zero price for %s", token.OracleID))
	}

	return amount.Div(price).Round(types.AmountPlaces), nil
}

func (c *Client) quote(ctx context.Context, fiatCurrency, tokenID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/prices/%s?id=%s",
		c.baseURL, url.PathEscape(strings.ToLower(fiatCurrency)), url.QueryEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrPriceUnavailable, err.Error())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.rec.ObserveLatency(metrics.MetricOracleQuote, time.Since(start), map[string]string{"provider": "oracle"})
	if err != nil {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrPriceUnavailable,
			fmt.Sprintf("oracle request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrPriceUnavailable,
			fmt.Sprintf("oracle returned HTTP %d", resp.StatusCode))
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrPriceUnavailable,
			fmt.Sprintf("oracle response malformed: %v", err))
	}
	if quote.CurrentPrice == nil {
		return decimal.Decimal{}, types.NewGatewayError(types.ErrPriceUnavailable,
			"oracle response missing current_price")
	}

	return decimal.NewFromFloat(*quote.CurrentPrice), nil
}
