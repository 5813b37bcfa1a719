// Package coingecko provides access to the CoinGecko simple price API, used
// as a secondary spot price source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches USD spot prices from CoinGecko. The API is keyed by
// CoinGecko coin IDs, so the client carries a symbol-to-ID map.
type Client struct {
	baseURL    string
	ids        map[string]string
	httpClient *http.Client
}

// NewClient creates a new CoinGecko client.
//
// baseURL is the API root, e.g. "https://api.coingecko.com/api/v3".
// ids maps token symbols to CoinGecko coin IDs ("SOL" -> "solana").
func NewClient(baseURL string, ids map[string]string) *Client {
	return &Client{
		baseURL: baseURL,
		ids:     ids,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Supports reports whether the client has a coin ID mapping for the token.
func (c *Client) Supports(token string) bool {
	_, ok := c.ids[token]
	return ok
}

// Price returns the current USD spot price for the token symbol.
func (c *Client) Price(ctx context.Context, token string) (float64, error) {
	id, ok := c.ids[token]
	if !ok {
		return 0, fmt.Errorf("coingecko: no coin id for %s", token)
	}

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")

	endpoint := c.baseURL + "/simple/price?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("coingecko: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("coingecko: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("coingecko: HTTP %d", resp.StatusCode)
	}

	var parsed map[string]map[string]float64
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("coingecko: decode response: %w", err)
	}

	price := parsed[strings.ToLower(id)]["usd"]
	if price <= 0 {
		return 0, fmt.Errorf("coingecko: no usd price for %s", token)
	}
	return price, nil
}
