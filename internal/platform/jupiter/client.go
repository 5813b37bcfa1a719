// Package jupiter provides access to the Jupiter price API for Solana spot
// prices.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client fetches spot prices from the Jupiter price API. The API is keyed by
// token mint address, so the client carries a symbol-to-mint map.
type Client struct {
	baseURL    string
	mints      map[string]string
	httpClient *http.Client
}

// NewClient creates a new Jupiter price client.
//
// baseURL is the API root, e.g. "https://api.jup.ag/price/v2".
// mints maps token symbols to Solana mint addresses.
func NewClient(baseURL string, mints map[string]string) *Client {
	return &Client{
		baseURL: baseURL,
		mints:   mints,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Supports reports whether the client has a mint mapping for the token.
func (c *Client) Supports(token string) bool {
	_, ok := c.mints[token]
	return ok
}

// Price returns the current USD spot price for the token symbol.
func (c *Client) Price(ctx context.Context, token string) (float64, error) {
	prices, err := c.Prices(ctx, []string{token})
	if err != nil {
		return 0, err
	}
	price, ok := prices[token]
	if !ok {
		return 0, fmt.Errorf("jupiter: no price for %s", token)
	}
	return price, nil
}

// Prices returns USD spot prices for the given token symbols in one request.
// Tokens without a mint mapping are skipped.
func (c *Client) Prices(ctx context.Context, tokens []string) (map[string]float64, error) {
	ids := make([]string, 0, len(tokens))
	bySymbol := make(map[string]string, len(tokens))
	for _, t := range tokens {
		mint, ok := c.mints[t]
		if !ok {
			continue
		}
		ids = append(ids, mint)
		bySymbol[mint] = t
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("jupiter: no mint mapping for %s", strings.Join(tokens, ","))
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("jupiter: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jupiter: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jupiter: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("jupiter: decode response: %w", err)
	}

	out := make(map[string]float64, len(parsed.Data))
	for mint, entry := range parsed.Data {
		symbol, ok := bySymbol[mint]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		out[symbol] = price
	}
	return out, nil
}
