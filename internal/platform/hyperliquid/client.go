// Package hyperliquid provides REST and WebSocket access to the Hyperliquid
// public market data API.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is the REST client for the Hyperliquid info endpoint.
type Client struct {
	infoURL    string
	httpClient *http.Client
}

// NewClient creates a new Hyperliquid REST client.
//
// infoURL is the info endpoint, e.g. "https://api.hyperliquid.xyz/info".
func NewClient(infoURL string) *Client {
	return &Client{
		infoURL: infoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AllMids returns the current mid price for every listed coin.
func (c *Client) AllMids(ctx context.Context) (map[string]float64, error) {
	body, err := c.post(ctx, map[string]string{"type": "allMids"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: all mids: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode all mids: %w", err)
	}

	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		price, err := strconv.ParseFloat(px, 64)
		if err != nil || price <= 0 {
			continue
		}
		mids[coin] = price
	}
	return mids, nil
}

// AssetContexts returns the perp market context (mark price, funding rate,
// daily notional volume) for every listed asset, keyed by token symbol.
func (c *Client) AssetContexts(ctx context.Context) (map[string]AssetContext, error) {
	body, err := c.post(ctx, map[string]string{"type": "metaAndAssetCtxs"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: asset contexts: %w", err)
	}

	// The response is a two-element array: [meta, assetCtxs], where the
	// nth context corresponds to the nth universe entry.
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil || len(parts) != 2 {
		return nil, fmt.Errorf("hyperliquid: decode asset contexts: unexpected shape")
	}

	var meta metaResponse
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode universe: %w", err)
	}

	var ctxs []assetCtx
	if err := json.Unmarshal(parts[1], &ctxs); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode contexts: %w", err)
	}

	out := make(map[string]AssetContext, len(meta.Universe))
	for i, entry := range meta.Universe {
		if i >= len(ctxs) {
			break
		}
		out[entry.Name] = parseAssetContext(entry.Name, ctxs[i])
	}
	return out, nil
}

func parseAssetContext(token string, raw assetCtx) AssetContext {
	parse := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	return AssetContext{
		Token:             token,
		MarkPrice:         parse(raw.MarkPx),
		MidPrice:          parse(raw.MidPx),
		OraclePrice:       parse(raw.OraclePx),
		FundingRate:       parse(raw.Funding),
		DayNotionalVolume: parse(raw.DayNtlVlm),
		OpenInterest:      parse(raw.OpenInterest),
	}
}

func (c *Client) post(ctx context.Context, reqBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
