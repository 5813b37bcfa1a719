package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

const (
	// wsWriteWait is the time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// wsHandshakeTimeout bounds the WebSocket dial.
	wsHandshakeTimeout = 15 * time.Second
)

// Update is a batch of market data parsed from one WebSocket frame. Either
// slice may be empty; a frame that carries neither (subscription acks, pongs)
// still counts as connection liveness.
type Update struct {
	Quotes  []domain.Quote
	Funding []FundingUpdate
}

// WSSession is a single WebSocket connection to the Hyperliquid stream. It
// does not reconnect; the owner decides what to do when ReadUpdate fails and
// dials a fresh session.
type WSSession struct {
	conn    *websocket.Conn
	tokens  map[string]struct{}
	writeMu sync.Mutex
}

// DialSession connects to wsURL and subscribes to the allMids, l1Book,
// trades and activeAssetCtx channels for the given tokens.
func DialSession(ctx context.Context, wsURL string, tokens []string) (*WSSession, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid/ws: dial %s: %w", wsURL, err)
	}

	s := &WSSession{
		conn:   conn,
		tokens: make(map[string]struct{}, len(tokens)),
	}
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}

	if err := s.subscribe(tokens); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// subscribe sends one subscribe command per channel. allMids is global;
// l1Book, trades and activeAssetCtx are per coin.
func (s *WSSession) subscribe(tokens []string) error {
	cmds := []wsCommand{
		{Method: "subscribe", Subscription: &wsSubscription{Type: "allMids"}},
	}
	for _, t := range tokens {
		cmds = append(cmds,
			wsCommand{Method: "subscribe", Subscription: &wsSubscription{Type: "l1Book", Coin: t}},
			wsCommand{Method: "subscribe", Subscription: &wsSubscription{Type: "trades", Coin: t}},
			wsCommand{Method: "subscribe", Subscription: &wsSubscription{Type: "activeAssetCtx", Coin: t}},
		)
	}

	for _, cmd := range cmds {
		if err := s.writeJSON(cmd); err != nil {
			return fmt.Errorf("hyperliquid/ws: subscribe %s: %v: %w", cmd.Subscription.Type, err, domain.ErrSubscription)
		}
	}
	return nil
}

func (s *WSSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

// Ping sends an application-level ping. Hyperliquid answers on the pong
// channel, which ReadUpdate surfaces as an empty update.
func (s *WSSession) Ping() error {
	if err := s.writeJSON(wsCommand{Method: "ping"}); err != nil {
		return fmt.Errorf("hyperliquid/ws: ping: %w", err)
	}
	return nil
}

// ReadUpdate blocks for the next frame and parses it. Any returned error
// means the session is dead and must be closed.
func (s *WSSession) ReadUpdate() (Update, error) {
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return Update{}, fmt.Errorf("hyperliquid/ws: read: %w", domain.ErrWSDisconnect)
	}

	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Malformed frame; the connection itself is still alive.
		return Update{}, nil
	}

	now := time.Now().UTC()

	switch msg.Channel {
	case "allMids":
		return s.parseAllMids(msg.Data, now), nil
	case "l1Book":
		return s.parseL1Book(msg.Data, now), nil
	case "activeAssetCtx":
		return s.parseAssetCtx(msg.Data, now), nil
	case "trades":
		return s.parseTrades(msg.Data, now), nil
	case "pong", "subscriptionResponse":
		return Update{}, nil
	default:
		return Update{}, nil
	}
}

// Close tears the connection down. Safe to call after a read error.
func (s *WSSession) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	return s.conn.Close()
}

func (s *WSSession) parseAllMids(data json.RawMessage, now time.Time) Update {
	var mids allMidsData
	if err := json.Unmarshal(data, &mids); err != nil {
		return Update{}
	}

	var up Update
	for coin, px := range mids.Mids {
		if _, ok := s.tokens[coin]; !ok {
			continue
		}
		price, err := strconv.ParseFloat(px, 64)
		if err != nil || price <= 0 {
			continue
		}
		up.Quotes = append(up.Quotes, domain.Quote{
			Token:      coin,
			Source:     domain.SourceHyperliquidWS,
			PriceType:  domain.PriceTypeMark,
			Price:      price,
			ObservedAt: now,
		})
	}
	return up
}

func (s *WSSession) parseL1Book(data json.RawMessage, now time.Time) Update {
	var book l1BookData
	if err := json.Unmarshal(data, &book); err != nil {
		return Update{}
	}
	if _, ok := s.tokens[book.Coin]; !ok {
		return Update{}
	}
	if len(book.Levels) < 2 || len(book.Levels[0]) == 0 || len(book.Levels[1]) == 0 {
		return Update{}
	}

	bid, errB := strconv.ParseFloat(book.Levels[0][0].Px, 64)
	ask, errA := strconv.ParseFloat(book.Levels[1][0].Px, 64)
	if errB != nil || errA != nil || bid <= 0 || ask <= 0 {
		return Update{}
	}

	ts := now
	if book.Time > 0 {
		ts = time.UnixMilli(book.Time).UTC()
	}

	return Update{Quotes: []domain.Quote{{
		Token:      book.Coin,
		Source:     domain.SourceHyperliquidWS,
		PriceType:  domain.PriceTypeMark,
		Price:      (bid + ask) / 2,
		ObservedAt: ts,
	}}}
}

// parseTrades reduces a trades frame to the most recent print per coin. A
// trade price is as good a mark observation as a mid.
func (s *WSSession) parseTrades(data json.RawMessage, now time.Time) Update {
	var trades []tradeData
	if err := json.Unmarshal(data, &trades); err != nil {
		return Update{}
	}

	latest := make(map[string]tradeData, 1)
	for _, tr := range trades {
		if _, ok := s.tokens[tr.Coin]; !ok {
			continue
		}
		if prev, ok := latest[tr.Coin]; !ok || tr.Time >= prev.Time {
			latest[tr.Coin] = tr
		}
	}

	var up Update
	for coin, tr := range latest {
		price, err := strconv.ParseFloat(tr.Px, 64)
		if err != nil || price <= 0 {
			continue
		}
		ts := now
		if tr.Time > 0 {
			ts = time.UnixMilli(tr.Time).UTC()
		}
		up.Quotes = append(up.Quotes, domain.Quote{
			Token:      coin,
			Source:     domain.SourceHyperliquidWS,
			PriceType:  domain.PriceTypeMark,
			Price:      price,
			ObservedAt: ts,
		})
	}
	return up
}

func (s *WSSession) parseAssetCtx(data json.RawMessage, now time.Time) Update {
	var ctx activeAssetCtxData
	if err := json.Unmarshal(data, &ctx); err != nil {
		return Update{}
	}
	if _, ok := s.tokens[ctx.Coin]; !ok {
		return Update{}
	}

	var up Update
	if mark, err := strconv.ParseFloat(ctx.Ctx.MarkPx, 64); err == nil && mark > 0 {
		vol, _ := strconv.ParseFloat(ctx.Ctx.DayNtlVlm, 64)
		up.Quotes = append(up.Quotes, domain.Quote{
			Token:      ctx.Coin,
			Source:     domain.SourceHyperliquidWS,
			PriceType:  domain.PriceTypeMark,
			Price:      mark,
			Volume24h:  vol,
			ObservedAt: now,
		})
	}
	if rate, err := strconv.ParseFloat(ctx.Ctx.Funding, 64); err == nil {
		up.Funding = append(up.Funding, FundingUpdate{Token: ctx.Coin, Rate: rate, At: now})
	}
	return up
}
