package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/perpspot/internal/cache/memory"
	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/platform/hyperliquid"
)

const (
	primaryURL   = "wss://primary.example/ws"
	secondaryURL = "wss://secondary.example/ws"
)

func testFeedConfig() config.Config {
	cfg := config.Defaults()
	cfg.Hyperliquid.WSPrimary = primaryURL
	cfg.Hyperliquid.WSSecondary = secondaryURL
	cfg.Feed.ReconnectBaseDelay.Duration = time.Millisecond
	cfg.Feed.ReconnectMaxDelay.Duration = 2 * time.Millisecond
	cfg.Feed.DialTimeout.Duration = 100 * time.Millisecond
	cfg.Feed.RetryCycle.Duration = time.Hour
	return cfg
}

// fakeSession blocks on ReadUpdate until an update arrives or the session is
// closed.
type fakeSession struct {
	updates   chan hyperliquid.Update
	pingErr   error
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{updates: make(chan hyperliquid.Update, 16)}
}

func (s *fakeSession) ReadUpdate() (hyperliquid.Update, error) {
	up, ok := <-s.updates
	if !ok {
		return hyperliquid.Update{}, domain.ErrWSDisconnect
	}
	return up, nil
}

func (s *fakeSession) Ping() error { return s.pingErr }

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() { close(s.updates) })
	return nil
}

// fakeDialer records every dial and delegates to a per-attempt decision.
// setup, when present, configures each new session before it is handed to the
// connector.
type fakeDialer struct {
	mu       sync.Mutex
	urls     []string
	sessions []*fakeSession
	decide   func(attempt int, url string) error
	setup    func(session int, s *fakeSession)
}

func (d *fakeDialer) dial(_ context.Context, wsURL string, _ []string) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	attempt := len(d.urls)
	d.urls = append(d.urls, wsURL)

	if err := d.decide(attempt, wsURL); err != nil {
		return nil, err
	}
	sess := newFakeSession()
	if d.setup != nil {
		d.setup(len(d.sessions), sess)
	}
	d.sessions = append(d.sessions, sess)
	return sess, nil
}

func (d *fakeDialer) dialedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func newConnector(t *testing.T, cfg config.Config, d *fakeDialer, cache domain.QuoteCache) *Connector {
	t.Helper()
	if cache == nil {
		cache = memory.NewQuoteCache()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConnector(cfg.Feed, cfg.Hyperliquid, cfg.Cache, []string{"SOL"}, d.dial, cache, logger)
}

func TestFailoverAfterThreePrimaryFailures(t *testing.T) {
	cfg := testFeedConfig()

	dialer := &fakeDialer{decide: func(_ int, url string) error {
		if url == primaryURL {
			return errors.New("connection refused")
		}
		return nil
	}}
	c := newConnector(t, cfg, dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return c.Status().State == domain.StateSubscribed
	}, 2*time.Second, 5*time.Millisecond)

	urls := dialer.dialedURLs()
	require.Len(t, urls, 4)
	assert.Equal(t, []string{primaryURL, primaryURL, primaryURL, secondaryURL}, urls)

	st := c.Status()
	assert.Equal(t, domain.NetworkSecondary, st.Network)
	assert.Equal(t, domain.HealthOnline, st.Health)

	cancel()
	<-done
}

func TestBothNetworksExhaustedGoesDegraded(t *testing.T) {
	cfg := testFeedConfig()

	dialer := &fakeDialer{decide: func(int, string) error {
		return errors.New("connection refused")
	}}
	c := newConnector(t, cfg, dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return c.Status().State == domain.StateDegraded
	}, 2*time.Second, 5*time.Millisecond)

	// Every attempt on both networks was used before giving up.
	var primary, secondary int
	for _, u := range dialer.dialedURLs() {
		switch u {
		case primaryURL:
			primary++
		case secondaryURL:
			secondary++
		}
	}
	assert.Equal(t, cfg.Feed.MaxAttemptsPerNet, primary)
	assert.Equal(t, cfg.Feed.MaxAttemptsPerNet, secondary)
	assert.Equal(t, domain.HealthOffline, c.Status().Health)

	cancel()
	<-done
}

func TestUpdatesAreWrittenToCache(t *testing.T) {
	cfg := testFeedConfig()
	cache := memory.NewQuoteCache()

	dialer := &fakeDialer{decide: func(int, string) error { return nil }}
	c := newConnector(t, cfg, dialer, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return c.Status().State == domain.StateSubscribed
	}, 2*time.Second, 5*time.Millisecond)

	dialer.mu.Lock()
	sess := dialer.sessions[0]
	dialer.mu.Unlock()

	sess.updates <- hyperliquid.Update{
		Quotes: []domain.Quote{{
			Token:      "SOL",
			Source:     domain.SourceHyperliquidWS,
			PriceType:  domain.PriceTypeMark,
			Price:      151.5,
			ObservedAt: time.Now().UTC(),
		}},
		Funding: []hyperliquid.FundingUpdate{{Token: "SOL", Rate: 0.0002, At: time.Now().UTC()}},
	}

	require.Eventually(t, func() bool {
		q, err := cache.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
		return err == nil && q.Price == 151.5
	}, 2*time.Second, 5*time.Millisecond)

	rate, _, err := cache.GetFunding(ctx, "SOL")
	require.NoError(t, err)
	assert.Equal(t, 0.0002, rate)

	cancel()
	<-done
}

func TestHeartbeatPingFailureTearsDownSession(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Feed.HeartbeatInterval.Duration = 20 * time.Millisecond
	cfg.Feed.HeartbeatTimeout.Duration = 15 * time.Millisecond

	// The first session cannot be pinged; the silence watchdog fires later
	// than the first ping, so the teardown below is the ping's.
	dialer := &fakeDialer{
		decide: func(int, string) error { return nil },
		setup: func(session int, s *fakeSession) {
			if session == 0 {
				s.pingErr = errors.New("broken pipe")
			}
		},
	}
	c := newConnector(t, cfg, dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(dialer.dialedURLs()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestHeartbeatSilenceTriggersReconnect(t *testing.T) {
	cfg := testFeedConfig()
	cfg.Feed.HeartbeatInterval.Duration = 20 * time.Millisecond
	cfg.Feed.HeartbeatTimeout.Duration = 10 * time.Millisecond

	// Every session pings fine but never delivers a message, so only the
	// silence watchdog can tear it down.
	dialer := &fakeDialer{decide: func(int, string) error { return nil }}
	c := newConnector(t, cfg, dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(dialer.dialedURLs()) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestReconnectsAfterSessionDrop(t *testing.T) {
	cfg := testFeedConfig()

	dialer := &fakeDialer{decide: func(int, string) error { return nil }}
	c := newConnector(t, cfg, dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return c.Status().State == domain.StateSubscribed
	}, 2*time.Second, 5*time.Millisecond)

	// Kill the live session; the connector must dial a fresh one.
	dialer.mu.Lock()
	first := dialer.sessions[0]
	dialer.mu.Unlock()
	first.Close()

	require.Eventually(t, func() bool {
		return len(dialer.dialedURLs()) >= 2 && c.Status().State == domain.StateSubscribed
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
