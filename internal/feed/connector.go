// Package feed maintains the live market data stream. The Connector owns the
// connection lifecycle: dialing, heartbeats, reconnection with exponential
// backoff, and failover between the primary and secondary networks.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/platform/hyperliquid"
)

// Session is a single live stream connection. It never reconnects itself;
// the Connector dials a fresh one after any failure.
type Session interface {
	ReadUpdate() (hyperliquid.Update, error)
	Ping() error
	Close() error
}

// DialFunc establishes a new Session against the given endpoint, subscribed
// for the given tokens.
type DialFunc func(ctx context.Context, wsURL string, tokens []string) (Session, error)

// Connector drives the market data stream and writes every quote and funding
// update into the cache. It survives connection loss: reconnects with
// backoff, fails over to the secondary network after repeated primary
// failures, and goes degraded when both networks are exhausted until the
// retry cycle elapses.
type Connector struct {
	cfg          config.FeedConfig
	primaryURL   string
	secondaryURL string
	tokens       []string
	dial         DialFunc
	cache        domain.QuoteCache
	streamTTL    time.Duration
	fundingTTL   time.Duration
	logger       *slog.Logger

	mu          sync.RWMutex
	state       domain.ConnectorState
	network     domain.Network
	attempts    int
	lastMessage time.Time
}

// NewConnector creates a connector. dial is injectable so failure handling
// can be exercised without a live endpoint.
func NewConnector(
	cfg config.FeedConfig,
	hl config.HyperliquidConfig,
	cacheCfg config.CacheConfig,
	tokens []string,
	dial DialFunc,
	cache domain.QuoteCache,
	logger *slog.Logger,
) *Connector {
	return &Connector{
		cfg:          cfg,
		primaryURL:   hl.WSPrimary,
		secondaryURL: hl.WSSecondary,
		tokens:       tokens,
		dial:         dial,
		cache:        cache,
		streamTTL:    cacheCfg.StreamTTL.Duration,
		fundingTTL:   cacheCfg.FundingTTL.Duration,
		logger:       logger.With(slog.String("component", "feed")),
		state:        domain.StateDisconnected,
		network:      domain.NetworkPrimary,
	}
}

// Run blocks until ctx is cancelled, keeping the stream alive. When both
// networks are exhausted it parks in the degraded state for the retry cycle,
// then resets to the primary network and starts over.
func (c *Connector) Run(ctx context.Context) error {
	for {
		sess, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(domain.StateDisconnected)
				return ctx.Err()
			}

			c.setState(domain.StateDegraded)
			c.logger.Error("all networks exhausted, entering degraded state",
				slog.Duration("retry_in", c.cfg.RetryCycle.Duration))

			select {
			case <-ctx.Done():
				c.setState(domain.StateDisconnected)
				return ctx.Err()
			case <-time.After(c.cfg.RetryCycle.Duration):
			}

			c.resetToPrimary()
			continue
		}

		c.serve(ctx, sess)
		if ctx.Err() != nil {
			c.setState(domain.StateDisconnected)
			return ctx.Err()
		}
		c.setState(domain.StateReconnecting)
	}
}

// connect dials until a session is up or both networks are exhausted. It
// fails over from primary to secondary after cfg.FailoverAfter consecutive
// failures, and gives each network at most cfg.MaxAttemptsPerNet attempts.
func (c *Connector) connect(ctx context.Context) (Session, error) {
	attempts := map[domain.Network]int{}
	current := c.currentNetwork()
	backoff := c.cfg.ReconnectBaseDelay.Duration

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.setConnecting(current, attempts[current]+1)

		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout.Duration)
		sess, err := c.dial(dialCtx, c.urlFor(current), c.tokens)
		cancel()

		if err == nil {
			c.setSubscribed(current)
			c.logger.Info("stream subscribed",
				slog.String("network", string(current)),
				slog.Int("attempt", attempts[current]+1))
			return sess, nil
		}

		attempts[current]++
		c.logger.Warn("stream connect failed",
			slog.String("network", string(current)),
			slog.Int("attempt", attempts[current]),
			slog.String("error", err.Error()))

		next := c.nextNetwork(current, attempts)
		if next == "" {
			return nil, fmt.Errorf("feed: connect: %w", domain.ErrNetworkExhausted)
		}
		if next != current {
			c.logger.Warn("failing over",
				slog.String("from", string(current)),
				slog.String("to", string(next)))
			current = next
			backoff = c.cfg.ReconnectBaseDelay.Duration
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.ReconnectMaxDelay.Duration {
			backoff = c.cfg.ReconnectMaxDelay.Duration
		}
	}
}

// nextNetwork decides which network the next attempt should use, or ""
// when every network is out of attempts.
func (c *Connector) nextNetwork(current domain.Network, attempts map[domain.Network]int) domain.Network {
	other := domain.NetworkSecondary
	if current == domain.NetworkSecondary {
		other = domain.NetworkPrimary
	}

	if current == domain.NetworkPrimary &&
		attempts[current] >= c.cfg.FailoverAfter &&
		attempts[other] < c.cfg.MaxAttemptsPerNet {
		return other
	}
	if attempts[current] < c.cfg.MaxAttemptsPerNet {
		return current
	}
	if attempts[other] < c.cfg.MaxAttemptsPerNet {
		return other
	}
	return ""
}

// serve pumps updates from the session into the cache and enforces the
// heartbeat: a ping every HeartbeatInterval, and a dead connection when no
// message of any kind arrives within HeartbeatInterval + HeartbeatTimeout.
func (c *Connector) serve(ctx context.Context, sess Session) {
	defer sess.Close()

	done := make(chan struct{})
	defer close(done)

	updates := make(chan hyperliquid.Update)
	readErr := make(chan error, 1)
	go func() {
		for {
			up, err := sess.ReadUpdate()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case updates <- up:
			case <-done:
				return
			}
		}
	}()

	c.touch()
	pinger := time.NewTicker(c.cfg.HeartbeatInterval.Duration)
	defer pinger.Stop()
	watchdog := time.NewTicker(c.cfg.HeartbeatTimeout.Duration)
	defer watchdog.Stop()

	deadline := c.cfg.HeartbeatInterval.Duration + c.cfg.HeartbeatTimeout.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			c.logger.Warn("stream read failed", slog.String("error", err.Error()))
			return
		case up := <-updates:
			c.touch()
			c.apply(ctx, up)
		case <-pinger.C:
			if err := sess.Ping(); err != nil {
				c.logger.Warn("heartbeat ping failed", slog.String("error", err.Error()))
				return
			}
		case <-watchdog.C:
			if age := time.Since(c.lastMessageAt()); age > deadline {
				c.logger.Warn("heartbeat timed out", slog.Duration("silent_for", age))
				return
			}
		}
	}
}

// apply writes a parsed update into the cache.
func (c *Connector) apply(ctx context.Context, up hyperliquid.Update) {
	for _, q := range up.Quotes {
		if err := c.cache.SetQuote(ctx, q, c.streamTTL); err != nil {
			c.logger.Warn("cache quote write failed",
				slog.String("token", q.Token),
				slog.String("error", err.Error()))
		}
	}
	for _, f := range up.Funding {
		if err := c.cache.SetFunding(ctx, f.Token, f.Rate, f.At, c.fundingTTL); err != nil {
			c.logger.Warn("cache funding write failed",
				slog.String("token", f.Token),
				slog.String("error", err.Error()))
		}
	}
}

// Status reports the connector's current state for health checks.
func (c *Connector) Status() domain.ConnectorStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var age time.Duration
	if !c.lastMessage.IsZero() {
		age = time.Since(c.lastMessage)
	}

	health := domain.HealthOffline
	switch c.state {
	case domain.StateSubscribed:
		health = domain.HealthOnline
		if age > c.cfg.HeartbeatInterval.Duration+c.cfg.HeartbeatTimeout.Duration {
			health = domain.HealthDegraded
		}
	case domain.StateConnecting, domain.StateReconnecting:
		health = domain.HealthDegraded
	}

	return domain.ConnectorStatus{
		State:          c.state,
		Health:         health,
		Network:        c.network,
		LastMessageAge: age,
		Attempts:       c.attempts,
	}
}

func (c *Connector) urlFor(n domain.Network) string {
	if n == domain.NetworkSecondary {
		return c.secondaryURL
	}
	return c.primaryURL
}

func (c *Connector) currentNetwork() domain.Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.network
}

func (c *Connector) setState(s domain.ConnectorState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connector) setConnecting(n domain.Network, attempt int) {
	c.mu.Lock()
	c.state = domain.StateConnecting
	c.network = n
	c.attempts = attempt
	c.mu.Unlock()
}

func (c *Connector) setSubscribed(n domain.Network) {
	c.mu.Lock()
	c.state = domain.StateSubscribed
	c.network = n
	c.attempts = 0
	c.mu.Unlock()
}

func (c *Connector) resetToPrimary() {
	c.mu.Lock()
	c.network = domain.NetworkPrimary
	c.state = domain.StateReconnecting
	c.mu.Unlock()
}

func (c *Connector) touch() {
	c.mu.Lock()
	c.lastMessage = time.Now()
	c.mu.Unlock()
}

func (c *Connector) lastMessageAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMessage
}
