package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrStaleQuote         = errors.New("quote older than staleness TTL")
	ErrSourceUnavailable  = errors.New("price source unavailable")
	ErrInvalidDepth       = errors.New("depth must be positive")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrSimulationUnstable = errors.New("simulation dropped too many draws")
	ErrWSDisconnect       = errors.New("websocket disconnected")
	ErrSubscription       = errors.New("channel subscription rejected")
	ErrNetworkExhausted   = errors.New("streaming network exhausted")
	ErrTemplateNotFound   = errors.New("execution template not found")
)
