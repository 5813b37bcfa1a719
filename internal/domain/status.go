package domain

import "time"

// ConnectorState is the lifecycle state of the streaming feed connector.
type ConnectorState string

const (
	StateDisconnected ConnectorState = "disconnected"
	StateConnecting   ConnectorState = "connecting"
	StateSubscribed   ConnectorState = "subscribed"
	StateDegraded     ConnectorState = "degraded"
	StateReconnecting ConnectorState = "reconnecting"
)

// Network identifies which streaming endpoint the connector targets.
type Network string

const (
	NetworkPrimary   Network = "primary"
	NetworkSecondary Network = "secondary"
)

// ConnectorHealth is the coarse availability signal exposed for health
// reporting.
type ConnectorHealth string

const (
	HealthOnline   ConnectorHealth = "online"
	HealthDegraded ConnectorHealth = "degraded"
	HealthOffline  ConnectorHealth = "offline"
)

// ConnectorStatus is a point-in-time snapshot of the feed connector for
// external health reporting.
type ConnectorStatus struct {
	State          ConnectorState  `json:"state"`
	Health         ConnectorHealth `json:"health"`
	Network        Network         `json:"network"`
	LastMessageAge time.Duration   `json:"last_message_age"`
	Attempts       int             `json:"attempts"`
}
