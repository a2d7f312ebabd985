package model

import "time"

// ConnectionStatus represents the realtime connection lifecycle state.
type ConnectionStatus string

const (
	ConnectionStatusConnecting   ConnectionStatus = "connecting"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusError        ConnectionStatus = "error"
	ConnectionStatusReconnecting ConnectionStatus = "reconnecting"
)

// HeartbeatSnapshot is a read-only view of the heartbeat monitor state.
type HeartbeatSnapshot struct {
	Active   bool          `json:"active"`
	LastPing time.Time     `json:"last_ping"`
	LastPong time.Time     `json:"last_pong"`
	Latency  time.Duration `json:"latency_ns"`
	Failures int           `json:"failures"`
}

// ConnectionSnapshot is a read-only view of the connection manager state,
// served by the status endpoint and consumed by embedding UIs.
type ConnectionSnapshot struct {
	Status      ConnectionStatus  `json:"status"`
	Endpoint    string            `json:"endpoint,omitempty"`
	LastUpdate  time.Time         `json:"last_update"`
	Attempts    int               `json:"reconnect_attempts"`
	MaxAttempts int               `json:"reconnect_max_attempts"`
	LastError   string            `json:"last_error,omitempty"`
	Heartbeat   HeartbeatSnapshot `json:"heartbeat"`
}
