package types

// ConnectionState is the health of the push channel. It is process-wide for
// the lifetime of a session, never persisted, and recomputed from scratch on
// every session start. Consumers use it to render a live/stale indicator.
type ConnectionState string

const (
	// ConnectionDisconnected is the initial state, and the state after a
	// clean close.
	ConnectionDisconnected ConnectionState = "disconnected"
	// ConnectionConnecting means a connect or reconnect attempt is in
	// flight.
	ConnectionConnecting ConnectionState = "connecting"
	// ConnectionConnected means the channel is open and authenticated.
	ConnectionConnected ConnectionState = "connected"
	// ConnectionError means the last connect attempt failed or the channel
	// dropped with an error.
	ConnectionError ConnectionState = "error"
)

// String implements fmt.Stringer.
func (s ConnectionState) String() string {
	return string(s)
}
