// Package transport maintains the push channel: one logical websocket
// connection per authenticated session, with reconnection and connection
// state tracking.
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/alert"
	"github.com/coursewire/coursewire-go/config"
	"github.com/coursewire/coursewire-go/metrics"
	"github.com/coursewire/coursewire-go/rest"
	"github.com/coursewire/coursewire-go/types"
)

// Events is the observer registration for channel callbacks. All callbacks
// are optional and are invoked from the channel's own goroutine, one at a
// time.
type Events struct {
	// OnOpen fires when the channel transitions to connected.
	OnOpen func()
	// OnClose fires when an open channel drops or is closed.
	OnClose func()
	// OnError fires when a connect attempt or an open channel fails.
	OnError func(err error)
	// OnMessage fires once per delivered notification.
	OnMessage func(n types.Notification)
	// OnStateChange fires on every connection state transition.
	OnStateChange func(state types.ConnectionState)
}

// Channel owns one push connection. Create with NewChannel, start with
// Connect, release with Close. A Channel is not reusable after Close.
type Channel struct {
	cfg      config.ChannelConfig
	tokens   rest.TokenSource
	events   Events
	alerter  alert.Alerter
	clientID uuid.UUID

	mu      sync.Mutex
	state   types.ConnectionState
	conn    *websocket.Conn
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewChannel creates a channel. alerter may be nil to disable passive
// alerts; it is wrapped so duplicate deliveries of the same notification id
// never raise duplicate alerts.
func NewChannel(cfg config.ChannelConfig, tokens rest.TokenSource, events Events, alerter alert.Alerter) *Channel {
	if alerter == nil {
		alerter = alert.Discard
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	c := &Channel{
		cfg:      cfg,
		tokens:   tokens,
		events:   events,
		alerter:  alert.NewDeduper(alerter),
		clientID: uuid.New(),
		state:    types.ConnectionDisconnected,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	metrics.SetConnectionState(c.state)
	return c
}

// State returns the current connection state.
func (c *Channel) State() types.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the channel. It never returns an error to the caller: a
// missing or rejected credential settles the state to error and is logged.
// Calling Connect more than once, or after Close, is a no-op.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.closed || c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.run()
}

// Close releases the channel. It is idempotent and safe to call from any
// connection state, including concurrently with an in-flight reconnect
// attempt. Any message arriving after Close is discarded.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stopCh)
	conn := c.conn
	c.conn = nil
	running := c.running
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if running {
		<-c.doneCh
	}
	c.setState(types.ConnectionDisconnected)
	log.Debug().Str("client_id", c.clientID.String()).Msg("Push channel closed")
}

// run is the connect/read/reconnect loop. It owns all state transitions
// while the channel is live.
func (c *Channel) run() {
	defer close(c.doneCh)

	backoff := c.cfg.InitialBackoff
	attempts := 0

	for {
		if c.isClosed() {
			return
		}

		c.setState(types.ConnectionConnecting)

		token, err := c.tokens.Token()
		if err != nil {
			// No credential: settle to error, do not retry. The
			// credential is not refreshed mid-session.
			log.Warn().Err(err).Msg("Push channel has no usable credential")
			c.setState(types.ConnectionError)
			c.emitError(types.ErrChannel)
			return
		}

		attempts++
		if attempts > 1 {
			metrics.ReconnectAttempts.Inc()
		}

		conn, err := c.dial(token)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempts).
				Msg("Push channel connect failed")
			c.setState(types.ConnectionError)
			c.emitError(errors.Join(types.ErrChannel, err))

			if c.cfg.MaxAttempts > 0 && attempts >= c.cfg.MaxAttempts {
				log.Error().
					Int("attempts", attempts).
					Msg("Push channel giving up after max attempts")
				return
			}

			select {
			case <-c.stopCh:
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.cfg.MaxBackoff)
			continue
		}

		backoff = c.cfg.InitialBackoff

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.setState(types.ConnectionConnected)
		log.Info().
			Str("client_id", c.clientID.String()).
			Msg("Push channel connected")
		if c.events.OnOpen != nil {
			c.events.OnOpen()
		}

		readErr := c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if c.isClosed() {
			return
		}

		if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			log.Info().Msg("Push channel closed by server")
			c.setState(types.ConnectionDisconnected)
		} else {
			log.Warn().Err(readErr).Msg("Push channel dropped")
			c.setState(types.ConnectionError)
			c.emitError(errors.Join(types.ErrChannel, readErr))
		}
		if c.events.OnClose != nil {
			c.events.OnClose()
		}
		// Loop to reconnect: any state may transition to connecting.
	}
}

// dial opens and authenticates one websocket connection.
func (c *Channel) dial(token string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("X-Client-ID", c.clientID.String())

	conn, resp, err := dialer.Dial(c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// readLoop delivers inbound notifications until the connection fails.
// Messages are not guaranteed gap-free; hydration on the next session start
// is the recovery path for anything missed while disconnected.
func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		var n types.Notification
		if err := conn.ReadJSON(&n); err != nil {
			return err
		}

		if c.isClosed() {
			log.Debug().Int64("id", n.ID).Msg("Discarding message received after close")
			return nil
		}

		metrics.MessagesReceived.Inc()
		log.Debug().
			Int64("id", n.ID).
			Str("type", string(n.Type)).
			Msg("Push notification received")

		c.alerter.Alert(n)
		if c.events.OnMessage != nil {
			c.events.OnMessage(n)
		}
	}
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// setState transitions the connection state and notifies observers. The
// state machine never jumps disconnected->connected; every connect path
// passes through connecting first.
func (c *Channel) setState(state types.ConnectionState) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = state
	c.mu.Unlock()

	metrics.SetConnectionState(state)
	log.Debug().
		Str("from", prev.String()).
		Str("to", state.String()).
		Msg("Push channel state changed")

	if c.events.OnStateChange != nil {
		c.events.OnStateChange(state)
	}
}

func (c *Channel) emitError(err error) {
	if c.events.OnError != nil {
		c.events.OnError(err)
	}
}
