// Package session owns the notification pipeline for one authenticated
// session: hydration, the push channel, and the inbox store. A Session is
// the capability handed to presentation consumers; it is created at session
// start and torn down at logout.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/alert"
	"github.com/coursewire/coursewire-go/config"
	"github.com/coursewire/coursewire-go/inbox"
	"github.com/coursewire/coursewire-go/rest"
	"github.com/coursewire/coursewire-go/transport"
	"github.com/coursewire/coursewire-go/types"
)

// Session binds the hydration loader, the push channel, and the inbox store
// for the lifetime of one authenticated session.
type Session struct {
	client  *rest.Client
	store   *inbox.Store
	channel *transport.Channel

	closeOnce sync.Once
}

// Options configures a Session.
type Options struct {
	API     config.APIConfig
	Channel config.ChannelConfig
	// Tokens supplies the session credential. Required.
	Tokens rest.TokenSource
	// Alerter raises passive alerts for pushed notifications. Nil
	// disables alerts.
	Alerter alert.Alerter
}

// New creates a Session. No network traffic happens until Start.
func New(opts Options) *Session {
	client := rest.NewClient(opts.API.URL, opts.API.Timeout, opts.Tokens)
	store := inbox.NewStore(client)

	s := &Session{
		client: client,
		store:  store,
	}

	s.channel = transport.NewChannel(opts.Channel, opts.Tokens, transport.Events{
		OnMessage:     store.ApplyPush,
		OnStateChange: store.SetConnectionState,
	}, opts.Alerter)

	return s
}

// Start hydrates the inbox, then opens the push channel. Hydration completes
// (success or failure) before the channel is connected, so pushed events are
// applied on top of the hydrated collection; the id-keyed upsert makes a
// racing push harmless either way.
//
// A missing credential returns types.ErrAuthMissing and skips both steps. A
// failed hydration fetch is reported but not fatal: the inbox stays empty
// and the channel still connects.
func (s *Session) Start(ctx context.Context) error {
	notifications, err := s.client.Notifications(ctx)
	switch {
	case errors.Is(err, types.ErrAuthMissing):
		log.Warn().Msg("No session credential, skipping notification pipeline")
		return err
	case err != nil:
		log.Error().Err(err).Msg("Hydration failed, starting with empty inbox")
	default:
		s.store.ApplyHydration(notifications)
	}

	s.channel.Connect()
	return nil
}

// Notifications returns a read-only snapshot of the inbox in server order.
func (s *Session) Notifications() []types.Notification {
	return s.store.Notifications()
}

// UnreadCount returns the derived number of unread notifications.
func (s *Session) UnreadCount() int {
	return s.store.UnreadCount()
}

// ConnectionState returns the current push channel state.
func (s *Session) ConnectionState() types.ConnectionState {
	return s.store.ConnectionState()
}

// OnChange registers a callback invoked after every inbox change.
func (s *Session) OnChange(fn func()) {
	s.store.OnChange(fn)
}

// MarkAsRead optimistically marks one notification read; the server
// mutation runs in the background. It never blocks the caller and never
// returns an error; failures are logged by the store.
func (s *Session) MarkAsRead(id int64) {
	s.store.MarkAsRead(context.Background(), id)
}

// MarkAllAsRead is MarkAsRead applied to the whole collection.
func (s *Session) MarkAllAsRead() {
	s.store.MarkAllAsRead(context.Background())
}

// Close tears the session down: the channel is released, in-flight
// mutations are drained, and the store is cleared. Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.channel.Close()
		s.store.Close()
		log.Debug().Msg("Notification session closed")
	})
}
