// Package inbox holds the client-side notification state: the ordered
// collection, unread accounting, and the connection state observed from the
// push channel.
//
// The Store is the single source of truth for a session. Consumers read
// snapshots and invoke the mutation operations; they never splice the
// collection directly.
package inbox

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/metrics"
	"github.com/coursewire/coursewire-go/types"
)

// Mutator issues read-state mutations against the server. *rest.Client
// satisfies it.
type Mutator interface {
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Store owns the in-memory notification collection for one authenticated
// session. All mutation is funneled through its methods; reads return
// copies. It is safe for concurrent use by the transport goroutine and UI
// callers.
type Store struct {
	mutator Mutator

	mu            sync.Mutex
	notifications []types.Notification
	connState     types.ConnectionState
	closed        bool
	onChange      func()

	// pending tracks in-flight server mutations so Close can drain them.
	pending sync.WaitGroup
}

// NewStore creates an empty store. mutator may be nil, in which case
// mark-read operations only mutate local state.
func NewStore(mutator Mutator) *Store {
	return &Store{
		mutator:   mutator,
		connState: types.ConnectionDisconnected,
	}
}

// OnChange registers a callback invoked after every state change, outside
// the store lock. Consumers use it to re-render; they must read fresh
// snapshots rather than capture state in the callback.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// ApplyHydration replaces the collection wholesale with the hydration
// result, preserving server order. It is called at most once per session.
func (s *Store) ApplyHydration(notifications []types.Notification) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.notifications = make([]types.Notification, len(notifications))
	copy(s.notifications, notifications)
	s.mu.Unlock()

	log.Debug().Int("count", len(notifications)).Msg("Inbox hydrated")
	s.notifyChange()
}

// ApplyPush applies one pushed notification. A new id is inserted at the
// front of the collection; an existing id has its entry replaced in place
// (last write wins), so re-delivery after a reconnect never duplicates an
// entry. The operation is commutative with a racing hydration.
func (s *Store) ApplyPush(n types.Notification) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Debug().Int64("id", n.ID).Msg("Dropping push for closed inbox")
		return
	}

	replaced := false
	for i := range s.notifications {
		if s.notifications[i].ID == n.ID {
			s.notifications[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		s.notifications = append([]types.Notification{n}, s.notifications...)
	}
	s.mu.Unlock()

	if replaced {
		metrics.DuplicateDeliveries.Inc()
		log.Debug().Int64("id", n.ID).Msg("Push updated existing notification")
	}
	s.notifyChange()
}

// MarkAsRead marks one notification read: the local entry flips to read
// immediately, then the server mutation is issued in the background so the
// caller never blocks on network I/O. A failed server call is logged and
// counted, not retried and not rolled back; local and server read-state may
// diverge until the next hydration. Marking an id that is not in the
// collection, or one already read, is a no-op that issues no server call.
func (s *Store) MarkAsRead(ctx context.Context, id int64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	found := false
	alreadyRead := false
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			found = true
			alreadyRead = s.notifications[i].Read
			s.notifications[i].Read = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		log.Debug().Int64("id", id).Msg("MarkAsRead for unknown notification")
		return
	}
	if alreadyRead {
		return
	}
	s.notifyChange()

	if s.mutator == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.mutator.MarkRead(ctx, id); err != nil {
			metrics.MutationFailures.Inc()
			log.Warn().Err(err).Int64("id", id).Msg("Server mark-read failed, keeping optimistic state")
		}
	}()
}

// MarkAllAsRead marks the whole collection read with the same optimistic
// contract as MarkAsRead. Calling it with nothing unread issues no server
// call.
func (s *Store) MarkAllAsRead(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	changed := false
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			changed = true
		}
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	s.notifyChange()

	if s.mutator == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.mutator.MarkAllRead(ctx); err != nil {
			metrics.MutationFailures.Inc()
			log.Warn().Err(err).Msg("Server mark-all-read failed, keeping optimistic state")
		}
	}()
}

// Notifications returns a copy of the collection in its current order.
func (s *Store) Notifications() []types.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount recomputes the number of unread entries from the collection.
// It is always derived, never tracked as a separate counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range s.notifications {
		if !s.notifications[i].Read {
			count++
		}
	}
	return count
}

// ConnectionState returns the push channel state last observed by the store.
func (s *Store) ConnectionState() types.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// SetConnectionState records a state transition from the push channel.
func (s *Store) SetConnectionState(state types.ConnectionState) {
	s.mu.Lock()
	if s.closed || s.connState == state {
		s.mu.Unlock()
		return
	}
	s.connState = state
	s.mu.Unlock()
	s.notifyChange()
}

// Close drains in-flight server mutations and clears the store. Subsequent
// applies and mutations are no-ops; reads return the empty state. Close is
// idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.notifications = nil
	s.connState = types.ConnectionDisconnected
	s.onChange = nil
	s.mu.Unlock()

	s.pending.Wait()
	log.Debug().Msg("Inbox store closed")
}

func (s *Store) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
