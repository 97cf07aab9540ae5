package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coursewire/coursewire-go/types"
)

// fakeMutator records mark-read calls and can be told to fail.
type fakeMutator struct {
	mu           sync.Mutex
	markReadIDs  []int64
	markAllCalls int
	err          error
	called       chan struct{}
}

func newFakeMutator() *fakeMutator {
	return &fakeMutator{called: make(chan struct{}, 16)}
}

func (m *fakeMutator) MarkRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	m.markReadIDs = append(m.markReadIDs, id)
	err := m.err
	m.mu.Unlock()
	m.called <- struct{}{}
	return err
}

func (m *fakeMutator) MarkAllRead(ctx context.Context) error {
	m.mu.Lock()
	m.markAllCalls++
	err := m.err
	m.mu.Unlock()
	m.called <- struct{}{}
	return err
}

func (m *fakeMutator) waitForCall(t *testing.T) {
	t.Helper()
	select {
	case <-m.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server mutation call")
	}
}

func (m *fakeMutator) markReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.markReadIDs)
}

func n(id int64, read bool) types.Notification {
	return types.Notification{
		ID:      id,
		Title:   "t",
		Message: "m",
		Type:    types.NotificationTypeAnnouncement,
		Read:    read,
	}
}

func TestApplyPushUpsertsByID(t *testing.T) {
	s := NewStore(nil)

	s.ApplyPush(n(1, false))
	s.ApplyPush(n(2, false))
	// Re-delivery of id 1 after a reconnect, now with newer server state.
	updated := n(1, true)
	updated.Title = "updated"
	s.ApplyPush(updated)

	got := s.Notifications()
	if len(got) != 2 {
		t.Fatalf("collection has %d entries, want 2", len(got))
	}

	seen := map[int64]int{}
	for _, entry := range got {
		seen[entry.ID]++
		if entry.ID == 1 {
			if entry.Title != "updated" || !entry.Read {
				t.Errorf("entry 1 not replaced by newer push: %+v", entry)
			}
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("id %d appears %d times, want 1", id, count)
		}
	}
}

func TestApplyPushPrependsNewEntries(t *testing.T) {
	s := NewStore(nil)
	s.ApplyHydration([]types.Notification{n(1, true)})

	s.ApplyPush(n(2, false))

	got := s.Notifications()
	if len(got) != 2 {
		t.Fatalf("collection has %d entries, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("newest entry is id %d, want 2 at the front", got[0].ID)
	}
}

func TestUnreadCountIsDerived(t *testing.T) {
	s := NewStore(nil)

	if s.UnreadCount() != 0 {
		t.Errorf("empty store UnreadCount = %d, want 0", s.UnreadCount())
	}

	s.ApplyHydration([]types.Notification{n(1, false), n(2, true), n(3, false)})
	if got := s.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount = %d, want 2", got)
	}

	// Pushing an update flipping an entry to read changes the derived count.
	s.ApplyPush(n(3, true))
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount after push update = %d, want 1", got)
	}
}

func TestMarkAsReadUnknownIDIsNoOp(t *testing.T) {
	m := newFakeMutator()
	s := NewStore(m)
	s.ApplyHydration([]types.Notification{n(1, false)})

	s.MarkAsRead(context.Background(), 999)

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount = %d, want 1", got)
	}
	if m.markReadCount() != 0 {
		t.Errorf("server called %d times for unknown id, want 0", m.markReadCount())
	}
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	m := newFakeMutator()
	s := NewStore(m)
	s.ApplyHydration([]types.Notification{n(1, false)})

	// Double-click.
	s.MarkAsRead(context.Background(), 1)
	s.MarkAsRead(context.Background(), 1)
	m.waitForCall(t)
	s.Close() // drains any stragglers

	if m.markReadCount() != 1 {
		t.Errorf("server called %d times, want exactly 1", m.markReadCount())
	}
}

func TestMarkAsReadKeepsOptimisticStateOnServerFailure(t *testing.T) {
	m := newFakeMutator()
	m.err = errors.New("boom")
	s := NewStore(m)
	s.ApplyHydration([]types.Notification{n(1, false)})

	s.MarkAsRead(context.Background(), 1)
	m.waitForCall(t)

	got := s.Notifications()
	if !got[0].Read {
		t.Error("local read flag rolled back on server failure")
	}
	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", s.UnreadCount())
	}
}

func TestHydratePushMarkAllScenario(t *testing.T) {
	m := newFakeMutator()
	s := NewStore(m)

	s.ApplyHydration([]types.Notification{n(1, false), n(2, true)})
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("after hydration UnreadCount = %d, want 1", got)
	}

	s.ApplyPush(n(3, false))
	if got := s.UnreadCount(); got != 2 {
		t.Fatalf("after push UnreadCount = %d, want 2", got)
	}
	if got := len(s.Notifications()); got != 3 {
		t.Fatalf("collection has %d entries, want 3", got)
	}

	s.MarkAllAsRead(context.Background())
	m.waitForCall(t)

	if got := s.UnreadCount(); got != 0 {
		t.Errorf("after mark-all UnreadCount = %d, want 0", got)
	}
	for _, entry := range s.Notifications() {
		if !entry.Read {
			t.Errorf("entry %d still unread after mark-all", entry.ID)
		}
	}
}

func TestMarkAllAsReadWithNothingUnreadSkipsServer(t *testing.T) {
	m := newFakeMutator()
	s := NewStore(m)
	s.ApplyHydration([]types.Notification{n(1, true)})

	s.MarkAllAsRead(context.Background())
	s.Close()

	m.mu.Lock()
	calls := m.markAllCalls
	m.mu.Unlock()
	if calls != 0 {
		t.Errorf("server called %d times with nothing unread, want 0", calls)
	}
}

func TestApplyAfterCloseIsDiscarded(t *testing.T) {
	s := NewStore(nil)
	s.ApplyHydration([]types.Notification{n(1, false)})
	s.Close()

	s.ApplyPush(n(2, false))
	s.ApplyHydration([]types.Notification{n(3, false)})
	s.MarkAsRead(context.Background(), 1)

	if got := len(s.Notifications()); got != 0 {
		t.Errorf("closed store has %d entries, want 0", got)
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("closed store UnreadCount = %d, want 0", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewStore(nil)
	s.Close()
	s.Close()
}

func TestOnChangeFires(t *testing.T) {
	s := NewStore(nil)

	changes := 0
	s.OnChange(func() { changes++ })

	s.ApplyHydration([]types.Notification{n(1, false)})
	s.ApplyPush(n(2, false))
	s.MarkAsRead(context.Background(), 1)
	s.SetConnectionState(types.ConnectionConnecting)
	s.SetConnectionState(types.ConnectionConnecting) // no transition, no callback

	if changes != 4 {
		t.Errorf("OnChange fired %d times, want 4", changes)
	}
}

func TestConnectionStateTracking(t *testing.T) {
	s := NewStore(nil)

	if got := s.ConnectionState(); got != types.ConnectionDisconnected {
		t.Errorf("initial state = %q, want disconnected", got)
	}

	s.SetConnectionState(types.ConnectionConnecting)
	s.SetConnectionState(types.ConnectionConnected)
	if got := s.ConnectionState(); got != types.ConnectionConnected {
		t.Errorf("state = %q, want connected", got)
	}
}
