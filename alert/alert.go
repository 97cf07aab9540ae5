// Package alert raises passive, non-blocking alerts for newly delivered
// notifications.
package alert

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/types"
)

// Alerter surfaces a passive alert for a delivered notification. An Alerter
// must never block and must never panic into the caller; delivery is
// best-effort.
type Alerter interface {
	Alert(n types.Notification)
}

// Func adapts a function to the Alerter interface.
type Func func(n types.Notification)

// Alert implements Alerter.
func (f Func) Alert(n types.Notification) {
	f(n)
}

// Discard is an Alerter that does nothing.
var Discard Alerter = Func(func(types.Notification) {})

// LogAlerter writes alerts to the structured log. It is the default host
// integration; environments with a native notification surface can supply
// their own Alerter.
type LogAlerter struct {
	Logger *zerolog.Logger
}

// Alert implements Alerter.
func (a *LogAlerter) Alert(n types.Notification) {
	logger := a.Logger
	if logger == nil {
		logger = &log.Logger
	}
	logger.Info().
		Int64("id", n.ID).
		Str("type", string(n.Type)).
		Str("title", n.Title).
		Msg(n.Message)
}

// Deduper wraps an Alerter and suppresses repeat alerts for the same
// notification id, so re-delivery after a reconnect does not produce
// duplicate alerts.
type Deduper struct {
	next Alerter

	mu   sync.Mutex
	seen map[int64]struct{}
}

// NewDeduper creates a Deduper in front of next.
func NewDeduper(next Alerter) *Deduper {
	return &Deduper{
		next: next,
		seen: make(map[int64]struct{}),
	}
}

// Alert implements Alerter. The first alert per id passes through; later
// ones are dropped.
func (d *Deduper) Alert(n types.Notification) {
	d.mu.Lock()
	_, dup := d.seen[n.ID]
	if !dup {
		d.seen[n.ID] = struct{}{}
	}
	d.mu.Unlock()

	if dup {
		log.Debug().Int64("id", n.ID).Msg("Suppressing duplicate alert")
		return
	}
	d.next.Alert(n)
}
