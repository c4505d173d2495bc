// Package ledger is the per-user record of open positions backing admission control.
package ledger

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"riskgate/internal/signal"
)

// Position is one open exposure for a user.
type Position struct {
	UserID     string
	Instrument string
	Direction  signal.Direction
	OpenedAt   time.Time
}

type positionKey struct {
	instrument string
	direction  signal.Direction
}

// Ledger tracks open positions in memory, keyed by user. All methods are safe
// for concurrent use, but the cap-check-then-write sequence is only atomic
// when the caller holds the user's lock (see UserLocks).
type Ledger struct {
	mu        sync.Mutex
	log       zerolog.Logger
	positions map[string]map[positionKey]Position
}

// New creates an empty ledger.
func New(log zerolog.Logger) *Ledger {
	return &Ledger{
		log:       log,
		positions: make(map[string]map[positionKey]Position),
	}
}

// OpenCount returns how many positions the user currently holds.
func (l *Ledger) OpenCount(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions[userID])
}

// HasOpen reports whether the user holds an open position on (instrument, direction).
func (l *Ledger) HasOpen(userID, instrument string, dir signal.Direction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.positions[userID][positionKey{instrument, dir}]
	return ok
}

// RecordOpen registers a new open position. At most one position may exist per
// (user, instrument, direction); a second open for the same key is rejected by
// admission before this call.
func (l *Ledger) RecordOpen(userID, instrument string, dir signal.Direction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byKey := l.positions[userID]
	if byKey == nil {
		byKey = make(map[positionKey]Position)
		l.positions[userID] = byKey
	}
	byKey[positionKey{instrument, dir}] = Position{
		UserID:     userID,
		Instrument: instrument,
		Direction:  dir,
		OpenedAt:   time.Now().UTC(),
	}
}

// RecordClose removes a position. Closing a position that does not exist is a
// logged no-op, not an error: close signals may arrive after an external
// liquidation already emptied the slot.
func (l *Ledger) RecordClose(userID, instrument string, dir signal.Direction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := positionKey{instrument, dir}
	byKey := l.positions[userID]
	if _, ok := byKey[key]; !ok {
		l.log.Debug().
			Str("user", userID).
			Str("instrument", instrument).
			Str("direction", string(dir)).
			Msg("close recorded for unknown position, ignoring")
		return false
	}
	delete(byKey, key)
	if len(byKey) == 0 {
		delete(l.positions, userID)
	}
	return true
}

// Snapshot returns a copy of every open position, for inspection and tests.
func (l *Ledger) Snapshot() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, byKey := range l.positions {
		for _, pos := range byKey {
			out = append(out, pos)
		}
	}
	return out
}
