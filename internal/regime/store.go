// Package regime tracks the market sentiment index and the trade directions it permits.
package regime

import (
	"sync"
	"time"

	"riskgate/internal/metrics"
	"riskgate/internal/signal"
)

// Fixed gating thresholds over the 0-100 sentiment index. Extreme fear only
// admits longs, extreme greed only shorts, the neutral band admits both.
const (
	FearCeiling  = 25.0
	GreedFloor   = 75.0
	DefaultIndex = 50.0
)

// Snapshot is one consistent reading of the store. A decision must gate
// against a single snapshot, never against repeated store reads.
type Snapshot struct {
	Index     float64
	Permitted []signal.Direction
	UpdatedAt time.Time
}

// Permits reports whether the snapshot admits the given direction.
func (s Snapshot) Permits(dir signal.Direction) bool {
	for _, d := range s.Permitted {
		if d == dir {
			return true
		}
	}
	return false
}

// Store holds the latest sentiment reading. Mutated only by the feed,
// read-only to the decision pipeline.
type Store struct {
	mu        sync.RWMutex
	index     float64
	updatedAt time.Time
}

// NewStore starts at the neutral index so a cold engine admits both directions.
func NewStore() *Store {
	return &Store{index: DefaultIndex, updatedAt: time.Now().UTC()}
}

// Update replaces the current index reading.
func (s *Store) Update(index float64) {
	s.mu.Lock()
	s.index = index
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
	metrics.RegimeIndex.Set(index)
}

// Snapshot returns the current index with its derived permission set.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Index:     s.index,
		Permitted: permittedDirections(s.index),
		UpdatedAt: s.updatedAt,
	}
}

func permittedDirections(index float64) []signal.Direction {
	switch {
	case index <= FearCeiling:
		return []signal.Direction{signal.Long}
	case index >= GreedFloor:
		return []signal.Direction{signal.Short}
	default:
		return []signal.Direction{signal.Long, signal.Short}
	}
}
