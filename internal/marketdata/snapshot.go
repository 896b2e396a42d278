package marketdata

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the price set frozen at a contest's end, keyed by symbol.
// Every settlement retry prices against the same snapshot, so forced
// closes are reproducible no matter how long retries span.
type Snapshot struct {
	ContestID uuid.UUID        `json:"contest_id"`
	Prices    map[string]int64 `json:"prices"`
	TakenAt   time.Time        `json:"taken_at"`
}

// PriceOr returns the snapshot price for a symbol, or the fallback when
// the symbol never ticked before the freeze.
func (s *Snapshot) PriceOr(symbol string, fallback int64) int64 {
	if p, ok := s.Prices[symbol]; ok {
		return p
	}
	return fallback
}

// Snapshots freezes and caches one price snapshot per contest. The
// first Capture for a contest wins; later calls return the frozen copy.
type Snapshots struct {
	mu    sync.Mutex
	cache *Cache
	taken map[uuid.UUID]*Snapshot
}

func NewSnapshots(cache *Cache) *Snapshots {
	return &Snapshots{
		cache: cache,
		taken: make(map[uuid.UUID]*Snapshot),
	}
}

// Capture freezes current prices for the given symbols. Idempotent per
// contest: a retry gets the original snapshot, not fresher prices.
func (s *Snapshots) Capture(contestID uuid.UUID, symbols []string, now time.Time) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap, ok := s.taken[contestID]; ok {
		return snap
	}

	snap := &Snapshot{
		ContestID: contestID,
		Prices:    make(map[string]int64, len(symbols)),
		TakenAt:   now,
	}
	for _, sym := range symbols {
		if p, ok := s.cache.Get(sym); ok {
			snap.Prices[sym] = p
		}
	}

	s.taken[contestID] = snap
	return snap
}

// Forget drops a contest's snapshot after settlement completes.
func (s *Snapshots) Forget(contestID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.taken, contestID)
}
