package payment

import (
	"context"
	"sync"
	"time"
)

// replayBuffer is added on top of window×2 when computing the id cache
// TTL, covering clock drift at the window edges.
const replayBuffer = 60 * time.Second

// ReplayStore records webhook ids for a bounded time. CheckAndSet must be
// atomic: concurrent duplicate delivery is exactly the threat being
// defended against. It returns true when the id was not seen before.
type ReplayStore interface {
	CheckAndSet(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// MemoryReplayStore is the single-process ReplayStore. Expired entries are
// pruned amortized on insert rather than by a timer, which bounds memory
// without background goroutines.
type MemoryReplayStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // id → expiry
	inserts int

	// now is swappable for tests.
	now func() time.Time
}

func NewMemoryReplayStore() *MemoryReplayStore {
	return &MemoryReplayStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// pruneEvery is the insert interval between amortized sweeps.
const pruneEvery = 256

func (s *MemoryReplayStore) CheckAndSet(_ context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	expiry, seen := s.entries[id]
	if seen && now.Before(expiry) {
		return false, nil
	}

	s.entries[id] = now.Add(ttl)
	s.inserts++
	if s.inserts%pruneEvery == 0 {
		for k, exp := range s.entries {
			if now.After(exp) {
				delete(s.entries, k)
			}
		}
	}

	return true, nil
}

// Len reports the current entry count, pruned or not.
func (s *MemoryReplayStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// replayGuard is the per-adapter idempotency check over a shared store.
type replayGuard struct {
	provider string
	store    ReplayStore
	window   time.Duration
}

func newReplayGuard(provider string, store ReplayStore, window time.Duration) *replayGuard {
	if window <= 0 {
		window = DefaultTimestampWindow
	}
	return &replayGuard{provider: provider, store: store, window: window}
}

func (g *replayGuard) ttl() time.Duration {
	return g.window*2 + replayBuffer
}

// Check records the webhook id and rejects ids already seen within the TTL.
func (g *replayGuard) Check(ctx context.Context, webhookID string) error {
	if webhookID == "" {
		return &SecurityError{Provider: g.provider, Stage: "replay", Reason: "missing webhook id"}
	}

	first, err := g.store.CheckAndSet(ctx, g.provider+":"+webhookID, g.ttl())
	if err != nil {
		return &TransientError{Provider: g.provider, Err: err}
	}
	if !first {
		return &SecurityError{Provider: g.provider, Stage: "replay", Reason: "webhook id already processed"}
	}

	return nil
}
