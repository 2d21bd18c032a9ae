package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryReplayStoreCheckAndSet(t *testing.T) {
	store := NewMemoryReplayStore()
	ctx := context.Background()

	first, err := store.CheckAndSet(ctx, "evt_1", time.Minute)
	if err != nil || !first {
		t.Fatalf("first insert = (%v, %v), want (true, nil)", first, err)
	}

	second, err := store.CheckAndSet(ctx, "evt_1", time.Minute)
	if err != nil || second {
		t.Fatalf("duplicate insert = (%v, %v), want (false, nil)", second, err)
	}

	other, err := store.CheckAndSet(ctx, "evt_2", time.Minute)
	if err != nil || !other {
		t.Fatalf("distinct id = (%v, %v), want (true, nil)", other, err)
	}
}

func TestMemoryReplayStoreTTLExpiry(t *testing.T) {
	store := NewMemoryReplayStore()
	current := time.Unix(1736937000, 0)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if first, _ := store.CheckAndSet(ctx, "evt_1", 10*time.Minute); !first {
		t.Fatal("insert should succeed")
	}

	current = current.Add(5 * time.Minute)
	if dup, _ := store.CheckAndSet(ctx, "evt_1", 10*time.Minute); dup {
		t.Error("id must stay rejected inside the TTL")
	}

	current = current.Add(10 * time.Minute)
	if again, _ := store.CheckAndSet(ctx, "evt_1", 10*time.Minute); !again {
		t.Error("id must be accepted again after the TTL")
	}
}

func TestMemoryReplayStorePrunes(t *testing.T) {
	store := NewMemoryReplayStore()
	current := time.Unix(1736937000, 0)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < pruneEvery-1; i++ {
		store.CheckAndSet(ctx, fmt.Sprintf("old_%d", i), time.Second)
	}

	// Everything above is expired by now; the next insert crosses the
	// amortized sweep threshold.
	current = current.Add(time.Hour)
	store.CheckAndSet(ctx, "fresh", time.Minute)

	if got := store.Len(); got != 1 {
		t.Errorf("after sweep Len() = %d, want 1", got)
	}
}

func TestReplayGuard(t *testing.T) {
	guard := newReplayGuard("stripe", NewMemoryReplayStore(), DefaultTimestampWindow)
	ctx := context.Background()

	if err := guard.Check(ctx, "evt_1"); err != nil {
		t.Fatalf("first delivery rejected: %v", err)
	}

	err := guard.Check(ctx, "evt_1")
	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Stage != "replay" {
		t.Errorf("duplicate delivery: got %v, want replay SecurityError", err)
	}

	err = guard.Check(ctx, "")
	if !errors.As(err, &secErr) {
		t.Errorf("missing id: got %v, want SecurityError", err)
	}
}

func TestReplayGuardIsolatesProviders(t *testing.T) {
	store := NewMemoryReplayStore()
	stripe := newReplayGuard("stripe", store, DefaultTimestampWindow)
	polar := newReplayGuard("polar", store, DefaultTimestampWindow)
	ctx := context.Background()

	if err := stripe.Check(ctx, "evt_1"); err != nil {
		t.Fatal(err)
	}
	if err := polar.Check(ctx, "evt_1"); err != nil {
		t.Errorf("same id under a different provider must pass: %v", err)
	}
}

type failingStore struct{}

func (failingStore) CheckAndSet(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestReplayGuardStoreFailureIsTransient(t *testing.T) {
	guard := newReplayGuard("stripe", failingStore{}, DefaultTimestampWindow)

	err := guard.Check(context.Background(), "evt_1")
	if !IsTransient(err) {
		t.Errorf("store failure should be transient, got %v", err)
	}
}

func TestReplayGuardTTLCoversWindow(t *testing.T) {
	guard := newReplayGuard("stripe", NewMemoryReplayStore(), 300*time.Second)
	want := 2*300*time.Second + replayBuffer
	if got := guard.ttl(); got != want {
		t.Errorf("ttl() = %v, want %v", got, want)
	}
}
