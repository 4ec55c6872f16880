package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"solana-token-exchange/internal/domain"
	"solana-token-exchange/internal/storage"
)

func newActivity(id, owner string, at time.Time) *domain.Activity {
	return &domain.Activity{
		ID:        id,
		Kind:      domain.ActivityMint,
		Status:    domain.ActivitySucceeded,
		Signature: "sig-" + id,
		Mint:      "mint123",
		Owner:     owner,
		Amount:    "100",
		Network:   "devnet",
		CreatedAt: at,
	}
}

func TestActivityStore_InsertAndGet(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	a := newActivity("a1", "owner1", time.UnixMilli(1704067200000))
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Signature != a.Signature {
		t.Errorf("Signature mismatch: got %s, want %s", got.Signature, a.Signature)
	}

	// Mutating the returned copy must not affect the store.
	got.Status = domain.ActivityFailed
	again, _ := store.GetByID(ctx, "a1")
	if again.Status != domain.ActivitySucceeded {
		t.Errorf("stored activity was mutated: %s", again.Status)
	}
}

func TestActivityStore_DuplicateKey(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	a := newActivity("a1", "owner1", time.Now())
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestActivityStore_InvalidInput(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	bad := []*domain.Activity{
		nil,
		{Kind: domain.ActivityMint, Status: domain.ActivitySucceeded, CreatedAt: time.Now()},
		{ID: "x", Status: domain.ActivitySucceeded, CreatedAt: time.Now()},
		{ID: "x", Kind: domain.ActivityMint, Status: "pending", CreatedAt: time.Now()},
		{ID: "x", Kind: domain.ActivityMint, Status: domain.ActivityFailed},
	}
	for i, a := range bad {
		if err := store.Insert(ctx, a); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestActivityStore_NotFound(t *testing.T) {
	_, err := NewActivityStore().GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActivityStore_ListNewestFirst(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()
	base := time.UnixMilli(1704067200000)

	store.Insert(ctx, newActivity("old", "owner1", base))
	store.Insert(ctx, newActivity("new", "owner2", base.Add(2*time.Second)))
	store.Insert(ctx, newActivity("mid", "owner1", base.Add(time.Second)))

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(all))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if all[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, all[i].ID, want)
		}
	}

	limited, _ := store.List(ctx, 1)
	if len(limited) != 1 || limited[0].ID != "new" {
		t.Errorf("limit 1: got %v", limited)
	}

	owned, _ := store.ListByOwner(ctx, "owner1", 10)
	if len(owned) != 2 || owned[0].ID != "mid" || owned[1].ID != "old" {
		t.Errorf("ListByOwner: unexpected result %v", owned)
	}
}

func TestActivityStore_ConcurrentInsert(t *testing.T) {
	store := NewActivityStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Insert(ctx, newActivity(fmt.Sprintf("a%d", i), "owner", time.Now()))
		}(i)
	}
	wg.Wait()

	all, _ := store.List(ctx, storage.MaxListLimit)
	if len(all) != 50 {
		t.Errorf("expected 50 activities, got %d", len(all))
	}
}
