package notify

import (
	"context"
	"sync"
	"time"
)

// MemoryFeed keeps notifications in process until they expire.
type MemoryFeed struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
}

// NewMemoryFeed creates a feed whose notifications live for ttl.
func NewMemoryFeed(ttl time.Duration) *MemoryFeed {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryFeed{ttl: ttl, now: time.Now}
}

// Compile-time interface check.
var _ Feed = (*MemoryFeed)(nil)

// Send stores n, filling its id and timestamps.
func (f *MemoryFeed) Send(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stamped := New(n.Level, n.Message, f.now(), f.ttl)
	f.prune(stamped.CreatedAt)
	f.items = append(f.items, stamped)
	return nil
}

// Active returns unexpired notifications, oldest first.
func (f *MemoryFeed) Active(_ context.Context) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prune(f.now())
	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *MemoryFeed) prune(now time.Time) {
	kept := f.items[:0]
	for _, n := range f.items {
		if n.ExpiresAt.After(now) {
			kept = append(kept, n)
		}
	}
	f.items = kept
}
