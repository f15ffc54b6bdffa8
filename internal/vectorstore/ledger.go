package vectorstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// LedgerEntry records when a chunk was indexed for a user.
type LedgerEntry struct {
	UserID    int64
	ChunkID   string
	Link      string
	IndexedAt time.Time
}

// Ledger tracks indexed chunks so the retention policy can evict them.
type Ledger interface {
	Record(ctx context.Context, entries []LedgerEntry) error
	// Expired returns entries indexed before cutoff.
	Expired(ctx context.Context, cutoff time.Time) ([]LedgerEntry, error)
	// Overflow returns a user's entries beyond the newest keep, oldest first.
	Overflow(ctx context.Context, userID int64, keep int) ([]LedgerEntry, error)
	Remove(ctx context.Context, chunkIDs []string) error
	RemoveUser(ctx context.Context, userID int64) error
	// Users returns the ids of users with at least one entry, ascending.
	Users(ctx context.Context) ([]int64, error)
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]LedgerEntry
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]LedgerEntry)}
}

// Record implements Ledger.
func (l *MemoryLedger) Record(_ context.Context, entries []LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		l.entries[e.ChunkID] = e
	}
	return nil
}

// Expired implements Ledger.
func (l *MemoryLedger) Expired(_ context.Context, cutoff time.Time) ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LedgerEntry
	for _, e := range l.entries {
		if e.IndexedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// Overflow implements Ledger.
func (l *MemoryLedger) Overflow(_ context.Context, userID int64, keep int) ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var mine []LedgerEntry
	for _, e := range l.entries {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	if len(mine) <= keep {
		return nil, nil
	}
	sortOldestFirst(mine)
	return mine[:len(mine)-keep], nil
}

// Remove implements Ledger.
func (l *MemoryLedger) Remove(_ context.Context, chunkIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range chunkIDs {
		delete(l.entries, id)
	}
	return nil
}

// RemoveUser implements Ledger.
func (l *MemoryLedger) RemoveUser(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, e := range l.entries {
		if e.UserID == userID {
			delete(l.entries, id)
		}
	}
	return nil
}

// Users implements Ledger.
func (l *MemoryLedger) Users(_ context.Context) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[int64]struct{})
	var users []int64
	for _, e := range l.entries {
		if _, ok := seen[e.UserID]; !ok {
			seen[e.UserID] = struct{}{}
			users = append(users, e.UserID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

// Len returns the number of recorded chunks.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func sortOldestFirst(entries []LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IndexedAt.Equal(entries[j].IndexedAt) {
			return entries[i].ChunkID < entries[j].ChunkID
		}
		return entries[i].IndexedAt.Before(entries[j].IndexedAt)
	})
}
