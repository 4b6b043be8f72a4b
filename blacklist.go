package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// TokenFingerprint is the key a Blacklist stores for token.
func TokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryBlacklist is a process local Blacklist. Entries are dropped once
// their expiry passes.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (b *MemoryBlacklist) Add(_ context.Context, token string, until time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweep()
	b.entries[TokenFingerprint(token)] = until
	return nil
}

func (b *MemoryBlacklist) Contains(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.entries[TokenFingerprint(token)]
	if !ok {
		return false, nil
	}
	if !until.IsZero() && !b.now().Before(until) {
		delete(b.entries, TokenFingerprint(token))
		return false, nil
	}
	return true, nil
}

// Len returns the number of live entries.
func (b *MemoryBlacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweep()
	return len(b.entries)
}

func (b *MemoryBlacklist) sweep() {
	now := b.now()
	for k, until := range b.entries {
		if !until.IsZero() && !now.Before(until) {
			delete(b.entries, k)
		}
	}
}
