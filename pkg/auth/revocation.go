package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationList is a process-local RevocationList. It is lost on
// restart, so servers use a database or Redis backed list and this one backs
// tests.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty in-memory revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke records jti until ttl elapses.
func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, k)
		}
	}
	l.entries[jti] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether jti is revoked and not yet expired.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.entries[jti]
	return ok && l.now().Before(exp), nil
}
