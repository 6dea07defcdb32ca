package token

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RevocationRegistry is the process-wide set of access-token hashes that must
// be rejected despite a valid signature and unexpired claims. Populated on
// logout, consulted on every authorization check, reset on restart.
//
// Entries carry the natural expiry of the token they revoke so the registry
// can be pruned once the token would have been rejected as expired anyway.
type RevocationRegistry struct {
	mu      sync.RWMutex
	revoked map[uint64]time.Time
}

func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{revoked: map[uint64]time.Time{}}
}

// Add records a revoked token hash. Re-adding the same hash is a no-op.
func (r *RevocationRegistry) Add(hash uint64, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.revoked[hash]; !exists {
		r.revoked[hash] = expiresAt
	}
}

// Contains is the hot path, called by the auth guard on every protected
// request. Readers do not block each other.
func (r *RevocationRegistry) Contains(hash uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, revoked := r.revoked[hash]
	return revoked
}

// Prune drops entries whose underlying token has expired. Revoking an
// already-expired token is meaningless, so removal is safe.
func (r *RevocationRegistry) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for hash, expiresAt := range r.revoked {
		if !expiresAt.After(now) {
			delete(r.revoked, hash)
			removed++
		}
	}
	return removed
}

// Len reports the current number of revoked entries.
func (r *RevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}

// StartPruneTicker prunes the registry on an interval until ctx is cancelled.
func (r *RevocationRegistry) StartPruneTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Prune(time.Now().UTC()); removed > 0 {
				slog.Info("pruned revocation registry", "removed", removed, "remaining", r.Len())
			}
		}
	}
}
