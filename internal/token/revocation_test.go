package token

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevocationRegistry_AddContains(t *testing.T) {
	registry := NewRevocationRegistry()
	expiry := time.Now().Add(24 * time.Hour)

	assert.False(t, registry.Contains(42))

	registry.Add(42, expiry)
	assert.True(t, registry.Contains(42))
	assert.False(t, registry.Contains(43))

	// Re-adding is a no-op.
	registry.Add(42, expiry)
	assert.Equal(t, 1, registry.Len())
}

func TestRevocationRegistry_Prune(t *testing.T) {
	registry := NewRevocationRegistry()
	now := time.Now().UTC()

	registry.Add(1, now.Add(-time.Minute))
	registry.Add(2, now.Add(time.Hour))
	registry.Add(3, now)

	removed := registry.Prune(now)
	assert.Equal(t, 2, removed)
	assert.False(t, registry.Contains(1))
	assert.True(t, registry.Contains(2))
	assert.False(t, registry.Contains(3))
}

func TestRevocationRegistry_ConcurrentReadersAndWriters(t *testing.T) {
	registry := NewRevocationRegistry()
	expiry := time.Now().Add(24 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(base uint64) {
			defer wg.Done()
			for j := uint64(0); j < 100; j++ {
				registry.Add(base*1000+j, expiry)
			}
		}(uint64(i))
		go func() {
			defer wg.Done()
			for j := uint64(0); j < 1000; j++ {
				registry.Contains(j)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, registry.Len())
}
