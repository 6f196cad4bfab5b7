package poe

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/guilamu/gravity-extract/internal/domain"
)

// modelCache holds per-API-key model catalogs for a bounded TTL so repeated
// editor loads do not hammer the provider. Keys are hashed before use as
// cache keys; the raw credential is never stored.
type modelCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	models  []domain.ModelInfo
	expires time.Time
}

func newModelCache(ttl time.Duration) *modelCache {
	return &modelCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func (c *modelCache) get(apiKey string) ([]domain.ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[cacheKey(apiKey)]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	out := make([]domain.ModelInfo, len(entry.models))
	copy(out, entry.models)
	return out, true
}

func (c *modelCache) put(apiKey string, models []domain.ModelInfo) {
	stored := make([]domain.ModelInfo, len(models))
	copy(stored, models)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(apiKey)] = cacheEntry{
		models:  stored,
		expires: c.now().Add(c.ttl),
	}
}

func (c *modelCache) invalidate(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(apiKey))
}
