package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"studysphere-tracker/internal/domain"
)

// PassageLoader fetches the passage catalog from a backing store.
type PassageLoader interface {
	LoadPassages(ctx context.Context) ([]domain.Passage, error)
}

const catalogKey = "passages"

// PassageCache caches the catalog with TTL to avoid re-reading it for every
// progress report. A non-positive TTL disables caching.
type PassageCache struct {
	loader PassageLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	passages  []domain.Passage
	expiresAt time.Time
}

func NewPassageCache(loader PassageLoader, ttl time.Duration) *PassageCache {
	return &PassageCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PassageCache) Passages(ctx context.Context) ([]domain.Passage, error) {
	if c.ttl <= 0 {
		return c.loader.LoadPassages(ctx)
	}
	if passages, ok := c.fresh(c.clock()); ok {
		return passages, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		now := c.clock()
		if passages, ok := c.fresh(now); ok {
			return passages, nil
		}

		passages, err := c.loader.LoadPassages(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.passages = passages
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return passages, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Passage), nil
}

// Invalidate drops the cached catalog, e.g. after an import.
func (c *PassageCache) Invalidate() {
	c.mu.Lock()
	c.passages = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *PassageCache) fresh(now time.Time) ([]domain.Passage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.expiresAt.After(now) {
		return c.passages, true
	}
	return nil, false
}

// StaticPassageLoader is backed by a fixed slice (useful for tests/demos).
type StaticPassageLoader struct {
	passages []domain.Passage
}

func NewStaticPassageLoader(passages []domain.Passage) *StaticPassageLoader {
	return &StaticPassageLoader{passages: passages}
}

func (l *StaticPassageLoader) LoadPassages(context.Context) ([]domain.Passage, error) {
	return l.passages, nil
}

// Passages lets the static loader act as a catalog directly.
func (l *StaticPassageLoader) Passages(ctx context.Context) ([]domain.Passage, error) {
	return l.LoadPassages(ctx)
}

func (c *PassageCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
