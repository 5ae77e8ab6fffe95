package cache

import (
	"context"
	"fmt"

	"github.com/bluele/gcache"

	"duty-route-service/internal/domain"
)

// MemoryLegCache is the session memo cache: an in-process LRU holding
// resolved legs for the lifetime of the service. Entries are only ever
// added, never invalidated; eviction is capacity pressure only.
type MemoryLegCache struct {
	c gcache.Cache
}

func NewMemoryLegCache(size int) *MemoryLegCache {
	if size <= 0 {
		size = 4096
	}
	return &MemoryLegCache{c: gcache.New(size).LRU().Build()}
}

func (m *MemoryLegCache) Get(ctx context.Context, key string) (domain.Leg, bool, error) {
	v, err := m.c.Get(key)
	if err != nil {
		if err == gcache.KeyNotFoundError {
			return domain.Leg{}, false, nil
		}
		return domain.Leg{}, false, fmt.Errorf("memory leg cache get %q: %w", key, err)
	}
	leg, ok := v.(domain.Leg)
	if !ok {
		return domain.Leg{}, false, fmt.Errorf("memory leg cache get %q: unexpected value type %T", key, v)
	}
	return leg, true, nil
}

func (m *MemoryLegCache) Put(ctx context.Context, key string, leg domain.Leg) error {
	if err := m.c.Set(key, leg); err != nil {
		return fmt.Errorf("memory leg cache put %q: %w", key, err)
	}
	return nil
}
