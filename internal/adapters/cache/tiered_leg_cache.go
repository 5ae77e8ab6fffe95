package cache

import (
	"context"
	"log"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/ports"
)

// TieredLegCache layers the session memo over a persistent store: reads
// hit the fast tier first and promote on a slow-tier hit, writes go to
// both. A slow-tier failure degrades to the fast tier instead of failing
// the lookup.
type TieredLegCache struct {
	Fast ports.LegCache
	Slow ports.LegCache
}

func NewTieredLegCache(fast, slow ports.LegCache) *TieredLegCache {
	return &TieredLegCache{Fast: fast, Slow: slow}
}

func (t *TieredLegCache) Get(ctx context.Context, key string) (domain.Leg, bool, error) {
	leg, ok, err := t.Fast.Get(ctx, key)
	if err != nil {
		return domain.Leg{}, false, err
	}
	if ok {
		return leg, true, nil
	}

	leg, ok, err = t.Slow.Get(ctx, key)
	if err != nil {
		log.Printf("persistent leg cache read failed key=%s err=%v", key, err)
		return domain.Leg{}, false, nil
	}
	if !ok {
		return domain.Leg{}, false, nil
	}

	if err := t.Fast.Put(ctx, key, leg); err != nil {
		log.Printf("leg cache promote failed key=%s err=%v", key, err)
	}
	return leg, true, nil
}

func (t *TieredLegCache) Put(ctx context.Context, key string, leg domain.Leg) error {
	if err := t.Slow.Put(ctx, key, leg); err != nil {
		log.Printf("persistent leg cache write failed key=%s err=%v", key, err)
	}
	return t.Fast.Put(ctx, key, leg)
}
