package cache

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
)

var testLeg = domain.Leg{
	Polyline:        []geom.Point{{Lat: 0, Lon: 2}, {Lat: 1, Lon: 3}, {Lat: 5, Lon: 5}},
	DistanceMeters:  9000,
	DurationSeconds: 1200,
}

func TestMemoryLegCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryLegCache(8)

	if _, ok, err := c.Get(ctx, "2,0|5,5"); err != nil || ok {
		t.Fatalf("empty cache get = ok=%v err=%v, want miss", ok, err)
	}

	if err := c.Put(ctx, "2,0|5,5", testLeg); err != nil {
		t.Fatalf("put: %v", err)
	}

	leg, ok, err := c.Get(ctx, "2,0|5,5")
	if err != nil || !ok {
		t.Fatalf("get after put = ok=%v err=%v, want hit", ok, err)
	}
	if leg.DurationSeconds != 1200 || len(leg.Polyline) != 3 {
		t.Fatalf("got %+v, want the stored leg", leg)
	}
}

func TestSqliteLegCacheRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	c := NewSqliteLegCache(db)
	if err := c.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	if _, ok, err := c.Get(ctx, "2,0|5,5"); err != nil || ok {
		t.Fatalf("empty cache get = ok=%v err=%v, want miss", ok, err)
	}

	if err := c.Put(ctx, "2,0|5,5", testLeg); err != nil {
		t.Fatalf("put: %v", err)
	}

	leg, ok, err := c.Get(ctx, "2,0|5,5")
	if err != nil || !ok {
		t.Fatalf("get after put = ok=%v err=%v, want hit", ok, err)
	}
	if leg.DistanceMeters != 9000 {
		t.Fatalf("meters = %d, want 9000", leg.DistanceMeters)
	}
	if len(leg.Polyline) != 3 || leg.Polyline[2].Lon != 5 {
		t.Fatalf("polyline = %v, want the stored vertices", leg.Polyline)
	}

	// Same key overwrites.
	updated := testLeg
	updated.DurationSeconds = 900
	if err := c.Put(ctx, "2,0|5,5", updated); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	leg, _, _ = c.Get(ctx, "2,0|5,5")
	if leg.DurationSeconds != 900 {
		t.Fatalf("seconds after overwrite = %d, want 900", leg.DurationSeconds)
	}
}

// failingLegCache simulates a broken persistent tier.
type failingLegCache struct{}

func (failingLegCache) Get(context.Context, string) (domain.Leg, bool, error) {
	return domain.Leg{}, false, errors.New("down")
}

func (failingLegCache) Put(context.Context, string, domain.Leg) error {
	return errors.New("down")
}

func TestTieredLegCachePromotesSlowHits(t *testing.T) {
	ctx := context.Background()
	fast := NewMemoryLegCache(8)
	slow := NewMemoryLegCache(8)
	tiered := NewTieredLegCache(fast, slow)

	if err := slow.Put(ctx, "k", testLeg); err != nil {
		t.Fatalf("seed slow tier: %v", err)
	}

	leg, ok, err := tiered.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("tiered get = ok=%v err=%v, want slow-tier hit", ok, err)
	}
	if leg.DurationSeconds != 1200 {
		t.Fatalf("seconds = %d, want 1200", leg.DurationSeconds)
	}

	// The hit must now be served by the fast tier directly.
	if _, ok, _ := fast.Get(ctx, "k"); !ok {
		t.Fatalf("slow-tier hit was not promoted")
	}
}

func TestTieredLegCacheDegradesWhenSlowTierFails(t *testing.T) {
	ctx := context.Background()
	fast := NewMemoryLegCache(8)
	tiered := NewTieredLegCache(fast, failingLegCache{})

	if err := tiered.Put(ctx, "k", testLeg); err != nil {
		t.Fatalf("put must succeed on the fast tier alone: %v", err)
	}
	if _, ok, err := tiered.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("tiered get = ok=%v err=%v, want fast-tier hit", ok, err)
	}
	if _, ok, err := tiered.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("miss with a failing slow tier = ok=%v err=%v, want clean miss", ok, err)
	}
}
