package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
	"duty-route-service/internal/platform/obs"
)

// SQLLegCache is a Postgres-backed cache for resolved point-to-point legs.
// Keys are expected to be consistent (the domain leg key format) and the
// polyline is stored as a JSON array of [lon, lat] pairs.
type SQLLegCache struct {
	DB *sql.DB
}

func NewSQLLegCache(db *sql.DB) *SQLLegCache {
	return &SQLLegCache{DB: db}
}

func encodePolyline(line []geom.Point) ([]byte, error) {
	pairs := make([][]float64, len(line))
	for i, p := range line {
		pairs[i] = []float64{p.Lon, p.Lat}
	}
	return json.Marshal(pairs)
}

func decodePolyline(raw []byte) ([]geom.Point, error) {
	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	line := make([]geom.Point, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("polyline vertex has %d elements", len(pair))
		}
		line = append(line, geom.Point{Lon: pair[0], Lat: pair[1]})
	}
	return line, nil
}

func (s *SQLLegCache) Get(ctx context.Context, key string) (_ domain.Leg, _ bool, err error) {
	defer obs.Time(ctx, "leg.cache.Get")(&err)

	if s.DB == nil {
		return domain.Leg{}, false, errors.New("leg cache: db is nil")
	}
	if key == "" {
		return domain.Leg{}, false, errors.New("get leg cache: key must not be empty")
	}

	q := `
	SELECT polyline, distance_meters, duration_seconds
    FROM leg_cache
    WHERE leg_key = $1;
	`

	var raw []byte
	var meters, seconds int
	switch err := s.DB.QueryRowContext(ctx, q, key).Scan(&raw, &meters, &seconds); {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Leg{}, false, nil
	case err != nil:
		return domain.Leg{}, false, fmt.Errorf("get leg cache: query leg_cache table: %w", err)
	}

	line, err := decodePolyline(raw)
	if err != nil {
		return domain.Leg{}, false, fmt.Errorf("get leg cache: decode polyline for %q: %w", key, err)
	}

	return domain.Leg{Polyline: line, DistanceMeters: meters, DurationSeconds: seconds}, true, nil
}

func (s *SQLLegCache) Put(ctx context.Context, key string, leg domain.Leg) error {
	if s.DB == nil {
		return errors.New("leg cache: db is nil")
	}
	if key == "" {
		return errors.New("insert leg cache: key must not be empty")
	}

	raw, err := encodePolyline(leg.Polyline)
	if err != nil {
		return fmt.Errorf("insert leg cache: encode polyline for %q: %w", key, err)
	}

	q := `
	INSERT INTO leg_cache (leg_key, polyline, distance_meters, duration_seconds)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (leg_key) DO UPDATE
	SET polyline = EXCLUDED.polyline,
		distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds;
	`
	if _, err := s.DB.ExecContext(ctx, q, key, raw, leg.DistanceMeters, leg.DurationSeconds); err != nil {
		return fmt.Errorf("insert leg cache key=%q: %w", key, err)
	}
	return nil
}

// InitSchema creates the leg cache table. Safe to call repeatedly.
func (s *SQLLegCache) InitSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("init leg cache schema: db is nil")
	}

	q := `
	CREATE TABLE IF NOT EXISTS leg_cache (
        leg_key TEXT PRIMARY KEY,
        polyline TEXT NOT NULL,
        distance_meters INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL
    );
	`
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init leg cache schema: %w", err)
	}
	return nil
}
