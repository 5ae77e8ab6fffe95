package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"duty-route-service/internal/domain"
)

// SqliteLegCache is the SQLite variant of the persistent leg cache, for
// single-node runs without a Postgres instance.
type SqliteLegCache struct {
	DB *sql.DB
}

func NewSqliteLegCache(db *sql.DB) *SqliteLegCache {
	return &SqliteLegCache{DB: db}
}

func (s *SqliteLegCache) Get(ctx context.Context, key string) (domain.Leg, bool, error) {
	if s.DB == nil {
		return domain.Leg{}, false, errors.New("leg cache: db is nil")
	}
	if key == "" {
		return domain.Leg{}, false, errors.New("get leg cache: key must not be empty")
	}

	q := `
	SELECT polyline, distance_meters, duration_seconds
    FROM leg_cache
    WHERE leg_key = ?;
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

func (s *SqliteLegCache) Put(ctx context.Context, key string, leg domain.Leg) error {
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
	INSERT OR REPLACE INTO leg_cache (leg_key, polyline, distance_meters, duration_seconds)
    VALUES (?, ?, ?, ?);
	`
	if _, err := s.DB.ExecContext(ctx, q, key, raw, leg.DistanceMeters, leg.DurationSeconds); err != nil {
		return fmt.Errorf("insert leg cache key=%q: %w", key, err)
	}
	return nil
}

// InitSchema creates the leg cache table. Safe to call repeatedly.
func (s *SqliteLegCache) InitSchema(ctx context.Context) error {
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
