package ports

import (
	"context"

	"duty-route-service/internal/domain"
)

// Port: a boundary for memoizing settled point-to-point legs. Keys come
// from domain.LegKey. The session cache is append-only: entries are never
// invalidated for the lifetime of a session.
type LegCache interface {
	Get(ctx context.Context, key string) (domain.Leg, bool, error)
	Put(ctx context.Context, key string, leg domain.Leg) error
}
