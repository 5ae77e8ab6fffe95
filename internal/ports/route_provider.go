package ports

import (
	"context"

	"duty-route-service/internal/domain"
)

// Contract for retrieving point-to-point travel geometry, duration and
// distance from an external routing service.
type RouteProvider interface {
	// Route returns the travel leg between two coordinates.
	Route(ctx context.Context, origin, dest domain.Coordinates) (domain.Leg, error)
}
