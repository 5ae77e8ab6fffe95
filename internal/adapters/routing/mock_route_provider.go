package routing

import (
	"context"
	"math"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
)

// MockRouteProvider serves straight-line legs at a fixed speed. It exists
// for local runs without an ORS key.
type MockRouteProvider struct {
	// MetersPerSecond defaults to 10 (36 km/h) when zero.
	MetersPerSecond float64
}

func (p *MockRouteProvider) Route(ctx context.Context, origin, dest domain.Coordinates) (domain.Leg, error) {
	speed := p.MetersPerSecond
	if speed <= 0 {
		speed = 10
	}

	// Equirectangular approximation; fine at duty-planning distances.
	const metersPerDegree = 111320.0
	dx := (dest.Lon - origin.Lon) * metersPerDegree * math.Cos((origin.Lat+dest.Lat)/2*math.Pi/180)
	dy := (dest.Lat - origin.Lat) * metersPerDegree
	meters := math.Hypot(dx, dy)

	return domain.Leg{
		Polyline:        []geom.Point{origin.Point(), dest.Point()},
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(meters / speed)),
	}, nil
}
