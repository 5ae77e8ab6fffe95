package domain

import (
	"fmt"

	"duty-route-service/internal/geom"
)

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Point converts to the (lat, lon) form used by the geometry matcher.
func (c Coordinates) Point() geom.Point { return geom.Point{Lat: c.Lat, Lon: c.Lon} }

// LegKey is the memoization key for a point-to-point lookup between two
// coordinates: "origin_lon,origin_lat|dest_lon,dest_lat".
func LegKey(origin, dest Coordinates) string {
	return fmt.Sprintf("%g,%g|%g,%g", origin.Lon, origin.Lat, dest.Lon, dest.Lat)
}

// Leg is the settled result of an external point-to-point lookup.
type Leg struct {
	Polyline        []geom.Point
	DurationSeconds int
	DistanceMeters  int
}
