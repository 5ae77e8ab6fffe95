package services

import (
	"errors"
	"fmt"
	"sort"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
	"duty-route-service/internal/timeclock"
)

// Waypoint is a named geographic point in the route geometry document.
type Waypoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// NextPoint is one onward waypoint with the travel geometry and duration
// from its predecessor. Coordinates are [lon, lat] pairs. Duration is empty
// when the segment granularity is unknown (school runs).
type NextPoint struct {
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Address          string      `json:"address"`
	Duration         string      `json:"duration,omitempty"`
	RouteCoordinates [][]float64 `json:"route_coordinates"`
}

// RouteRecord is one ordered element of the route geometry document.
type RouteRecord struct {
	StartingPoint Waypoint    `json:"starting_point"`
	NextPoints    []NextPoint `json:"next_points"`
}

var errNoGeometry = errors.New("composer: no usable trips or shape")

// routeStopJoin is a stop_times row enriched with its matched shape vertex
// index. It exists only during composition.
type routeStopJoin struct {
	domain.TripStop
	pos int
}

func lonLatPairs(pts []geom.Point) [][]float64 {
	out := make([][]float64, len(pts))
	for i, p := range pts {
		out[i] = []float64{p.Lon, p.Lat}
	}
	return out
}

// departureMinute parses a stop's departure, falling back to arrival.
// Unparsable rows yield zero so duration math degrades instead of failing.
func departureMinute(st domain.TripStop) timeclock.Minute {
	raw := st.Departure
	if raw == "" {
		raw = st.Arrival
	}
	m, err := timeclock.Parse(raw)
	if err != nil {
		return 0
	}
	return m
}

// joinAndOrder matches each stop onto its nearest shape vertex and re-sorts
// by that index, defending against stop_times rows that are not already in
// geographic order.
func joinAndOrder(stops []domain.TripStop, shape []geom.Point) []routeStopJoin {
	joins := make([]routeStopJoin, 0, len(stops))
	for _, st := range stops {
		pos := geom.NearestIndex(st.Coord, shape)
		if pos < 0 {
			continue
		}
		joins = append(joins, routeStopJoin{TripStop: st, pos: pos})
	}
	sort.SliceStable(joins, func(i, j int) bool { return joins[i].pos < joins[j].pos })
	return joins
}

func recordFromJoins(joins []routeStopJoin, shape []geom.Point) RouteRecord {
	first := joins[0]
	rec := RouteRecord{
		StartingPoint: Waypoint{
			Latitude:  first.Coord.Lat,
			Longitude: first.Coord.Lon,
			Address:   first.Name,
		},
		NextPoints: make([]NextPoint, 0, len(joins)-1),
	}

	prev := first
	for _, j := range joins[1:] {
		mins := int(departureMinute(j.TripStop)) - int(departureMinute(prev.TripStop))
		if mins < 0 {
			mins = 0
		}
		rec.NextPoints = append(rec.NextPoints, NextPoint{
			Latitude:         j.Coord.Lat,
			Longitude:        j.Coord.Lon,
			Address:          j.Name,
			Duration:         fmt.Sprintf("%.1f minutes", float64(mins)),
			RouteCoordinates: lonLatPairs(geom.Slice(shape, prev.pos, j.pos)),
		})
		prev = j
	}
	return rec
}

// ComposeTrip builds the route geometry record for a single trip.
func ComposeTrip(idx *domain.TableIndex, tripID string) (RouteRecord, error) {
	trip, ok := idx.Trip(tripID)
	if !ok {
		return RouteRecord{}, fmt.Errorf("compose trip %q: unknown trip", tripID)
	}
	stops := idx.TripStops(tripID)
	if len(stops) == 0 {
		return RouteRecord{}, fmt.Errorf("compose trip %q: %w", tripID, errNoGeometry)
	}
	shape := idx.Shape(trip.ShapeID)
	if len(shape) == 0 {
		return RouteRecord{}, fmt.Errorf("compose trip %q: shape %q has no vertices: %w", tripID, trip.ShapeID, errNoGeometry)
	}

	joins := joinAndOrder(stops, shape)
	if len(joins) == 0 {
		return RouteRecord{}, fmt.Errorf("compose trip %q: %w", tripID, errNoGeometry)
	}
	return recordFromJoins(joins, shape), nil
}

// ComposeRouteDirection builds the route geometry record for an aggregated
// route+direction: the dominant shape (most trips; lexicographically
// smallest shape ID on a tie) with every matching trip's stops merged
// against it, deduplicated by stop after geographic ordering.
func ComposeRouteDirection(idx *domain.TableIndex, routeID, direction string) (RouteRecord, error) {
	counts := make(map[string]int)
	var matching []string
	for _, tripID := range idx.TripIDs() {
		trip, _ := idx.Trip(tripID)
		if trip.RouteID != routeID || trip.Direction != direction {
			continue
		}
		if len(idx.TripStops(tripID)) == 0 {
			continue
		}
		matching = append(matching, tripID)
		counts[trip.ShapeID]++
	}
	if len(matching) == 0 {
		return RouteRecord{}, fmt.Errorf("compose route %q direction %q: %w", routeID, direction, errNoGeometry)
	}

	dominant := ""
	for shapeID, n := range counts {
		if dominant == "" || n > counts[dominant] || (n == counts[dominant] && shapeID < dominant) {
			dominant = shapeID
		}
	}
	shape := idx.Shape(dominant)
	if len(shape) == 0 {
		return RouteRecord{}, fmt.Errorf("compose route %q direction %q: shape %q has no vertices: %w", routeID, direction, dominant, errNoGeometry)
	}

	var merged []domain.TripStop
	for _, tripID := range matching {
		merged = append(merged, idx.TripStops(tripID)...)
	}

	joins := joinAndOrder(merged, shape)
	deduped := joins[:0]
	seen := make(map[string]struct{}, len(joins))
	for _, j := range joins {
		if _, ok := seen[j.StopID]; ok {
			continue
		}
		seen[j.StopID] = struct{}{}
		deduped = append(deduped, j)
	}
	if len(deduped) == 0 {
		return RouteRecord{}, fmt.Errorf("compose route %q direction %q: %w", routeID, direction, errNoGeometry)
	}
	return recordFromJoins(deduped, shape), nil
}
