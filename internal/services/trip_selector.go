package services

import (
	"duty-route-service/internal/domain"
	"duty-route-service/internal/timeclock"
)

// TripMatch is the outcome of a successful trip selection.
type TripMatch struct {
	TripID string
	Depart timeclock.Minute
	Arrive timeclock.Minute
}

// SelectTrip finds the earliest eligible scheduled trip on a route between
// two named endpoints.
//
// A candidate must match the route, depart from depName and arrive at
// destName (exact endpoint-name equality), depart inside the roster window
// (when one is given) and not before notBefore. Departure is the first
// stop's departure time falling back to its arrival; arrival is the last
// stop's arrival falling back to its departure. The winner is the candidate
// with the smallest departure; equal departures break on the smaller trip
// identifier so selection does not depend on table row order.
//
// The second return value is false when no candidate survives. Callers
// treat that as "clear the resolved fields", not as a failure.
func SelectTrip(
	idx *domain.TableIndex,
	routeID string,
	depName string,
	destName string,
	window *timeclock.Window,
	notBefore timeclock.Minute,
) (TripMatch, bool) {
	var best TripMatch
	found := false

	for _, tripID := range idx.TripIDs() {
		trip, _ := idx.Trip(tripID)
		if trip.RouteID != routeID {
			continue
		}

		ep, ok := idx.Endpoints(tripID)
		if !ok || ep.StartName != depName || ep.EndName != destName {
			continue
		}

		stops := idx.TripStops(tripID)
		if len(stops) == 0 {
			continue
		}

		first, last := stops[0], stops[len(stops)-1]
		depRaw := first.Departure
		if depRaw == "" {
			depRaw = first.Arrival
		}
		arrRaw := last.Arrival
		if arrRaw == "" {
			arrRaw = last.Departure
		}

		dep, err := timeclock.Parse(depRaw)
		if err != nil {
			continue
		}
		arr, err := timeclock.Parse(arrRaw)
		if err != nil {
			continue
		}

		if window != nil && !window.Contains(dep) {
			continue
		}
		if dep < notBefore {
			continue
		}

		// TripIDs iterate in sorted order, so a strict comparison gives the
		// smallest-trip-ID tie-break for free.
		if !found || dep < best.Depart {
			best = TripMatch{TripID: tripID, Depart: dep, Arrive: arr}
			found = true
		}
	}

	return best, found
}
