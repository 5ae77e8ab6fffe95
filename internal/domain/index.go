package domain

import (
	"sort"
	"strconv"

	"duty-route-service/internal/geom"
)

// TripEndpoints records the stop at the minimum and maximum sequence number
// of a trip, derived once per load and reused by every "departs from /
// arrives at" lookup.
type TripEndpoints struct {
	StartStopID string
	StartName   string
	EndStopID   string
	EndName     string

	minSeq int
	maxSeq int
}

// TripStop is a usable stop_times row with its sequence parsed and its
// stop's name and coordinates joined in.
type TripStop struct {
	StopID    string
	Name      string
	Coord     geom.Point
	Seq       int
	Arrival   string
	Departure string
	Exact     bool
}

// TableIndex provides O(1) lookups over a loaded table set: stops by
// identifier, the distinct route list, per-trip endpoints and per-trip
// ordered stop rows, and per-shape ordered polylines.
//
// Construction never fails: rows with missing identifiers or a non-numeric
// sequence number are skipped.
type TableIndex struct {
	stops       map[string]Stop
	stopsByName map[string]Stop
	trips       map[string]Trip
	tripIDs     []string
	routeIDs    []string
	endpoints   map[string]TripEndpoints
	tripStops   map[string][]TripStop
	shapes      map[string][]geom.Point
}

// NewTableIndex builds the index in one pass per table.
func NewTableIndex(tables Tables) *TableIndex {
	idx := &TableIndex{
		stops:     make(map[string]Stop, len(tables.Stops)),
		trips:     make(map[string]Trip, len(tables.Trips)),
		endpoints: make(map[string]TripEndpoints),
		tripStops: make(map[string][]TripStop),
		shapes:    make(map[string][]geom.Point),
	}

	for _, s := range tables.Stops {
		if s.ID == "" {
			continue
		}
		idx.stops[s.ID] = s
	}
	idx.stopsByName = make(map[string]Stop, len(idx.stops))
	stopIDs := make([]string, 0, len(idx.stops))
	for id := range idx.stops {
		stopIDs = append(stopIDs, id)
	}
	sort.Strings(stopIDs)
	// First stop in ID order wins a name collision.
	for _, id := range stopIDs {
		s := idx.stops[id]
		if _, taken := idx.stopsByName[s.Name]; !taken {
			idx.stopsByName[s.Name] = s
		}
	}

	routeSet := make(map[string]struct{})
	for _, r := range tables.Routes {
		if r.ID != "" {
			routeSet[r.ID] = struct{}{}
		}
	}
	for _, t := range tables.Trips {
		if t.ID == "" {
			continue
		}
		idx.trips[t.ID] = t
		idx.tripIDs = append(idx.tripIDs, t.ID)
		if t.RouteID != "" {
			routeSet[t.RouteID] = struct{}{}
		}
	}
	sort.Strings(idx.tripIDs)
	for id := range routeSet {
		idx.routeIDs = append(idx.routeIDs, id)
	}
	sort.Strings(idx.routeIDs)

	for _, st := range tables.StopTimes {
		if st.TripID == "" || st.StopID == "" {
			continue
		}
		seq, err := strconv.Atoi(st.Seq)
		if err != nil {
			continue
		}
		stop, ok := idx.stops[st.StopID]
		if !ok {
			continue
		}

		idx.tripStops[st.TripID] = append(idx.tripStops[st.TripID], TripStop{
			StopID:    st.StopID,
			Name:      stop.Name,
			Coord:     geom.Point{Lat: stop.Lat, Lon: stop.Lon},
			Seq:       seq,
			Arrival:   st.Arrival,
			Departure: st.Departure,
			Exact:     st.Exact(),
		})

		ep, seen := idx.endpoints[st.TripID]
		if !seen || seq < ep.minSeq {
			ep.minSeq = seq
			ep.StartStopID = st.StopID
			ep.StartName = stop.Name
		}
		if !seen || seq > ep.maxSeq {
			ep.maxSeq = seq
			ep.EndStopID = st.StopID
			ep.EndName = stop.Name
		}
		idx.endpoints[st.TripID] = ep
	}
	for id := range idx.tripStops {
		rows := idx.tripStops[id]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	}

	type shapeRow struct {
		seq int
		pt  geom.Point
	}
	rowsByShape := make(map[string][]shapeRow)
	for _, sp := range tables.Shapes {
		if sp.ShapeID == "" {
			continue
		}
		seq, err := strconv.Atoi(sp.Seq)
		if err != nil {
			continue
		}
		rowsByShape[sp.ShapeID] = append(rowsByShape[sp.ShapeID], shapeRow{seq: seq, pt: geom.Point{Lat: sp.Lat, Lon: sp.Lon}})
	}
	for id, rows := range rowsByShape {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
		pts := make([]geom.Point, len(rows))
		for i, r := range rows {
			pts[i] = r.pt
		}
		idx.shapes[id] = pts
	}

	return idx
}

// Stop looks up a stop by identifier.
func (idx *TableIndex) Stop(id string) (Stop, bool) {
	s, ok := idx.stops[id]
	return s, ok
}

// StopByName looks up a stop by display name. On duplicate names the stop
// with the smallest identifier wins.
func (idx *TableIndex) StopByName(name string) (Stop, bool) {
	s, ok := idx.stopsByName[name]
	return s, ok
}

// Trip looks up a trip by identifier.
func (idx *TableIndex) Trip(id string) (Trip, bool) {
	t, ok := idx.trips[id]
	return t, ok
}

// RouteIDs returns the sorted, deduplicated route identifiers.
func (idx *TableIndex) RouteIDs() []string { return idx.routeIDs }

// TripIDs returns all trip identifiers in sorted order.
func (idx *TableIndex) TripIDs() []string { return idx.tripIDs }

// Endpoints returns the first/last stop of a trip.
func (idx *TableIndex) Endpoints(tripID string) (TripEndpoints, bool) {
	ep, ok := idx.endpoints[tripID]
	return ep, ok
}

// TripStops returns the trip's usable stop rows ordered by sequence number.
func (idx *TableIndex) TripStops(tripID string) []TripStop { return idx.tripStops[tripID] }

// Shape returns the shape's vertices ordered by sequence number.
func (idx *TableIndex) Shape(shapeID string) []geom.Point { return idx.shapes[shapeID] }
