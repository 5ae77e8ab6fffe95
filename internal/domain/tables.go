package domain

import "duty-route-service/internal/geom"

// Stop is one row of the stops table. Immutable once loaded.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Coordinates returns the stop position in (lon, lat) form.
func (s Stop) Coordinates() Coordinates { return Coordinates{Lon: s.Lon, Lat: s.Lat} }

// Trip is one row of the trips table.
type Trip struct {
	ID        string
	RouteID   string
	Direction string
	ShapeID   string
}

// StopTime is one raw row of the stop_times table. Sequence stays a string
// here: the table index decides row usability, not the decoder.
type StopTime struct {
	TripID    string
	StopID    string
	Seq       string
	Arrival   string
	Departure string
	Timepoint string
}

// Exact reports whether the row is an exact timing point. The flag is
// tri-state in the source data (1 exact, 0 approximate) and defaults to
// exact when absent or unparsable.
func (st StopTime) Exact() bool { return st.Timepoint != "0" }

// ShapePoint is one raw vertex row of the shapes table.
type ShapePoint struct {
	ShapeID string
	Lat     float64
	Lon     float64
	Seq     string
}

// Route is one row of the optional routes table.
type Route struct {
	ID        string
	ShortName string
	LongName  string
}

// Tables holds the decoded transit export. Routes may be empty; the other
// tables are required by the loader.
type Tables struct {
	Routes    []Route
	Trips     []Trip
	StopTimes []StopTime
	Stops     []Stop
	Shapes    []ShapePoint
}

// RunPath is an off-network route decoded from a geographic feature
// collection: two named endpoints joined by a polyline, with optional
// scheduled times carried over from the feature properties.
type RunPath struct {
	ID       string
	Name     string
	DepName  string
	DestName string
	Polyline []geom.Point
	Start    string
	End      string
	Number   string
	Agency   string
}
