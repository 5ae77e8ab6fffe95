package services

import (
	"testing"

	"duty-route-service/internal/domain"
)

func TestComposeTrip(t *testing.T) {
	idx := corridorIndex()

	rec, err := ComposeTrip(idx, "t1")
	if err != nil {
		t.Fatalf("ComposeTrip: %v", err)
	}

	if rec.StartingPoint.Address != "Alpha Station" {
		t.Fatalf("starting point = %q, want Alpha Station", rec.StartingPoint.Address)
	}
	if len(rec.NextPoints) != 2 {
		t.Fatalf("next points = %d, want 2", len(rec.NextPoints))
	}

	first := rec.NextPoints[0]
	if first.Address != "Bravo Depot" {
		t.Fatalf("first next point = %q, want Bravo Depot", first.Address)
	}
	if first.Duration != "15.0 minutes" {
		t.Fatalf("duration = %q, want \"15.0 minutes\"", first.Duration)
	}
	// Alpha sits on vertex 0 and Bravo on vertex 2: an inclusive slice of
	// three vertices, emitted as [lon, lat].
	if len(first.RouteCoordinates) != 3 {
		t.Fatalf("segment vertices = %d, want 3", len(first.RouteCoordinates))
	}
	if first.RouteCoordinates[0][0] != 0 || first.RouteCoordinates[0][1] != 0 {
		t.Fatalf("segment start = %v, want [0 0]", first.RouteCoordinates[0])
	}
	if first.RouteCoordinates[2][0] != 1 {
		t.Fatalf("segment end lon = %v, want 1", first.RouteCoordinates[2][0])
	}

	if rec.NextPoints[1].Address != "Charlie Point" {
		t.Fatalf("last next point = %q, want Charlie Point", rec.NextPoints[1].Address)
	}
}

func TestComposeTripUnknownTrip(t *testing.T) {
	idx := corridorIndex()
	if _, err := ComposeTrip(idx, "ghost"); err == nil {
		t.Fatalf("expected an error for an unknown trip")
	}
}

func TestComposeTripEmptyShape(t *testing.T) {
	tables := corridorTables()
	tables.Trips = append(tables.Trips, domain.Trip{ID: "t9", RouteID: "r1", ShapeID: "missing"})
	tables.StopTimes = append(tables.StopTimes,
		domain.StopTime{TripID: "t9", StopID: "sA", Seq: "1", Departure: "09:00:00"},
	)
	idx := domain.NewTableIndex(tables)

	if _, err := ComposeTrip(idx, "t9"); err == nil {
		t.Fatalf("expected an error for a trip with no shape vertices")
	}
}

// dominantTables builds route r1 direction 0 with three trips on shape S1
// and five on shape S2. S2 has three vertices to S1's five so the chosen
// shape is visible in the segment geometry.
func dominantTables() domain.Tables {
	tables := domain.Tables{
		Stops: []domain.Stop{
			{ID: "sA", Name: "Alpha Station", Lat: 0, Lon: 0},
			{ID: "sC", Name: "Charlie Point", Lat: 0, Lon: 2},
		},
		Shapes: []domain.ShapePoint{
			{ShapeID: "S1", Lat: 0, Lon: 0, Seq: "1"},
			{ShapeID: "S1", Lat: 0, Lon: 0.5, Seq: "2"},
			{ShapeID: "S1", Lat: 0, Lon: 1, Seq: "3"},
			{ShapeID: "S1", Lat: 0, Lon: 1.5, Seq: "4"},
			{ShapeID: "S1", Lat: 0, Lon: 2, Seq: "5"},
			{ShapeID: "S2", Lat: 0, Lon: 0, Seq: "1"},
			{ShapeID: "S2", Lat: 0, Lon: 1, Seq: "2"},
			{ShapeID: "S2", Lat: 0, Lon: 2, Seq: "3"},
		},
	}
	add := func(id, shape string) {
		tables.Trips = append(tables.Trips, domain.Trip{ID: id, RouteID: "r1", Direction: "0", ShapeID: shape})
		tables.StopTimes = append(tables.StopTimes,
			domain.StopTime{TripID: id, StopID: "sA", Seq: "1", Departure: "08:00:00"},
			domain.StopTime{TripID: id, StopID: "sC", Seq: "2", Arrival: "08:20:00"},
		)
	}
	add("a1", "S1")
	add("a2", "S1")
	add("a3", "S1")
	add("b1", "S2")
	add("b2", "S2")
	add("b3", "S2")
	add("b4", "S2")
	add("b5", "S2")
	return tables
}

func TestComposeRouteDirectionDominantShape(t *testing.T) {
	idx := domain.NewTableIndex(dominantTables())

	rec, err := ComposeRouteDirection(idx, "r1", "0")
	if err != nil {
		t.Fatalf("ComposeRouteDirection: %v", err)
	}
	if len(rec.NextPoints) != 1 {
		t.Fatalf("next points = %d, want 1 after stop dedup", len(rec.NextPoints))
	}
	// S2 carries five trips to S1's three; its full span is three vertices.
	if got := len(rec.NextPoints[0].RouteCoordinates); got != 3 {
		t.Fatalf("segment vertices = %d, want 3 (shape S2)", got)
	}
}

func TestComposeRouteDirectionShapeTie(t *testing.T) {
	tables := dominantTables()
	// Even the count: two more trips on S1 makes it 5-5.
	for _, id := range []string{"a4", "a5"} {
		tables.Trips = append(tables.Trips, domain.Trip{ID: id, RouteID: "r1", Direction: "0", ShapeID: "S1"})
		tables.StopTimes = append(tables.StopTimes,
			domain.StopTime{TripID: id, StopID: "sA", Seq: "1", Departure: "09:00:00"},
			domain.StopTime{TripID: id, StopID: "sC", Seq: "2", Arrival: "09:20:00"},
		)
	}
	idx := domain.NewTableIndex(tables)

	rec, err := ComposeRouteDirection(idx, "r1", "0")
	if err != nil {
		t.Fatalf("ComposeRouteDirection: %v", err)
	}
	// On a tie the smaller shape identifier wins: S1, five vertices.
	if got := len(rec.NextPoints[0].RouteCoordinates); got != 5 {
		t.Fatalf("segment vertices = %d, want 5 (shape S1 on tie)", got)
	}
}

func TestComposeRouteDirectionNoTrips(t *testing.T) {
	idx := corridorIndex()
	if _, err := ComposeRouteDirection(idx, "r1", "9"); err == nil {
		t.Fatalf("expected an error for a direction with no trips")
	}
}
