package geom

import "testing"

func TestNearestIndex(t *testing.T) {
	line := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 0, Lon: 2},
		{Lat: 0, Lon: 3},
	}

	if got := NearestIndex(Point{Lat: 0.1, Lon: 1.9}, line); got != 2 {
		t.Fatalf("NearestIndex = %d, want 2", got)
	}

	// Equidistant between vertices 1 and 2: first occurrence wins.
	if got := NearestIndex(Point{Lat: 0, Lon: 1.5}, line); got != 1 {
		t.Fatalf("NearestIndex tie = %d, want 1", got)
	}

	if got := NearestIndex(Point{Lat: 5, Lon: 5}, nil); got != -1 {
		t.Fatalf("NearestIndex on empty polyline = %d, want -1", got)
	}
}

func TestSlice(t *testing.T) {
	line := []Point{{Lon: 0}, {Lon: 1}, {Lon: 2}, {Lon: 3}}

	got := Slice(line, 1, 3)
	if len(got) != 3 || got[0].Lon != 1 || got[2].Lon != 3 {
		t.Fatalf("Slice(1,3) = %v", got)
	}

	if got := Slice(line, 2, 2); len(got) != 1 || got[0].Lon != 2 {
		t.Fatalf("Slice(2,2) = %v", got)
	}

	if got := Slice(line, 3, 1); got != nil {
		t.Fatalf("Slice(3,1) = %v, want nil", got)
	}

	// Returned slice is a copy; mutating it must not touch the source.
	got = Slice(line, 0, 1)
	got[0].Lon = 99
	if line[0].Lon != 0 {
		t.Fatal("Slice aliases the source polyline")
	}
}
