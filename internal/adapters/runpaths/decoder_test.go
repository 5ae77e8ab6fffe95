package runpaths

import (
	"strings"
	"testing"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {
        "type": "LineString",
        "coordinates": [[1.0, 1.0], [1.5, 1.5], [2.0, 2.0]]
      },
      "properties": {
        "name": "School 12",
        "dep_name": "School Gate",
        "dest_name": "Town Hall",
        "start_time": "07:40",
        "end_time": "08:10",
        "number": 12,
        "agency": "Metro"
      }
    },
    {
      "type": "Feature",
      "geometry": {
        "type": "Point",
        "coordinates": [3.0, 3.0]
      },
      "properties": {"name": "Not a path"}
    },
    {
      "type": "Feature",
      "geometry": {
        "type": "LineString",
        "coordinates": [[4.0, 4.0]]
      },
      "properties": {"name": "Too short"}
    }
  ]
}`

func TestParseRunPaths(t *testing.T) {
	paths, err := ParseRunPaths(strings.NewReader(sampleCollection))
	if err != nil {
		t.Fatalf("ParseRunPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %d, want 1 (point and single-vertex features skipped)", len(paths))
	}

	p := paths[0]
	if p.Name != "School 12" || p.DepName != "School Gate" || p.DestName != "Town Hall" {
		t.Fatalf("names = %q/%q/%q", p.Name, p.DepName, p.DestName)
	}
	if len(p.Polyline) != 3 {
		t.Fatalf("polyline = %d vertices, want 3", len(p.Polyline))
	}
	if p.Polyline[0].Lon != 1 || p.Polyline[2].Lat != 2 {
		t.Fatalf("polyline = %v, coordinates must decode as [lon, lat]", p.Polyline)
	}
	if p.Number != "12" {
		t.Fatalf("number = %q, numeric properties must format as strings", p.Number)
	}
	if p.Start != "07:40" || p.End != "08:10" {
		t.Fatalf("times = %q/%q", p.Start, p.End)
	}
	if p.ID == "" {
		t.Fatalf("missing id must fall back to the feature position")
	}
}

func TestParseRunPathsNoUsableFeatures(t *testing.T) {
	in := `{"type": "FeatureCollection", "features": [
	  {"geometry": {"type": "Point", "coordinates": [1, 1]}, "properties": {}}
	]}`
	if _, err := ParseRunPaths(strings.NewReader(in)); err == nil {
		t.Fatalf("expected an error for a collection with no LineStrings")
	}
}

func TestParseRunPathsInvalidJSON(t *testing.T) {
	if _, err := ParseRunPaths(strings.NewReader("{nope")); err == nil {
		t.Fatalf("expected a decode error")
	}
}
