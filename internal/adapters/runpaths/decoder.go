package runpaths

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
)

// featureCollection is the subset of GeoJSON the decoder reads. Property
// values arrive as strings or numbers depending on the exporting tool, so
// they decode through json.RawMessage.
type featureCollection struct {
	Features []struct {
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"features"`
}

// ParseRunPaths decodes off-network routes from a GeoJSON feature
// collection. Features whose geometry is not a LineString with at least
// two vertices are skipped; a collection with no usable feature is an
// error.
func ParseRunPaths(r io.Reader) ([]domain.RunPath, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse run paths: decode feature collection: %w", err)
	}

	var out []domain.RunPath
	for i, f := range fc.Features {
		if f.Geometry.Type != "LineString" {
			continue
		}
		var pairs [][]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &pairs); err != nil {
			continue
		}
		line := make([]geom.Point, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) < 2 {
				line = nil
				break
			}
			line = append(line, geom.Point{Lon: pair[0], Lat: pair[1]})
		}
		if len(line) < 2 {
			continue
		}

		p := properties(f.Properties)
		path := domain.RunPath{
			ID:       p.str("id"),
			Name:     p.str("name"),
			DepName:  p.str("dep_name"),
			DestName: p.str("dest_name"),
			Polyline: line,
			Start:    p.str("start_time"),
			End:      p.str("end_time"),
			Number:   p.str("number"),
			Agency:   p.str("agency"),
		}
		if path.ID == "" {
			path.ID = strconv.Itoa(i + 1)
		}
		out = append(out, path)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("parse run paths: no usable LineString features")
	}
	return out, nil
}

type properties map[string]json.RawMessage

// str reads a property leniently: strings come back verbatim, numbers are
// formatted, anything else is empty.
func (p properties) str(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}
