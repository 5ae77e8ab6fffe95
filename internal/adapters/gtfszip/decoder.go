package gtfszip

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"duty-route-service/internal/domain"
)

// ParseTables decodes a transit export archive: a zip of CSV tables. The
// stops, trips, stop_times and shapes tables are required; routes is
// optional. Individual rows with missing required cells are skipped, an
// entire required table that is absent or empty is an error.
func ParseTables(r io.ReaderAt, size int64) (domain.Tables, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return domain.Tables{}, fmt.Errorf("parse tables: open archive: %w", err)
	}

	var tables domain.Tables

	required := map[string]func(*csvTable) error{
		"stops.txt":      func(t *csvTable) error { return readStops(t, &tables) },
		"trips.txt":      func(t *csvTable) error { return readTrips(t, &tables) },
		"stop_times.txt": func(t *csvTable) error { return readStopTimes(t, &tables) },
		"shapes.txt":     func(t *csvTable) error { return readShapes(t, &tables) },
	}
	optional := map[string]func(*csvTable) error{
		"routes.txt": func(t *csvTable) error { return readRoutes(t, &tables) },
	}

	seen := make(map[string]bool)
	for _, f := range zr.File {
		name := baseName(f.Name)
		read := required[name]
		if read == nil {
			read = optional[name]
		}
		if read == nil || seen[name] {
			continue
		}
		seen[name] = true

		table, err := openTable(f)
		if err != nil {
			return domain.Tables{}, fmt.Errorf("parse tables: %s: %w", name, err)
		}
		if err := read(table); err != nil {
			return domain.Tables{}, fmt.Errorf("parse tables: %s: %w", name, err)
		}
	}

	for name := range required {
		if !seen[name] {
			return domain.Tables{}, fmt.Errorf("parse tables: required table %s is missing", name)
		}
	}
	if len(tables.Stops) == 0 {
		return domain.Tables{}, fmt.Errorf("parse tables: stops.txt has no usable rows")
	}
	if len(tables.Trips) == 0 {
		return domain.Tables{}, fmt.Errorf("parse tables: trips.txt has no usable rows")
	}
	if len(tables.StopTimes) == 0 {
		return domain.Tables{}, fmt.Errorf("parse tables: stop_times.txt has no usable rows")
	}

	return tables, nil
}

func baseName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// csvTable wraps a decoded CSV file with header-name cell access. Exports
// vary in column order and in which optional columns they carry.
type csvTable struct {
	cols map[string]int
	rows [][]string
}

func openTable(f *zip.File) (*csvTable, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table")
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	return &csvTable{cols: cols, rows: records[1:]}, nil
}

func (t *csvTable) cell(row []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readStops(t *csvTable, tables *domain.Tables) error {
	for _, row := range t.rows {
		id := t.cell(row, "stop_id")
		if id == "" {
			continue
		}
		lat, errLat := strconv.ParseFloat(t.cell(row, "stop_lat"), 64)
		lon, errLon := strconv.ParseFloat(t.cell(row, "stop_lon"), 64)
		if errLat != nil || errLon != nil {
			continue
		}
		tables.Stops = append(tables.Stops, domain.Stop{
			ID:   id,
			Name: t.cell(row, "stop_name"),
			Lat:  lat,
			Lon:  lon,
		})
	}
	return nil
}

func readTrips(t *csvTable, tables *domain.Tables) error {
	for _, row := range t.rows {
		id := t.cell(row, "trip_id")
		if id == "" {
			continue
		}
		tables.Trips = append(tables.Trips, domain.Trip{
			ID:        id,
			RouteID:   t.cell(row, "route_id"),
			Direction: t.cell(row, "direction_id"),
			ShapeID:   t.cell(row, "shape_id"),
		})
	}
	return nil
}

func readStopTimes(t *csvTable, tables *domain.Tables) error {
	for _, row := range t.rows {
		tripID := t.cell(row, "trip_id")
		stopID := t.cell(row, "stop_id")
		if tripID == "" || stopID == "" {
			continue
		}
		tables.StopTimes = append(tables.StopTimes, domain.StopTime{
			TripID:    tripID,
			StopID:    stopID,
			Seq:       t.cell(row, "stop_sequence"),
			Arrival:   t.cell(row, "arrival_time"),
			Departure: t.cell(row, "departure_time"),
			Timepoint: t.cell(row, "timepoint"),
		})
	}
	return nil
}

func readShapes(t *csvTable, tables *domain.Tables) error {
	for _, row := range t.rows {
		id := t.cell(row, "shape_id")
		if id == "" {
			continue
		}
		lat, errLat := strconv.ParseFloat(t.cell(row, "shape_pt_lat"), 64)
		lon, errLon := strconv.ParseFloat(t.cell(row, "shape_pt_lon"), 64)
		if errLat != nil || errLon != nil {
			continue
		}
		tables.Shapes = append(tables.Shapes, domain.ShapePoint{
			ShapeID: id,
			Lat:     lat,
			Lon:     lon,
			Seq:     t.cell(row, "shape_pt_sequence"),
		})
	}
	return nil
}

func readRoutes(t *csvTable, tables *domain.Tables) error {
	for _, row := range t.rows {
		id := t.cell(row, "route_id")
		if id == "" {
			continue
		}
		tables.Routes = append(tables.Routes, domain.Route{
			ID:        id,
			ShortName: t.cell(row, "route_short_name"),
			LongName:  t.cell(row, "route_long_name"),
		})
	}
	return nil
}
