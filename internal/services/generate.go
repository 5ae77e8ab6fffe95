package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
	"duty-route-service/internal/timeclock"
)

// Output is the pair of documents a settled duty chain produces: the route
// geometry records and the filtered, renumbered schedule.
type Output struct {
	Routes   []RouteRecord   `json:"routes"`
	Schedule []ScheduleEntry `json:"schedule"`
}

// ErrEmptySchedule is the only aggregate generation failure: after
// filtering against the roster window no activity produced a schedule row.
var ErrEmptySchedule = errors.New("generate: no schedule rows inside the roster window")

// Generate walks a chain snapshot in order and builds both output
// documents. Unresolved and failed activities contribute nothing; that is
// a partial state, not an error. The schedule is filtered against the
// roster window (entries named "school…" by interval overlap, everything
// else by departure containment), sorted by start time and renumbered.
func Generate(idx *domain.TableIndex, snap Snapshot) (Output, error) {
	var out Output
	var pending []scheduleRow

	// The previous activity's end location threads through the chain so
	// pauses and repositionings know where the vehicle is standing.
	var prev domain.Place

	for _, a := range snap.Activities {
		if a.Start == nil {
			continue
		}
		switch a.Kind {
		case domain.KindTrip:
			prev = genTrip(idx, a, &out, &pending, prev)
		case domain.KindBreak, domain.KindSignOn, domain.KindSignOff:
			prev = genPause(a, &pending, prev)
		case domain.KindReposition:
			prev = genReposition(a, &pending, prev)
		case domain.KindSchoolRun:
			prev = genSchoolRun(a, &out, &pending, prev)
		case domain.KindCustomLeg:
			prev = genCustomLeg(a, &out, &pending, prev)
		}
	}

	kept := filterRows(pending, snap.Roster)
	if len(kept) == 0 {
		return Output{}, ErrEmptySchedule
	}

	anchor := timeclock.Minute(0)
	if snap.Roster != nil {
		anchor = snap.Roster.Start
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return timeclock.ForwardDistance(anchor, kept[i].start) <
			timeclock.ForwardDistance(anchor, kept[j].start)
	})

	out.Schedule = make([]ScheduleEntry, len(kept))
	for i, row := range kept {
		row.entry.RunNo = i + 1
		out.Schedule[i] = row.entry
	}
	return out, nil
}

// scheduleRow carries an entry with its kept start/end minutes so
// filtering and sorting never reparse formatted times.
type scheduleRow struct {
	entry ScheduleEntry
	start timeclock.Minute
	end   timeclock.Minute
}

func newRow(name string, start, end timeclock.Minute, stops []BusStop) scheduleRow {
	return scheduleRow{
		entry: ScheduleEntry{
			StartTime: start.Format(),
			EndTime:   end.Format(),
			RunName:   name,
			BusStops:  stops,
		},
		start: start,
		end:   end,
	}
}

func filterRows(rows []scheduleRow, roster *timeclock.Window) []scheduleRow {
	if roster == nil {
		return rows
	}
	kept := rows[:0]
	for _, row := range rows {
		if strings.HasPrefix(strings.ToLower(row.entry.RunName), "school") {
			if roster.Overlaps(row.start, row.end) {
				kept = append(kept, row)
			}
			continue
		}
		if roster.Contains(row.start) {
			kept = append(kept, row)
		}
	}
	return kept
}

func genTrip(idx *domain.TableIndex, a domain.Activity, out *Output, rows *[]scheduleRow, prev domain.Place) domain.Place {
	t := a.Trip
	if a.End == nil || a.State != domain.StateResolved {
		return prev
	}

	if t.CustomDest != nil {
		if t.Leg == nil {
			return prev
		}
		origin := prev
		if stop, ok := idx.StopByName(t.DepName); ok {
			origin = domain.Place{Name: stop.Name, StopID: stop.ID, Coord: stop.Coordinates()}
		}
		dest := *t.CustomDest
		out.Routes = append(out.Routes, legRecord(origin, dest, *t.Leg))
		name := fmt.Sprintf("%s: %s - %s", t.RouteID, t.DepName, dest.Name)
		stops := BuildCustomLegSchedule(origin, dest, *a.Start, *a.End)
		*rows = append(*rows, newRow(name, *a.Start, *a.End, stops))
		return dest
	}

	if t.TripID == "" {
		return prev
	}
	rec, err := ComposeTrip(idx, t.TripID)
	if err != nil {
		return prev
	}
	var startOverride, endOverride *timeclock.Minute
	if t.DepartOverride != nil {
		startOverride = a.Start
	}
	if t.ArriveOverride != nil {
		endOverride = a.End
	}
	stops, err := BuildTripSchedule(idx, t.TripID, nil, startOverride, endOverride)
	if err != nil {
		return prev
	}
	out.Routes = append(out.Routes, rec)
	name := fmt.Sprintf("%s: %s - %s", t.RouteID, t.DepName, t.DestName)
	*rows = append(*rows, newRow(name, *a.Start, *a.End, stops))
	if stop, ok := idx.StopByName(t.DestName); ok {
		return domain.Place{Name: stop.Name, StopID: stop.ID, Coord: stop.Coordinates()}
	}
	return prev
}

func pauseName(k domain.ActivityKind) string {
	switch k {
	case domain.KindSignOn:
		return "Sign On"
	case domain.KindSignOff:
		return "Sign Off"
	}
	return "Break"
}

func genPause(a domain.Activity, rows *[]scheduleRow, prev domain.Place) domain.Place {
	if a.End == nil {
		return prev
	}
	stops := BuildPauseSchedule(prev, a.Pause.Location, *a.Start)
	*rows = append(*rows, newRow(pauseName(a.Kind), *a.Start, *a.End, stops))
	if a.Pause.Location != nil {
		return *a.Pause.Location
	}
	return prev
}

func genReposition(a domain.Activity, rows *[]scheduleRow, prev domain.Place) domain.Place {
	if a.End == nil {
		return prev
	}
	dest := a.Reposition.Dest
	stops := BuildRepositionSchedule(prev, dest, *a.Start, *a.End)
	*rows = append(*rows, newRow("Reposition", *a.Start, *a.End, stops))
	return dest
}

func genSchoolRun(a domain.Activity, out *Output, rows *[]scheduleRow, prev domain.Place) domain.Place {
	s := a.School
	if a.End == nil || len(s.Path.Polyline) == 0 {
		return prev
	}
	out.Routes = append(out.Routes, schoolRunRecord(s.Path))
	stops := BuildSchoolRunSchedule(s.Path, *a.Start, *a.End)
	name := s.Path.Name
	if !strings.HasPrefix(strings.ToLower(name), "school") {
		name = strings.TrimSpace("School " + name)
	}
	*rows = append(*rows, newRow(name, *a.Start, *a.End, stops))
	last := s.Path.Polyline[len(s.Path.Polyline)-1]
	return domain.Place{Name: s.Path.DestName, Coord: domain.Coordinates{Lon: last.Lon, Lat: last.Lat}}
}

func genCustomLeg(a domain.Activity, out *Output, rows *[]scheduleRow, prev domain.Place) domain.Place {
	c := a.Custom
	if a.End == nil || a.State != domain.StateResolved || c.Leg == nil {
		return prev
	}
	out.Routes = append(out.Routes, legRecord(c.Origin, c.Dest, *c.Leg))
	stops := BuildCustomLegSchedule(c.Origin, c.Dest, *a.Start, *a.End)
	name := fmt.Sprintf("%s - %s", c.Origin.Name, c.Dest.Name)
	*rows = append(*rows, newRow(name, *a.Start, *a.End, stops))
	return c.Dest
}

// legRecord builds the two-waypoint geometry record for an externally
// resolved leg. The polyline is pinned to the requested endpoints.
func legRecord(origin, dest domain.Place, leg domain.Leg) RouteRecord {
	line := EnsureLegEndpoints(leg.Polyline, origin.Coord, dest.Coord)
	mins := float64(leg.DurationSeconds) / 60
	return RouteRecord{
		StartingPoint: Waypoint{
			Latitude:  origin.Coord.Lat,
			Longitude: origin.Coord.Lon,
			Address:   origin.Name,
		},
		NextPoints: []NextPoint{{
			Latitude:         dest.Coord.Lat,
			Longitude:        dest.Coord.Lon,
			Address:          dest.Name,
			Duration:         fmt.Sprintf("%.1f minutes", mins),
			RouteCoordinates: lonLatPairs(line),
		}},
	}
}

// schoolRunRecord emits the off-network polyline as one waypoint per
// vertex with single-segment geometry and no duration: segment timing
// granularity is unknown for these runs.
func schoolRunRecord(path domain.RunPath) RouteRecord {
	line := path.Polyline
	rec := RouteRecord{
		StartingPoint: Waypoint{
			Latitude:  line[0].Lat,
			Longitude: line[0].Lon,
			Address:   path.DepName,
		},
	}
	for i := 1; i < len(line); i++ {
		addr := ""
		if i == len(line)-1 {
			addr = path.DestName
		}
		rec.NextPoints = append(rec.NextPoints, NextPoint{
			Latitude:         line[i].Lat,
			Longitude:        line[i].Lon,
			Address:          addr,
			RouteCoordinates: lonLatPairs([]geom.Point{line[i-1], line[i]}),
		})
	}
	return rec
}
