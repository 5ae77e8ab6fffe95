package services

import (
	"fmt"
	"strings"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/geom"
	"duty-route-service/internal/timeclock"
)

// BusStop is one named, timestamped stop of a schedule entry.
type BusStop struct {
	Name         string  `json:"name"`
	Time         string  `json:"time"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Address      string  `json:"address"`
	Abbreviation string  `json:"abbreviation"`
	TimePoint    string  `json:"time_point,omitempty"`
}

// ScheduleEntry is one run of the duty schedule document.
type ScheduleEntry struct {
	RunNo     int       `json:"runNo"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	RunName   string    `json:"runName"`
	BusStops  []BusStop `json:"busStops"`
}

// Abbreviate derives a short code from a stop address. Slash-separated
// parts are abbreviated independently: a leading "Stop " prefix is dropped,
// tokens that are already all-uppercase without spaces pass through, and
// anything else becomes the upper-cased first letters of its whitespace- or
// hyphen-separated words.
func Abbreviate(name string) string {
	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if len(token) >= 5 && strings.EqualFold(token[:5], "stop ") {
			token = strings.TrimSpace(token[5:])
		}
		if token == "" {
			out = append(out, "")
			continue
		}
		if !strings.Contains(token, " ") && token == strings.ToUpper(token) {
			out = append(out, token)
			continue
		}
		words := strings.FieldsFunc(token, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '-'
		})
		var b strings.Builder
		for _, w := range words {
			b.WriteString(strings.ToUpper(w[:1]))
		}
		out = append(out, b.String())
	}
	return strings.Join(out, "/")
}

func stopTime(st domain.TripStop) string {
	raw := st.Departure
	if raw == "" {
		raw = st.Arrival
	}
	m, err := timeclock.Parse(raw)
	if err != nil {
		return ""
	}
	return m.Format()
}

func timepointFlag(exact bool) string {
	if exact {
		return "1"
	}
	return "0"
}

// BuildTripSchedule builds the named stop list for one trip. Only the
// first stop, the last stop, exact timing points and stops listed in
// extraStops survive. Labels are "Stop S" for the first, "Stop E" for the
// last and "Stop {n}" (1-based sequence position) in between. Overrides
// rewrite only the first and last stop's displayed time; the underlying
// table times keep driving everything else.
func BuildTripSchedule(
	idx *domain.TableIndex,
	tripID string,
	extraStops []string,
	startOverride *timeclock.Minute,
	endOverride *timeclock.Minute,
) ([]BusStop, error) {
	stops := idx.TripStops(tripID)
	if len(stops) == 0 {
		return nil, fmt.Errorf("build trip schedule %q: no usable stop rows", tripID)
	}

	extra := make(map[string]struct{}, len(extraStops))
	for _, id := range extraStops {
		extra[id] = struct{}{}
	}

	out := make([]BusStop, 0, len(stops))
	for i, st := range stops {
		first := i == 0
		last := i == len(stops)-1
		_, requested := extra[st.StopID]
		if !first && !last && !st.Exact && !requested {
			continue
		}

		label := fmt.Sprintf("Stop %d", i+1)
		if first {
			label = "Stop S"
		} else if last {
			label = "Stop E"
		}

		out = append(out, BusStop{
			Name:         label,
			Time:         stopTime(st),
			Latitude:     st.Coord.Lat,
			Longitude:    st.Coord.Lon,
			Address:      st.Name,
			Abbreviation: Abbreviate(st.Name),
			TimePoint:    timepointFlag(st.Exact),
		})
	}

	if startOverride != nil {
		out[0].Time = startOverride.Format()
	}
	if endOverride != nil {
		out[len(out)-1].Time = endOverride.Format()
	}
	return out, nil
}

func placeStop(p domain.Place, t timeclock.Minute) BusStop {
	return BusStop{
		Name:         p.Name,
		Time:         t.Format(),
		Latitude:     p.Coord.Lat,
		Longitude:    p.Coord.Lon,
		Address:      p.Name,
		Abbreviation: Abbreviate(p.Name),
	}
}

// BuildPauseSchedule builds the single-stop entry for a Break, SignOn or
// SignOff: the explicit location when one is configured, otherwise the
// previous activity's end location.
func BuildPauseSchedule(prev domain.Place, override *domain.Place, start timeclock.Minute) []BusStop {
	at := prev
	if override != nil {
		at = *override
	}
	return []BusStop{placeStop(at, start)}
}

// BuildRepositionSchedule builds the two-stop entry for a repositioning
// move from the previous end location to its destination.
func BuildRepositionSchedule(prev domain.Place, dest domain.Place, start, end timeclock.Minute) []BusStop {
	return []BusStop{placeStop(prev, start), placeStop(dest, end)}
}

// BuildSchoolRunSchedule builds the two-stop entry for an off-network run:
// the path's named endpoints with the user-chosen times.
func BuildSchoolRunSchedule(path domain.RunPath, start, end timeclock.Minute) []BusStop {
	var depPt, destPt geom.Point
	if n := len(path.Polyline); n > 0 {
		depPt = path.Polyline[0]
		destPt = path.Polyline[n-1]
	}
	dep := domain.Place{Name: path.DepName, Coord: domain.Coordinates{Lon: depPt.Lon, Lat: depPt.Lat}}
	dest := domain.Place{Name: path.DestName, Coord: domain.Coordinates{Lon: destPt.Lon, Lat: destPt.Lat}}
	return []BusStop{placeStop(dep, start), placeStop(dest, end)}
}

// BuildCustomLegSchedule builds the two-stop entry for an externally
// resolved point-to-point leg.
func BuildCustomLegSchedule(origin, dest domain.Place, start, end timeclock.Minute) []BusStop {
	return []BusStop{placeStop(origin, start), placeStop(dest, end)}
}

// EnsureLegEndpoints guarantees the polyline starts at origin and ends at
// dest even when the external lookup returned a truncated or reordered
// line, prepending/appending the exact endpoints when they don't match.
func EnsureLegEndpoints(polyline []geom.Point, origin, dest domain.Coordinates) []geom.Point {
	op := origin.Point()
	dp := dest.Point()
	out := polyline[:len(polyline):len(polyline)]
	if len(out) == 0 || out[0] != op {
		out = append([]geom.Point{op}, out...)
	}
	if out[len(out)-1] != dp {
		out = append(out, dp)
	}
	return out
}
