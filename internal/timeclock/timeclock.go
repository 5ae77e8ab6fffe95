// Package timeclock implements minute-of-day arithmetic on a 24-hour ring.
//
// Every "after previous", "inside roster" and "snap into window" decision in
// the duty chain goes through this package; no other package is allowed to
// compare times directly.
package timeclock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the size of the 24-hour ring.
const MinutesPerDay = 1440

// Minute is a time of day expressed as minutes since midnight, in [0, 1440).
type Minute int

var errBadClock = errors.New("timeclock: malformed clock string")

// Parse converts "HH:MM" or "HH:MM:SS" to a Minute.
//
// Hours are taken modulo 24, so GTFS-style service-day rollover values
// (e.g. "25:10:00") normalize onto the ring instead of failing. Missing
// minute or second fields default to zero, and seconds round to the nearest
// minute (>=30s rounds up). This defaulting is a contract: downstream
// ordering depends on it.
func Parse(s string) (Minute, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || parts[0] == "" {
		return 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", errBadClock, s)
	}

	field := func(i int) (int, error) {
		if i >= len(parts) || strings.TrimSpace(parts[i]) == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", errBadClock, s)
		}
		return v, nil
	}

	h, err := field(0)
	if err != nil {
		return 0, err
	}
	m, err := field(1)
	if err != nil {
		return 0, err
	}
	sec, err := field(2)
	if err != nil {
		return 0, err
	}

	total := (h%24)*60 + m
	if sec >= 30 {
		total++
	}
	return Minute(total % MinutesPerDay), nil
}

// Format renders the minute as a zero-padded "HH:MM" string.
func (t Minute) Format() string {
	t = t.normalize()
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add moves forward d minutes around the ring. Negative d moves backward.
func (t Minute) Add(d int) Minute {
	return Minute((int(t) + d%MinutesPerDay + MinutesPerDay) % MinutesPerDay)
}

func (t Minute) normalize() Minute {
	return Minute((int(t)%MinutesPerDay + MinutesPerDay) % MinutesPerDay)
}

// ForwardDistance returns the minutes travelled going forward from a to
// reach b, wrapping at midnight. A result of zero means a == b; the result
// is never negative.
func ForwardDistance(a, b Minute) int {
	return (int(b.normalize()) - int(a.normalize()) + MinutesPerDay) % MinutesPerDay
}

// circularDistance is the shorter way around the ring between a and b.
func circularDistance(a, b Minute) int {
	f := ForwardDistance(a, b)
	if back := MinutesPerDay - f; back < f {
		return back
	}
	return f
}

// Window is a roster time window. Start > End means the window spans
// midnight (an overnight duty).
type Window struct {
	Start Minute
	End   Minute
}

// Wraps reports whether the window spans midnight.
func (w Window) Wraps() bool { return w.Start > w.End }

// Contains reports whether t lies inside the window, boundaries included.
func (w Window) Contains(t Minute) bool {
	t = t.normalize()
	if !w.Wraps() {
		return t >= w.Start && t <= w.End
	}
	return t >= w.Start || t <= w.End
}

// span is a non-wrapping [lo, hi] interval on the plain number line.
type span struct{ lo, hi int }

func split(start, end Minute) []span {
	if start <= end {
		return []span{{int(start), int(end)}}
	}
	return []span{{int(start), MinutesPerDay - 1}, {0, int(end)}}
}

// Overlaps reports whether the activity interval [s, e] (itself possibly
// wrapping) shares at least one minute with the window. Both intervals are
// split at midnight and the sub-intervals tested pairwise.
func (w Window) Overlaps(s, e Minute) bool {
	for _, a := range split(s.normalize(), e.normalize()) {
		for _, b := range split(w.Start, w.End) {
			if a.lo <= b.hi && b.lo <= a.hi {
				return true
			}
		}
	}
	return false
}

// Clamp snaps t into the window. For a non-wrapping window this is a plain
// numeric clamp. For an overnight window a contained t is returned
// unchanged; anything outside snaps to whichever boundary is circularly
// closer, preferring Start on a tie.
func (w Window) Clamp(t Minute) Minute {
	t = t.normalize()
	if !w.Wraps() {
		if t < w.Start {
			return w.Start
		}
		if t > w.End {
			return w.End
		}
		return t
	}
	if w.Contains(t) {
		return t
	}
	if circularDistance(t, w.End) < circularDistance(t, w.Start) {
		return w.End
	}
	return w.Start
}
