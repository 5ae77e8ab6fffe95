package domain

import (
	"github.com/google/uuid"

	"duty-route-service/internal/timeclock"
)

// ActivityKind discriminates the closed set of duty activity variants.
type ActivityKind int

const (
	KindTrip ActivityKind = iota
	KindBreak
	KindSignOn
	KindSignOff
	KindReposition
	KindSchoolRun
	KindCustomLeg
)

func (k ActivityKind) String() string {
	switch k {
	case KindTrip:
		return "trip"
	case KindBreak:
		return "break"
	case KindSignOn:
		return "sign_on"
	case KindSignOff:
		return "sign_off"
	case KindReposition:
		return "reposition"
	case KindSchoolRun:
		return "school_run"
	case KindCustomLeg:
		return "custom_leg"
	}
	return "unknown"
}

// ActivityState tracks resolution progress. Trip and CustomLeg activities
// pass through Resolving while an external lookup is in flight; the other
// kinds go straight to Resolved once their minimal fields are set. Failed is
// reachable only from Resolving.
type ActivityState int

const (
	StateUnconfigured ActivityState = iota
	StateResolving
	StateResolved
	StateFailed
)

func (s ActivityState) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Place is a named location, either a network stop (StopID set) or a
// user-defined point.
type Place struct {
	Name   string
	StopID string
	Coord  Coordinates
}

// TripActivity is a scheduled service trip. Resolution fills TripID and the
// derived times; a custom destination turns the leg from the network
// departure stop into an external lookup instead.
type TripActivity struct {
	RouteID  string
	DepName  string
	DestName string

	// CustomDest, when set, replaces the scheduled destination with an
	// off-network point reached via an external lookup.
	CustomDest *Place

	TripID string
	Depart *timeclock.Minute
	Arrive *timeclock.Minute

	DepartOverride *timeclock.Minute
	ArriveOverride *timeclock.Minute

	// Leg holds the settled custom-destination lookup, if any, and
	// AttemptKey the LegKey of the most recent lookup attempt (settled or
	// not). The chain re-issues a lookup only when the key changes.
	Leg        *Leg
	AttemptKey string
}

/// PauseActivity backs Break, SignOn and SignOff: a fixed number of minutes
// at an optional explicit location (else the previous activity's end
// location is inherited).
type PauseActivity struct {
	Minutes  int
	Location *Place
}

// RepositionActivity is a dead-run move of a fixed duration to a network or
// user-defined destination.
type RepositionActivity struct {
	Minutes int
	Dest    Place
}

// SchoolRunActivity is an off-network run along a RunPath with user-chosen
// times. Start defaults to the chain cursor when left unset.
type SchoolRunActivity struct {
	Path  RunPath
	Start *timeclock.Minute
	End   *timeclock.Minute
}

// CustomLegActivity is a user-defined point-to-point leg whose travel time
// and geometry come from an external lookup.
type CustomLegActivity struct {
	Origin     Place
	Dest       Place
	Leg        *Leg
	AttemptKey string
}

/// Activity is one ordered element of a duty chain: a tagged variant with
// exactly one payload populated for its Kind, plus the chain-computed start
// and end times. Start/End are derived by recomputation, never set by hand.
type Activity struct {
	ID    uuid.UUID
	Kind  ActivityKind
	State ActivityState

	Start *timeclock.Minute
	End   *timeclock.Minute

	// FailureMessage is set only in StateFailed.
	FailureMessage string

	Trip       *TripActivity
	Pause      *PauseActivity
	Reposition *RepositionActivity
	School     *SchoolRunActivity
	Custom     *CustomLegActivity
}

// NewActivity creates an empty activity of the given kind with its payload
// struct allocated. Fields are filled in by user edits and by chain
// recomputation.
func NewActivity(kind ActivityKind) *Activity {
	a := &Activity{ID: uuid.New(), Kind: kind, State: StateUnconfigured}
	switch kind {
	case KindTrip:
		a.Trip = &TripActivity{}
	case KindBreak, KindSignOn, KindSignOff:
		a.Pause = &PauseActivity{}
	case KindReposition:
		a.Reposition = &RepositionActivity{}
	case KindSchoolRun:
		a.School = &SchoolRunActivity{}
	case KindCustomLeg:
		a.Custom = &CustomLegActivity{}
	}
	return a
}

// MinutePtr is a small helper for building optional times.
func MinutePtr(m timeclock.Minute) *timeclock.Minute { return &m }

func cloneMinute(m *timeclock.Minute) *timeclock.Minute {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}

func clonePlace(p *Place) *Place {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of the activity, detached from chain-internal
// state. Snapshots hand these out so observers never alias live pointers.
func (a *Activity) Clone() Activity {
	out := *a
	out.Start = cloneMinute(a.Start)
	out.End = cloneMinute(a.End)
	switch {
	case a.Trip != nil:
		t := *a.Trip
		t.CustomDest = clonePlace(a.Trip.CustomDest)
		t.Depart = cloneMinute(a.Trip.Depart)
		t.Arrive = cloneMinute(a.Trip.Arrive)
		t.DepartOverride = cloneMinute(a.Trip.DepartOverride)
		t.ArriveOverride = cloneMinute(a.Trip.ArriveOverride)
		if a.Trip.Leg != nil {
			leg := *a.Trip.Leg
			t.Leg = &leg
		}
		out.Trip = &t
	case a.Pause != nil:
		p := *a.Pause
		p.Location = clonePlace(a.Pause.Location)
		out.Pause = &p
	case a.Reposition != nil:
		r := *a.Reposition
		out.Reposition = &r
	case a.School != nil:
		s := *a.School
		s.Start = cloneMinute(a.School.Start)
		s.End = cloneMinute(a.School.End)
		out.School = &s
	case a.Custom != nil:
		c := *a.Custom
		if a.Custom.Leg != nil {
			leg := *a.Custom.Leg
			c.Leg = &leg
		}
		out.Custom = &c
	}
	return out
}
