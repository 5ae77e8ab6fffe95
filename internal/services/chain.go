package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"duty-route-service/internal/domain"
	"duty-route-service/internal/metrics"
	"duty-route-service/internal/ports"
	"duty-route-service/internal/timeclock"
)

// Chain owns the ordered activity list and the single time cursor threaded
// through it. All mutation funnels through recompute: a user edit, a roster
// change, a structural change or a settling external lookup each trigger one
// synchronous left-to-right pass under the chain mutex.
//
// External lookups run as goroutines and settle through a token check: each
// issued lookup carries a monotonically increasing token stored against the
// activity identity, and a settlement whose token is no longer current is
// discarded. This is a generation counter, not cancellation: superseded
// lookups run to completion and their results are ignored.
type Chain struct {
	mu       sync.Mutex
	idx      *domain.TableIndex
	provider ports.RouteProvider
	memo     ports.LegCache
	metrics  *metrics.Collector

	roster     *timeclock.Window
	activities []*domain.Activity

	tokens     map[uuid.UUID]uint64
	lastToken  uint64
	failedLegs map[string]string // LegKey -> failure message, session append-only

	baseCtx context.Context
}

// Snapshot is a detached copy of the chain state.
type Snapshot struct {
	Roster     *timeclock.Window
	Activities []domain.Activity
}

var (
	// ErrLastActivity rejects removing the only remaining activity.
	ErrLastActivity = errors.New("chain: at least one activity must remain")
	// ErrUnknownActivity reports an identity not on the chain.
	ErrUnknownActivity = errors.New("chain: unknown activity")
)

// NewChain creates a chain over the loaded tables, seeded with one empty
// trip activity.
func NewChain(ctx context.Context, idx *domain.TableIndex, provider ports.RouteProvider, memo ports.LegCache, col *metrics.Collector) *Chain {
	c := &Chain{
		idx:        idx,
		provider:   provider,
		memo:       memo,
		metrics:    col,
		tokens:     make(map[uuid.UUID]uint64),
		failedLegs: make(map[string]string),
		baseCtx:    ctx,
	}
	c.activities = []*domain.Activity{domain.NewActivity(domain.KindTrip)}
	if col != nil {
		col.ChainActivities.Set(1)
	}
	return c
}

// SetRoster installs (or clears) the roster window and recomputes the whole
// chain against it.
func (c *Chain) SetRoster(w *timeclock.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w != nil {
		v := *w
		c.roster = &v
	} else {
		c.roster = nil
	}
	c.recomputeLocked(0)
}

// Snapshot returns a deep copy of the roster and activities.
func (c *Chain) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Chain) snapshotLocked() Snapshot {
	out := Snapshot{Activities: make([]domain.Activity, len(c.activities))}
	if c.roster != nil {
		w := *c.roster
		out.Roster = &w
	}
	for i, a := range c.activities {
		out.Activities[i] = a.Clone()
	}
	return out
}

// Append adds a new empty activity of the given kind at the end of the
// chain and returns its identity.
func (c *Chain) Append(kind domain.ActivityKind) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(len(c.activities), kind)
}

// InsertAt adds a new empty activity at position i (clamped into range).
func (c *Chain) InsertAt(i int, kind domain.ActivityKind) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(i, kind)
}

func (c *Chain) insertLocked(i int, kind domain.ActivityKind) uuid.UUID {
	if i < 0 {
		i = 0
	}
	if i > len(c.activities) {
		i = len(c.activities)
	}
	a := domain.NewActivity(kind)
	c.activities = append(c.activities, nil)
	copy(c.activities[i+1:], c.activities[i:])
	c.activities[i] = a
	if c.metrics != nil {
		c.metrics.ChainActivities.Set(float64(len(c.activities)))
	}
	// Structural change: recompute everything.
	c.recomputeLocked(0)
	return a.ID
}

// Remove deletes the activity with the given identity. The chain never
// shrinks below one activity.
func (c *Chain) Remove(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.activities) <= 1 {
		return ErrLastActivity
	}
	i := c.indexLocked(id)
	if i < 0 {
		return ErrUnknownActivity
	}
	c.activities = append(c.activities[:i], c.activities[i+1:]...)
	delete(c.tokens, id)
	if c.metrics != nil {
		c.metrics.ChainActivities.Set(float64(len(c.activities)))
	}
	c.recomputeLocked(0)
	return nil
}

// Edit applies fn to the identified activity under the chain lock, then
// recomputes from that activity onward. fn mutates configured payload
// fields only; derived times are overwritten by the recompute pass.
func (c *Chain) Edit(id uuid.UUID, fn func(*domain.Activity) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return ErrUnknownActivity
	}
	if err := fn(c.activities[i]); err != nil {
		return err
	}
	c.recomputeLocked(i)
	return nil
}

func (c *Chain) indexLocked(id uuid.UUID) int {
	for i, a := range c.activities {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// anchor is the zero point of the duty's linear timeline: the roster start,
// or midnight when no roster is configured.
func (c *Chain) anchor() timeclock.Minute {
	if c.roster != nil {
		return c.roster.Start
	}
	return 0
}

// rel maps a clock time onto the duty-relative timeline so "before" and
// "after" stay well defined across midnight.
func (c *Chain) rel(t timeclock.Minute) int {
	return timeclock.ForwardDistance(c.anchor(), t)
}

// cursorBefore folds the settled ends of activities[0:i] into the cursor an
// activity at index i starts from. Stalled activities leave it unchanged;
// an endless school run advances it to its start.
func (c *Chain) cursorBefore(i int) timeclock.Minute {
	cursor := c.anchor()
	for j := 0; j < i && j < len(c.activities); j++ {
		a := c.activities[j]
		switch {
		case a.End != nil:
			cursor = *a.End
		case a.Kind == domain.KindSchoolRun && a.Start != nil:
			cursor = *a.Start
		}
	}
	return cursor
}

func (c *Chain) recomputeLocked(from int) {
	started := time.Now()
	if from < 0 {
		from = 0
	}
	cursor := c.cursorBefore(from)
	for i := from; i < len(c.activities); i++ {
		cursor = c.step(c.activities[i], cursor)
	}
	if c.metrics != nil {
		c.metrics.ChainRecomputes.Inc()
		c.metrics.RecomputeSeconds.Observe(time.Since(started).Seconds())
	}
}

// step applies the transition rule for one activity against the running
// cursor and returns the cursor for its successor.
func (c *Chain) step(a *domain.Activity, cursor timeclock.Minute) timeclock.Minute {
	switch a.Kind {
	case domain.KindTrip:
		return c.stepTrip(a, cursor)
	case domain.KindBreak, domain.KindSignOn, domain.KindSignOff:
		return resolveTimed(a, cursor, a.Pause.Minutes)
	case domain.KindReposition:
		return resolveTimed(a, cursor, a.Reposition.Minutes)
	case domain.KindSchoolRun:
		return c.stepSchoolRun(a, cursor)
	case domain.KindCustomLeg:
		custom := a.Custom
		if custom.Origin.Name == "" || custom.Dest.Name == "" {
			clearDerived(a)
			return cursor
		}
		return c.stepExternalLeg(a, cursor, custom.Origin.Coord, custom.Dest.Coord, &custom.Leg, &custom.AttemptKey)
	}
	return cursor
}

func resolveTimed(a *domain.Activity, cursor timeclock.Minute, minutes int) timeclock.Minute {
	if minutes < 0 {
		minutes = 0
	}
	end := cursor.Add(minutes)
	a.Start = domain.MinutePtr(cursor)
	a.End = domain.MinutePtr(end)
	a.State = domain.StateResolved
	a.FailureMessage = ""
	return end
}

func clearDerived(a *domain.Activity) {
	a.Start = nil
	a.End = nil
	a.State = domain.StateUnconfigured
	a.FailureMessage = ""
}

func (c *Chain) stepTrip(a *domain.Activity, cursor timeclock.Minute) timeclock.Minute {
	t := a.Trip

	if t.CustomDest != nil {
		if t.DepName == "" {
			clearDerived(a)
			return cursor
		}
		stop, ok := c.idx.StopByName(t.DepName)
		if !ok {
			clearDerived(a)
			return cursor
		}
		return c.stepExternalLeg(a, cursor, stop.Coordinates(), t.CustomDest.Coord, &t.Leg, &t.AttemptKey)
	}

	if t.RouteID == "" || t.DepName == "" || t.DestName == "" {
		c.clearTrip(a)
		return cursor
	}

	match, ok := SelectTrip(c.idx, t.RouteID, t.DepName, t.DestName, c.roster, cursor)
	if !ok {
		// A selector miss is not an error: clear the resolved fields and
		// leave the cursor where it was.
		c.clearTrip(a)
		return cursor
	}

	t.TripID = match.TripID
	t.Depart = domain.MinutePtr(match.Depart)
	t.Arrive = domain.MinutePtr(match.Arrive)

	depart := match.Depart
	if t.DepartOverride != nil {
		depart = c.clampIntoRoster(*t.DepartOverride)
	}
	arrive := match.Arrive
	if t.ArriveOverride != nil {
		arrive = c.clampIntoRoster(*t.ArriveOverride)
	}

	a.Start = domain.MinutePtr(depart)
	a.End = domain.MinutePtr(arrive)
	a.State = domain.StateResolved
	a.FailureMessage = ""
	return arrive
}

func (c *Chain) clearTrip(a *domain.Activity) {
	a.Trip.TripID = ""
	a.Trip.Depart = nil
	a.Trip.Arrive = nil
	clearDerived(a)
}

// clampIntoRoster clamps a user override into the active roster window.
// Overrides are never dropped, only clamped.
func (c *Chain) clampIntoRoster(t timeclock.Minute) timeclock.Minute {
	if c.roster == nil {
		return t
	}
	return c.roster.Clamp(t)
}

func (c *Chain) stepSchoolRun(a *domain.Activity, cursor timeclock.Minute) timeclock.Minute {
	s := a.School

	if s.Start == nil {
		s.Start = domain.MinutePtr(cursor)
	}
	// The run must start at or after the cursor on the duty timeline.
	if c.rel(*s.Start) <= c.rel(cursor) {
		s.Start = domain.MinutePtr(cursor)
	}
	*s.Start = c.clampIntoRoster(*s.Start)

	if s.End != nil {
		*s.End = c.clampIntoRoster(*s.End)
		if c.rel(*s.End) < c.rel(*s.Start) {
			*s.End = *s.Start
		}
	}

	a.Start = domain.MinutePtr(*s.Start)
	a.FailureMessage = ""
	if s.End != nil {
		a.End = domain.MinutePtr(*s.End)
		a.State = domain.StateResolved
		return *s.End
	}
	// Incomplete school run: the chain stalls at its start until the user
	// supplies an end.
	a.End = nil
	a.State = domain.StateUnconfigured
	return *s.Start
}

// stepExternalLeg drives a Trip-with-custom-destination or a CustomLeg
// through Resolving/Resolved/Failed. legp and keyp point at the payload's
// settled leg and attempt key; a lookup is issued only when the
// (origin, dest) pair differs from the recorded attempt.
func (c *Chain) stepExternalLeg(
	a *domain.Activity,
	cursor timeclock.Minute,
	origin, dest domain.Coordinates,
	legp **domain.Leg,
	keyp *string,
) timeclock.Minute {
	key := domain.LegKey(origin, dest)

	if *keyp == key {
		switch {
		case *legp != nil:
			mins := int(math.Round(float64((*legp).DurationSeconds) / 60))
			end := cursor.Add(mins)
			a.Start = domain.MinutePtr(cursor)
			a.End = domain.MinutePtr(end)
			a.State = domain.StateResolved
			a.FailureMessage = ""
			return end
		case a.State == domain.StateFailed:
			// Blocked until the user changes the pair.
			a.Start = nil
			a.End = nil
			return cursor
		default:
			// Same pair still in flight: refresh the provisional start and
			// keep waiting. The outstanding token stays valid.
			a.Start = domain.MinutePtr(cursor)
			a.End = nil
			a.State = domain.StateResolving
			return cursor
		}
	}

	*keyp = key
	*legp = nil

	if msg, failed := c.failedLegs[key]; failed {
		a.State = domain.StateFailed
		a.FailureMessage = msg
		a.Start = nil
		a.End = nil
		return cursor
	}

	a.State = domain.StateResolving
	a.FailureMessage = ""
	a.Start = domain.MinutePtr(cursor)
	a.End = nil

	c.lastToken++
	token := c.lastToken
	c.tokens[a.ID] = token
	c.launchLookup(a.ID, token, key, origin, dest)
	return cursor
}

func (c *Chain) launchLookup(id uuid.UUID, token uint64, key string, origin, dest domain.Coordinates) {
	go func() {
		if c.memo != nil {
			leg, ok, err := c.memo.Get(c.baseCtx, key)
			if err != nil {
				log.Printf("leg cache read failed key=%s err=%v", key, err)
			}
			if err == nil && ok {
				if c.metrics != nil {
					c.metrics.LegCacheHits.Inc()
				}
				c.settle(id, token, key, leg, nil)
				return
			}
			if c.metrics != nil {
				c.metrics.LegCacheMisses.Inc()
			}
		}

		started := time.Now()
		leg, err := c.provider.Route(c.baseCtx, origin, dest)
		if c.metrics != nil {
			c.metrics.Lookups.Inc()
			c.metrics.LookupSeconds.Observe(time.Since(started).Seconds())
		}
		if err != nil {
			if c.metrics != nil {
				c.metrics.LookupErrs.Inc()
			}
			c.settle(id, token, key, domain.Leg{}, fmt.Errorf("route %s: %w", key, err))
			return
		}
		if c.memo != nil {
			if err := c.memo.Put(c.baseCtx, key, leg); err != nil {
				log.Printf("leg cache write failed key=%s err=%v", key, err)
			}
		}
		c.settle(id, token, key, leg, nil)
	}()
}

// settle applies a lookup result. A settlement only takes effect while its
// token is still the current one for the activity identity; anything else
// has been superseded by a newer recomputation and is discarded. Callbacks
// write only their own activity's leaf fields and then request a fresh
// recomputation; they never touch the cursor directly.
func (c *Chain) settle(id uuid.UUID, token uint64, key string, leg domain.Leg, lookupErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokens[id] != token {
		if c.metrics != nil {
			c.metrics.StaleDiscards.Inc()
		}
		return
	}
	i := c.indexLocked(id)
	if i < 0 {
		return
	}
	a := c.activities[i]

	var legp **domain.Leg
	var keyp *string
	switch {
	case a.Kind == domain.KindTrip && a.Trip != nil:
		legp, keyp = &a.Trip.Leg, &a.Trip.AttemptKey
	case a.Kind == domain.KindCustomLeg && a.Custom != nil:
		legp, keyp = &a.Custom.Leg, &a.Custom.AttemptKey
	default:
		return
	}

	if lookupErr != nil {
		c.failedLegs[key] = lookupErr.Error()
		*legp = nil
		*keyp = key
		a.State = domain.StateFailed
		a.FailureMessage = lookupErr.Error()
	} else {
		v := leg
		*legp = &v
		*keyp = key
		a.State = domain.StateResolved
		a.FailureMessage = ""
	}

	// Downstream activities shift (or fall back to the pre-leg cursor on
	// failure) through an ordinary recomputation from this index.
	c.recomputeLocked(i)
}
