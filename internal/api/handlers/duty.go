package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"duty-route-service/internal/api/dto"
	"duty-route-service/internal/domain"
	"duty-route-service/internal/services"
	"duty-route-service/internal/timeclock"
)

// DutyHandler exposes the duty chain: roster, activities and the final
// document generation. Handlers stay thin; the chain owns all semantics.
type DutyHandler struct {
	App *App
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// Roster handles PUT /duty/roster.
func (h *DutyHandler) Roster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", http.MethodPut)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	chain, err := h.App.Chain()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	var req dto.RosterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start, err := timeclock.Parse(req.Start)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("start: %v", err))
		return
	}
	end, err := timeclock.Parse(req.End)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("end: %v", err))
		return
	}

	chain.SetRoster(&timeclock.Window{Start: start, End: end})
	h.writeChain(w, r, chain)
}

// Chain handles GET /duty.
func (h *DutyHandler) Chain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	chain, err := h.App.Chain()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	h.writeChain(w, r, chain)
}

// Activities handles POST /duty/activities.
func (h *DutyHandler) Activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	chain, err := h.App.Chain()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	var req dto.CreateActivityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	kind, err := parseKind(req.Kind)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var id uuid.UUID
	if req.Position != nil {
		id = chain.InsertAt(*req.Position, kind)
	} else {
		id = chain.Append(kind)
	}

	log.Printf("activity created id=%s kind=%s", id, kind)
	h.writeChain(w, r, chain)
}

// ActivityByID handles PUT and DELETE on /duty/activities/{id}.
func (h *DutyHandler) ActivityByID(w http.ResponseWriter, r *http.Request) {
	chain, err := h.App.Chain()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/duty/activities/")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid activity id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.editActivity(w, r, chain, id)
	case http.MethodDelete:
		switch err := chain.Remove(id); {
		case errors.Is(err, services.ErrLastActivity):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUnknownActivity):
			writeError(w, r, http.StatusNotFound, err.Error())
		case err != nil:
			log.Printf("remove activity failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		default:
			h.writeChain(w, r, chain)
		}
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *DutyHandler) editActivity(w http.ResponseWriter, r *http.Request, chain *services.Chain, id uuid.UUID) {
	var req dto.EditActivityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := chain.Edit(id, func(a *domain.Activity) error {
		return applyEdit(h.App, a, req)
	})
	switch {
	case errors.Is(err, services.ErrUnknownActivity):
		writeError(w, r, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.writeChain(w, r, chain)
	}
}

// Generate handles POST /duty/generate.
func (h *DutyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	chain, err := h.App.Chain()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	idx, err := h.App.Index()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	out, err := services.Generate(idx, chain.Snapshot())
	switch {
	case errors.Is(err, services.ErrEmptySchedule):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		log.Printf("generate failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, r, http.StatusOK, out)
	}
}

func (h *DutyHandler) writeChain(w http.ResponseWriter, r *http.Request, chain *services.Chain) {
	snap := chain.Snapshot()

	res := dto.ChainResponse{Activities: make([]dto.ActivityResponse, 0, len(snap.Activities))}
	if snap.Roster != nil {
		res.Roster = &dto.RosterResponse{
			Start: snap.Roster.Start.Format(),
			End:   snap.Roster.End.Format(),
		}
	}
	for _, a := range snap.Activities {
		res.Activities = append(res.Activities, activityResponse(a))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func activityResponse(a domain.Activity) dto.ActivityResponse {
	res := dto.ActivityResponse{
		ID:             a.ID.String(),
		Kind:           a.Kind.String(),
		State:          a.State.String(),
		FailureMessage: a.FailureMessage,
	}
	if a.Start != nil {
		res.Start = a.Start.Format()
	}
	if a.End != nil {
		res.End = a.End.Format()
	}
	switch {
	case a.Trip != nil:
		res.RouteID = a.Trip.RouteID
		res.DepName = a.Trip.DepName
		res.DestName = a.Trip.DestName
		res.TripID = a.Trip.TripID
	case a.Pause != nil:
		res.Minutes = a.Pause.Minutes
	case a.Reposition != nil:
		res.Minutes = a.Reposition.Minutes
		res.DestName = a.Reposition.Dest.Name
	case a.School != nil:
		res.RunPathID = a.School.Path.ID
	case a.Custom != nil:
		res.DepName = a.Custom.Origin.Name
		res.DestName = a.Custom.Dest.Name
	}
	return res
}

func parseKind(s string) (domain.ActivityKind, error) {
	switch s {
	case "trip":
		return domain.KindTrip, nil
	case "break":
		return domain.KindBreak, nil
	case "sign_on":
		return domain.KindSignOn, nil
	case "sign_off":
		return domain.KindSignOff, nil
	case "reposition":
		return domain.KindReposition, nil
	case "school_run":
		return domain.KindSchoolRun, nil
	case "custom_leg":
		return domain.KindCustomLeg, nil
	}
	return 0, fmt.Errorf("unknown activity kind %q", s)
}

func toPlace(p dto.PlaceRequest) domain.Place {
	return domain.Place{
		Name:   p.Name,
		StopID: p.StopID,
		Coord:  domain.Coordinates{Lon: p.Lon, Lat: p.Lat},
	}
}

func parseMinuteField(name string, raw *string) (*timeclock.Minute, error) {
	if raw == nil {
		return nil, nil
	}
	m, err := timeclock.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return domain.MinutePtr(m), nil
}

// applyEdit maps a partial update onto the activity's configured fields.
// Only the fields belonging to the activity's kind are consulted.
func applyEdit(app *App, a *domain.Activity, req dto.EditActivityRequest) error {
	switch a.Kind {
	case domain.KindTrip:
		t := a.Trip
		if req.RouteID != nil {
			t.RouteID = *req.RouteID
		}
		if req.DepName != nil {
			t.DepName = *req.DepName
		}
		if req.DestName != nil {
			t.DestName = *req.DestName
		}
		if req.CustomDest != nil {
			p := toPlace(*req.CustomDest)
			t.CustomDest = &p
		}
		if req.ClearCustom {
			t.CustomDest = nil
		}
		dep, err := parseMinuteField("depart_override", req.DepartOverride)
		if err != nil {
			return err
		}
		if dep != nil {
			t.DepartOverride = dep
		}
		arr, err := parseMinuteField("arrive_override", req.ArriveOverride)
		if err != nil {
			return err
		}
		if arr != nil {
			t.ArriveOverride = arr
		}
		return nil

	case domain.KindBreak, domain.KindSignOn, domain.KindSignOff:
		if req.Minutes != nil {
			if *req.Minutes < 0 {
				return errors.New("minutes must not be negative")
			}
			a.Pause.Minutes = *req.Minutes
		}
		if req.Location != nil {
			p := toPlace(*req.Location)
			a.Pause.Location = &p
		}
		return nil

	case domain.KindReposition:
		if req.Minutes != nil {
			if *req.Minutes < 0 {
				return errors.New("minutes must not be negative")
			}
			a.Reposition.Minutes = *req.Minutes
		}
		if req.Dest != nil {
			a.Reposition.Dest = toPlace(*req.Dest)
		}
		return nil

	case domain.KindSchoolRun:
		if req.RunPathID != nil {
			path, ok := app.FindRunPath(*req.RunPathID)
			if !ok {
				return fmt.Errorf("unknown run path %q", *req.RunPathID)
			}
			a.School.Path = path
		}
		start, err := parseMinuteField("start_time", req.StartTime)
		if err != nil {
			return err
		}
		if start != nil {
			a.School.Start = start
		}
		end, err := parseMinuteField("end_time", req.EndTime)
		if err != nil {
			return err
		}
		if end != nil {
			a.School.End = end
		}
		return nil

	case domain.KindCustomLeg:
		if req.Origin != nil {
			a.Custom.Origin = toPlace(*req.Origin)
		}
		if req.Dest != nil {
			a.Custom.Dest = toPlace(*req.Dest)
		}
		return nil
	}
	return fmt.Errorf("unsupported activity kind %q", a.Kind)
}
