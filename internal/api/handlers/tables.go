package handlers

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"duty-route-service/internal/adapters/gtfszip"
	"duty-route-service/internal/adapters/runpaths"
	"duty-route-service/internal/api/dto"
)

// 64 MiB covers real-world transit exports with room to spare.
const maxUploadBytes = 64 << 20

// TablesHandler loads transit exports and off-network run paths into the
// session.
type TablesHandler struct {
	App *App
}

// UploadTables accepts a transit archive, either as a raw zip body or as
// the "tables" part of a multipart form.
func (h *TablesHandler) UploadTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := uploadBody(r, "tables")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tables, err := gtfszip.ParseTables(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		log.Printf("table upload rejected: %v", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.App.SetTables(tables)

	writeJSON(w, r, http.StatusOK, dto.UploadTablesResponse{
		Stops:     len(tables.Stops),
		Trips:     len(tables.Trips),
		StopTimes: len(tables.StopTimes),
		Shapes:    len(tables.Shapes),
		Routes:    len(tables.Routes),
	})
}

// UploadRunPaths accepts a GeoJSON feature collection of off-network
// routes.
func (h *TablesHandler) UploadRunPaths(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	defer r.Body.Close()
	paths, err := runpaths.ParseRunPaths(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		log.Printf("run path upload rejected: %v", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.App.SetRunPaths(paths)

	res := dto.UploadRunPathsResponse{RunPaths: make([]dto.RunPathResponse, 0, len(paths))}
	for _, p := range paths {
		res.RunPaths = append(res.RunPaths, dto.RunPathResponse{
			ID:       p.ID,
			Name:     p.Name,
			DepName:  p.DepName,
			DestName: p.DestName,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ListRoutes returns the distinct route identifiers of the loaded tables.
func (h *TablesHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idx, err := h.App.Index()
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RoutesResponse{RouteIDs: idx.RouteIDs()})
}

// uploadBody reads the request payload: the named multipart part when the
// request is a form upload, the raw body otherwise.
func uploadBody(r *http.Request, field string) ([]byte, error) {
	defer r.Body.Close()

	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile(field)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxUploadBytes))
	}

	return io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
}
