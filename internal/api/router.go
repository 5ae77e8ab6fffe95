package api

import (
	"net/http"

	"duty-route-service/internal/api/handlers"
)

// NewRouter wires HTTP handlers over the shared session state and returns
// an http.Handler. This is the API composition root (handlers stay unaware
// of concrete adapters).
func NewRouter(app *handlers.App) http.Handler {
	mux := http.NewServeMux()

	tables := &handlers.TablesHandler{App: app}
	duty := &handlers.DutyHandler{App: app}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/tables", tables.UploadTables)
	mux.HandleFunc("/runpaths", tables.UploadRunPaths)
	mux.HandleFunc("/routes", tables.ListRoutes)
	mux.HandleFunc("/duty", duty.Chain)
	mux.HandleFunc("/duty/roster", duty.Roster)
	mux.HandleFunc("/duty/activities", duty.Activities)
	mux.HandleFunc("/duty/activities/", duty.ActivityByID)
	mux.HandleFunc("/duty/generate", duty.Generate)

	return loggingMiddleware(mux)
}
