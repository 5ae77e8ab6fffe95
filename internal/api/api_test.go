package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"duty-route-service/internal/adapters/cache"
	"duty-route-service/internal/adapters/routing"
	"duty-route-service/internal/api/dto"
	"duty-route-service/internal/api/handlers"
	"duty-route-service/internal/metrics"
	"duty-route-service/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	app := handlers.NewApp(
		context.Background(),
		&routing.MockRouteProvider{},
		cache.NewMemoryLegCache(64),
		metrics.NewCollector(),
	)
	srv := httptest.NewServer(NewRouter(app))
	t.Cleanup(srv.Close)
	return srv
}

func corridorArchive(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"sA,Alpha Station,0,0\nsB,Bravo Depot,0,1\nsC,Charlie Point,0,2\n",
		"trips.txt": "route_id,trip_id,direction_id,shape_id\nr1,t1,0,S1\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time,timepoint\n" +
			"t1,sA,1,,06:15:00,1\nt1,sB,2,06:30:00,06:30:00,0\nt1,sC,3,06:45:00,,1\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"S1,0,0,1\nS1,0,1,2\nS1,0,2,3\n",
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func doJSON(t *testing.T, method, url, body string, wantStatus int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var res map[string]string
	doJSON(t, http.MethodGet, srv.URL+"/health", "", http.StatusOK, &res)
	if res["status"] != "ok" {
		t.Fatalf("health = %v", res)
	}
}

func TestChainBeforeTablesLoad(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodGet, srv.URL+"/routes", "", http.StatusConflict, nil)
	doJSON(t, http.MethodGet, srv.URL+"/duty", "", http.StatusConflict, nil)
}

func TestDutyFlow(t *testing.T) {
	srv := newTestServer(t)

	// Load the transit export.
	resp, err := http.Post(srv.URL+"/tables", "application/zip", bytes.NewReader(corridorArchive(t)))
	if err != nil {
		t.Fatalf("upload tables: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload tables status = %d", resp.StatusCode)
	}
	var up dto.UploadTablesResponse
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if up.Trips != 1 || up.Stops != 3 {
		t.Fatalf("upload counts = %+v", up)
	}

	var routes dto.RoutesResponse
	doJSON(t, http.MethodGet, srv.URL+"/routes", "", http.StatusOK, &routes)
	if len(routes.RouteIDs) != 1 || routes.RouteIDs[0] != "r1" {
		t.Fatalf("routes = %v, want [r1]", routes.RouteIDs)
	}

	// Set the roster and configure the seeded trip activity.
	var chain dto.ChainResponse
	doJSON(t, http.MethodPut, srv.URL+"/duty/roster",
		`{"start":"06:00","end":"10:00"}`, http.StatusOK, &chain)
	if len(chain.Activities) != 1 {
		t.Fatalf("activities = %d, want the seeded trip", len(chain.Activities))
	}
	tripID := chain.Activities[0].ID

	doJSON(t, http.MethodPut, srv.URL+"/duty/activities/"+tripID,
		`{"route_id":"r1","dep_name":"Alpha Station","dest_name":"Charlie Point"}`,
		http.StatusOK, &chain)
	trip := chain.Activities[0]
	if trip.State != "resolved" || trip.TripID != "t1" {
		t.Fatalf("trip = %+v, want resolved t1", trip)
	}
	if trip.Start != "06:15" || trip.End != "06:45" {
		t.Fatalf("trip times = %s-%s, want 06:15-06:45", trip.Start, trip.End)
	}

	// Append a break and size it.
	doJSON(t, http.MethodPost, srv.URL+"/duty/activities",
		`{"kind":"break"}`, http.StatusOK, &chain)
	if len(chain.Activities) != 2 {
		t.Fatalf("activities = %d, want 2", len(chain.Activities))
	}
	doJSON(t, http.MethodPut, srv.URL+"/duty/activities/"+chain.Activities[1].ID,
		`{"minutes":10}`, http.StatusOK, &chain)
	br := chain.Activities[1]
	if br.Start != "06:45" || br.End != "06:55" {
		t.Fatalf("break times = %s-%s, want 06:45-06:55", br.Start, br.End)
	}

	// Generate both documents.
	var out services.Output
	doJSON(t, http.MethodPost, srv.URL+"/duty/generate", "", http.StatusOK, &out)
	if len(out.Schedule) != 2 {
		t.Fatalf("schedule rows = %d, want 2", len(out.Schedule))
	}
	for i, entry := range out.Schedule {
		if entry.RunNo != i+1 {
			t.Fatalf("runNo[%d] = %d, want %d", i, entry.RunNo, i+1)
		}
	}
	if len(out.Routes) != 1 {
		t.Fatalf("route records = %d, want 1", len(out.Routes))
	}
}

func TestRemoveLastActivityRejected(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/tables", "application/zip", bytes.NewReader(corridorArchive(t)))
	if err != nil {
		t.Fatalf("upload tables: %v", err)
	}
	resp.Body.Close()

	var chain dto.ChainResponse
	doJSON(t, http.MethodGet, srv.URL+"/duty", "", http.StatusOK, &chain)
	url := fmt.Sprintf("%s/duty/activities/%s", srv.URL, chain.Activities[0].ID)
	doJSON(t, http.MethodDelete, url, "", http.StatusBadRequest, nil)
}

func TestGenerateEmptyScheduleIsUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/tables", "application/zip", bytes.NewReader(corridorArchive(t)))
	if err != nil {
		t.Fatalf("upload tables: %v", err)
	}
	resp.Body.Close()

	// The seeded trip is unconfigured: nothing produces a schedule row.
	doJSON(t, http.MethodPost, srv.URL+"/duty/generate", "", http.StatusUnprocessableEntity, nil)
}
