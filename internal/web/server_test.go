package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/John-MustangGT/vantage/internal/config"
	"github.com/John-MustangGT/vantage/internal/database"
	"github.com/John-MustangGT/vantage/internal/engine"
	"github.com/John-MustangGT/vantage/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, database.ExtendedStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.NewExtendedBoltStore(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("NewExtendedBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	collector := metrics.NewCollector(store)
	eng := engine.NewEngine(cfg, store, collector)

	ctx := context.Background()
	for _, m := range []database.Monitor{
		{ID: "api", Name: "API", Type: database.MonitorHTTP, TeamID: "ops", IsActive: true, Status: true},
		{ID: "db", Name: "Database", Type: database.MonitorPort, TeamID: "ops", IsActive: false, Status: false},
	} {
		m := m
		if err := store.CreateMonitor(ctx, &m); err != nil {
			t.Fatalf("CreateMonitor: %v", err)
		}
	}
	ms := int64(25)
	check := database.Check{MonitorID: "api", CreatedAt: time.Now().Add(-time.Minute), Status: true, ResponseTime: &ms}
	if err := store.CreateCheck(ctx, &check); err != nil {
		t.Fatalf("CreateCheck: %v", err)
	}

	return NewServer(cfg, eng, collector), store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetMonitorStats(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/monitors/api/stats?dateRange=recent&numToDisplay=10&normalize=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var result engine.MonitorStats
	decodeData(t, w, &result)
	if result.Period.Total != 1 || len(result.Checks) != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Checks[0].NormalizedResponseTime == nil {
		t.Error("expected normalized response time")
	}

	if w := do(t, s, http.MethodGet, "/api/v1/monitors/missing/stats", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing monitor status = %d", w.Code)
	}
}

func TestGetUptimeAndHardware(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{
		"/api/v1/monitors/api/uptime?dateRange=week",
		"/api/v1/monitors/api/hardware?dateRange=day",
		"/api/v1/monitors/api/checks?status=true",
	} {
		if w := do(t, s, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("%s: status = %d body = %s", path, w.Code, w.Body.String())
		}
	}
}

func TestIngestCheck(t *testing.T) {
	s, store := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/checks", `{"monitor_id":"api","status":false,"response_time":40}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	monitor, err := store.GetMonitor(context.Background(), "api")
	if err != nil || monitor.Status {
		t.Errorf("monitor after ingest = %+v, %v", monitor, err)
	}

	cases := map[string]struct {
		body string
		want int
	}{
		"malformed":       {`{"monitor_id":`, http.StatusBadRequest},
		"missing monitor": {`{"status":true}`, http.StatusBadRequest},
		"unknown monitor": {`{"monitor_id":"ghost","status":true}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		if w := do(t, s, http.MethodPost, "/api/v1/checks", tc.body); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", name, w.Code, tc.want)
		}
	}
}

func TestGetMonitorsByTeam(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/teams/ops/monitors?rowsPerPage=1&field=name&order=asc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var result engine.TeamMonitors
	decodeData(t, w, &result)
	want := database.MonitorCounts{Total: 2, Up: 1, Down: 1, Paused: 1}
	if result.Summary != want {
		t.Errorf("summary = %+v, want %+v", result.Summary, want)
	}
	if result.FilteredCount != 2 || len(result.FilteredMonitors) != 1 || result.FilteredMonitors[0].ID != "api" {
		t.Errorf("filtered = %d %+v", result.FilteredCount, result.FilteredMonitors)
	}

	w = do(t, s, http.MethodGet, "/api/v1/teams/ops/monitors?type=port", "")
	decodeData(t, w, &result)
	if len(result.Monitors) != 1 || result.Monitors[0].ID != "db" {
		t.Errorf("type filter monitors = %+v", result.Monitors)
	}
}

func TestGetStatusPage(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	published := database.StatusPage{CompanyName: "Acme", URL: "acme", Monitors: []string{"db", "api"}, IsPublished: true}
	draft := database.StatusPage{CompanyName: "Draft", URL: "draft", Monitors: []string{"api"}}
	for _, p := range []*database.StatusPage{&published, &draft} {
		if err := store.CreateStatusPage(ctx, p); err != nil {
			t.Fatalf("CreateStatusPage: %v", err)
		}
	}

	w := do(t, s, http.MethodGet, "/api/v1/status-pages/acme", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var view engine.StatusPageView
	decodeData(t, w, &view)
	if len(view.Monitors) != 2 || view.Monitors[0].ID != "db" {
		t.Errorf("monitors = %+v", view.Monitors)
	}

	if w := do(t, s, http.MethodGet, "/api/v1/status-pages/draft", ""); w.Code != http.StatusNotFound {
		t.Errorf("draft status = %d", w.Code)
	}
}

func TestMaintenanceEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	start := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	end := time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)

	bad := `{"name":"backwards","start":"` + end + `","end":"` + start + `"}`
	if w := do(t, s, http.MethodPost, "/api/v1/monitors/api/maintenance", bad); w.Code != http.StatusBadRequest {
		t.Errorf("invalid window status = %d", w.Code)
	}

	good := `{"name":"deploy","start":"` + start + `","end":"` + end + `"}`
	w := do(t, s, http.MethodPost, "/api/v1/monitors/api/maintenance", good)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body.String())
	}
	var created database.MaintenanceWindow
	decodeData(t, w, &created)
	if created.ID == "" || !created.Active {
		t.Errorf("created = %+v", created)
	}

	w = do(t, s, http.MethodGet, "/api/v1/monitors/api/maintenance", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"in_window":true`) {
		t.Errorf("list status = %d body = %s", w.Code, w.Body.String())
	}

	if w := do(t, s, http.MethodDelete, "/api/v1/maintenance/"+created.ID, ""); w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/v1/maintenance/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	if w := do(t, s, http.MethodDelete, "/api/v1/admin/checks?before=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad cutoff status = %d", w.Code)
	}

	before := time.Now().UTC().Format(time.RFC3339)
	w := do(t, s, http.MethodDelete, "/api/v1/admin/checks?before="+before, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"deleted":1`) {
		t.Errorf("purge status = %d body = %s", w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, "/api/v1/admin/database", "")
	if w.Code != http.StatusOK {
		t.Fatalf("database status = %d", w.Code)
	}
	var dbStats database.DatabaseStats
	decodeData(t, w, &dbStats)
	if dbStats.TotalMonitors != 2 || dbStats.TotalChecks != 0 {
		t.Errorf("db stats = %+v", dbStats)
	}

	if w := do(t, s, http.MethodPost, "/api/v1/admin/compact", ""); w.Code != http.StatusOK {
		t.Errorf("compact status = %d body = %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodDelete, "/api/v1/admin/monitors/ghost/checks", ""); w.Code != http.StatusNotFound {
		t.Errorf("purge unknown monitor status = %d", w.Code)
	}
}

func TestBuildInfo(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/build-info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info BuildInfo
	decodeData(t, w, &info)
	if info.Version != Version || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestWebSocketReceivesIngest(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.hub.Len() != 1 {
		t.Fatal("client was not registered")
	}

	if w := do(t, s, http.MethodPost, "/api/v1/checks", `{"monitor_id":"api","status":true}`); w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", w.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "check.ingested" {
		t.Errorf("message type = %q", msg.Type)
	}
}
