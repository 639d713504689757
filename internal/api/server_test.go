package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/plantline/internal/auth"
	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/infrastructure/config"
	"github.com/nerrad567/plantline/internal/infrastructure/database"
	"github.com/nerrad567/plantline/internal/infrastructure/logging"
	"github.com/nerrad567/plantline/internal/infrastructure/metrics"
	"github.com/nerrad567/plantline/migrations"
)

const testSecret = "test-secret-key-for-jwt-signing"

// testLane completes every command once its gate allows it.
type testLane struct {
	mu    sync.Mutex
	state engine.State
	gate  chan struct{}
	sent  []string
}

func newTestLane() *testLane { return &testLane{state: engine.Standby} }

func (l *testLane) State() engine.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *testLane) Send(_ context.Context, opcode string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = engine.Processing
	l.sent = append(l.sent, opcode)
	return nil
}

func (l *testLane) Await(ctx context.Context, opcode string) (engine.Completion, error) {
	l.mu.Lock()
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return engine.Completion{}, ctx.Err()
		}
	}

	l.mu.Lock()
	l.state = engine.Standby
	l.mu.Unlock()

	c := engine.Completion{Opcode: opcode}
	if strings.HasPrefix(opcode, command.ReadPropertiesVerb) {
		// Slot 2 holds a red source; every other slot is empty.
		id := strings.TrimPrefix(opcode, command.ReadPropertiesVerb+"_SLOT")
		c.Tokens = []string{command.DiscoveryMarker, id, "", "empty"}
		if id == "2" {
			c.Tokens = []string{command.DiscoveryMarker, id, "red", "productSource"}
		}
	}
	return c, nil
}

func (l *testLane) opcodes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}

type testServer struct {
	srv    *Server
	h      http.Handler
	engine *engine.Engine
	runs   *engine.SQLiteRepository
	arm    *testLane
	sledge *testLane
}

func newTestServer(t *testing.T, backends ...engine.Backend) *testServer {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	logger := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	wsCfg := config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
	hub := NewHub(wsCfg, logger)
	runs := engine.NewSQLiteRepository(db.DB)
	eng := engine.New(engine.Deps{Repo: runs, Hub: hub}, engine.Options{PollInterval: time.Millisecond})

	ts := &testServer{engine: eng, runs: runs, arm: newTestLane(), sledge: newTestLane()}
	for _, b := range backends {
		eng.Attach(b, engine.Lanes{Arm: ts.arm, Sledge: ts.sledge})
	}

	srv, err := New(Deps{
		WS:       wsCfg,
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret}},
		Plant:    config.PlantConfig{Hierarchy: "PlantProject"},
		Planner:  config.PlannerConfig{Policy: "automatic"},
		Logger:   logger,
		Engine:   eng,
		Runs:     runs,
		Metrics:  metrics.NewRegistry(),
		Hub:      hub,
		Health:   map[string]HealthChecker{"database": db},
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	ts.srv = srv
	ts.h = srv.Handler()
	return ts
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.IssueToken("test-client", role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, tok, contentType string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

// waitIdle waits for the background run to finish.
func (ts *testServer) waitIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ts.srv.runMu.Lock()
		active := ts.srv.activeRun
		ts.srv.runMu.Unlock()
		if active == "" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("run did not finish")
}

const slotsJSON = `{"rows":[
	{"id":1,"color":"red","type":"productSink"},
	{"id":2,"color":"red","type":"productSource"},
	{"id":3,"color":"","type":"empty"},
	{"id":4,"color":"blue","type":"productSink"},
	{"id":5,"color":"blue","type":"productSource"}
]}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, engine.Virtual)

	rec := ts.do(t, http.MethodGet, "/api/v1/health", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if comps, _ := body["components"].(map[string]any); comps["database"] != "ok" {
		t.Errorf("components = %v", body["components"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return io.ErrUnexpectedEOF }

func TestHealth_Degraded(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.health["mqtt"] = failingCheck{}

	rec := ts.do(t, http.MethodGet, "/api/v1/health", "", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/v1/health", "", "", "")

	rec := ts.do(t, http.MethodGet, "/api/v1/metrics", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `plantline_http_requests_total{method="GET",route="/api/v1/health",status="200"}`) {
		t.Errorf("metrics output lacks the health request:\n%s", rec.Body)
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)
	expired, err := auth.IssueToken("x", auth.RoleViewer, "other-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		tok    string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/runs", "", http.StatusUnauthorized},
		{"foreign token", http.MethodGet, "/api/v1/runs", expired, http.StatusUnauthorized},
		{"viewer reads", http.MethodGet, "/api/v1/runs", token(t, auth.RoleViewer), http.StatusOK},
		{"viewer cannot start", http.MethodPost, "/api/v1/runs/scan", token(t, auth.RoleViewer), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.tok, "", "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestAuth_QueryToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/runs?access_token="+token(t, auth.RoleViewer), "", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestTopology_JSON(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/topology", token(t, auth.RoleViewer), "application/json", slotsJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Content-Type = %q", ct)
	}
	for _, want := range []string{"PlantProject", "Slot5", "Station4"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("document lacks %q", want)
		}
	}
}

func TestTopology_CSV(t *testing.T) {
	ts := newTestServer(t)
	csv := "id;color;type\n1;red;productSink\n2;red;productSource\n"
	rec := ts.do(t, http.MethodPost, "/api/v1/topology", token(t, auth.RoleViewer), "text/csv; charset=utf-8", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestTopology_Invalid(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, auth.RoleViewer)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"no rows", `{"rows":[]}`, http.StatusUnprocessableEntity},
		{"bad color", `{"rows":[{"id":1,"color":"pink","type":"productSink"}]}`, http.StatusUnprocessableEntity},
		{"gap in ids", `{"rows":[{"id":1,"type":"empty"},{"id":3,"type":"empty"}]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/topology", tok, "application/json", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/plan", token(t, auth.RoleViewer), "application/json", slotsJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[planResponse](t, rec)
	if resp.Count != len(resp.Commands) || resp.Count == 0 {
		t.Fatalf("count = %d, commands = %d", resp.Count, len(resp.Commands))
	}
	if resp.Commands[0].Opcode != "moveToSide_SLOT0" {
		t.Errorf("first opcode = %q", resp.Commands[0].Opcode)
	}
}

func TestPlan_Custom(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, auth.RoleViewer)

	auto := decode[planResponse](t, ts.do(t, http.MethodPost, "/api/v1/plan", tok, "application/json", slotsJSON))

	body := strings.Replace(slotsJSON, `{"rows"`, `{"policy":"custom","colors":["blue"],"rows"`, 1)
	rec := ts.do(t, http.MethodPost, "/api/v1/plan", tok, "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	custom := decode[planResponse](t, rec)
	if custom.Count >= auto.Count {
		t.Errorf("custom plan with one color has %d commands, automatic %d", custom.Count, auto.Count)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/plan", tok, "application/json", `{"policy":"greedy","rows":[{"id":1}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown policy status = %d, want 422", rec.Code)
	}
}

func TestSimulate_Opcodes(t *testing.T) {
	ts := newTestServer(t, engine.Virtual)
	body := `{"backends":["virtual"],"opcodes":["moveToSide_SLOT0","reference","home"]}`

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/simulate", token(t, auth.RoleOperator), "application/json", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	accepted := decode[runAccepted](t, rec)
	if accepted.RunID == "" || accepted.Total != 3 {
		t.Fatalf("accepted = %+v", accepted)
	}
	ts.waitIdle(t)

	tok := token(t, auth.RoleViewer)
	rec = ts.do(t, http.MethodGet, "/api/v1/runs/"+accepted.RunID, tok, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run status = %d", rec.Code)
	}
	run := decode[engine.Run](t, rec)
	if run.Status != engine.StatusCompleted || run.Completed != 3 {
		t.Errorf("run = %+v", run)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/runs/"+accepted.RunID+"/commands", tok, "", "")
	cmds := decode[struct {
		Commands []engine.CommandRecord `json:"commands"`
	}](t, rec)
	if len(cmds.Commands) != 3 || cmds.Commands[0].Opcode != "moveToSide_SLOT0" {
		t.Errorf("commands = %+v", cmds.Commands)
	}
	if got := ts.sledge.opcodes(); len(got) != 2 {
		t.Errorf("sledge received %v", got)
	}
}

func TestSimulate_Rows(t *testing.T) {
	ts := newTestServer(t, engine.Virtual)
	body := strings.Replace(slotsJSON, `{"rows"`, `{"backends":["virtual"],"rows"`, 1)

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/simulate", token(t, auth.RoleOperator), "application/json", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	accepted := decode[runAccepted](t, rec)
	ts.waitIdle(t)

	run, err := ts.runs.GetRun(context.Background(), accepted.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != engine.StatusCompleted || run.Completed != accepted.Total {
		t.Errorf("run = %+v, want %d completed", run, accepted.Total)
	}
}

func TestSimulate_Rejects(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, auth.RoleOperator)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"nothing to run", `{}`, http.StatusUnprocessableEntity},
		{"unknown backend", `{"backends":["cloud"],"opcodes":["home"]}`, http.StatusUnprocessableEntity},
		{"unknown opcode", `{"opcodes":["dance"]}`, http.StatusUnprocessableEntity},
		{"no backend connected", `{"opcodes":["home"]}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/runs/simulate", tok, "application/json", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestSimulate_ConflictWhileRunning(t *testing.T) {
	ts := newTestServer(t, engine.Virtual)
	gate := make(chan struct{})
	ts.sledge.gate = gate
	tok := token(t, auth.RoleOperator)

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/simulate", tok, "application/json", `{"opcodes":["home"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, body %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/runs/simulate", tok, "application/json", `{"opcodes":["home"]}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("second status = %d, want 409", rec.Code)
	}

	list := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/v1/runs", tok, "", ""))
	if list["active_run"] == "" {
		t.Error("active_run should be set while running")
	}

	close(gate)
	ts.waitIdle(t)

	rec = ts.do(t, http.MethodPost, "/api/v1/runs/simulate", tok, "application/json", `{"opcodes":["home"]}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("status after finish = %d, want 202", rec.Code)
	}
	ts.waitIdle(t)
}

func TestScan(t *testing.T) {
	ts := newTestServer(t, engine.Physical)

	rec := ts.do(t, http.MethodPost, "/api/v1/runs/scan", token(t, auth.RoleOperator), "", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	accepted := decode[runAccepted](t, rec)
	ts.waitIdle(t)

	tok := token(t, auth.RoleViewer)
	rec = ts.do(t, http.MethodGet, "/api/v1/runs/"+accepted.RunID+"/scan", tok, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scan results status = %d, body %s", rec.Code, rec.Body)
	}
	results := decode[struct {
		Slots []struct {
			ID    int    `json:"id"`
			Color string `json:"color"`
			Type  string `json:"type"`
		} `json:"slots"`
	}](t, rec)
	if len(results.Slots) != command.ScanSlots {
		t.Fatalf("slots = %d, want %d", len(results.Slots), command.ScanSlots)
	}
	if s := results.Slots[1]; s.Color != "red" || s.Type != "productSource" {
		t.Errorf("slot 2 = %+v", s)
	}
}

func TestScan_NoPhysical(t *testing.T) {
	ts := newTestServer(t, engine.Virtual)
	rec := ts.do(t, http.MethodPost, "/api/v1/runs/scan", token(t, auth.RoleOperator), "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRuns_NotFound(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, auth.RoleViewer)
	for _, path := range []string{"/api/v1/runs/missing", "/api/v1/runs/missing/commands", "/api/v1/runs/missing/scan"} {
		if rec := ts.do(t, http.MethodGet, path, tok, "", ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
	if rec := ts.do(t, http.MethodGet, "/api/v1/runs?limit=0", tok, "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Allow-Methods = %q, want the built-in list", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Errorf("Allow-Headers = %q, want Authorization", got)
	}
}
