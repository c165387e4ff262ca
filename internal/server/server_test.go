package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fieldops/punchcard/internal/db"
	"github.com/fieldops/punchcard/internal/models"
)

type testServer struct {
	*Server
	task *models.Task
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "punchcard.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	tasks := db.NewTaskService(gdb)
	task, err := tasks.CreateTask("Replace compressor", "WO-100", "Acme HVAC")
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(db.NewSessionService(gdb), tasks, slog.Default())
	return &testServer{Server: srv, task: task}
}

func (ts *testServer) request(t *testing.T, method, path string, body any, person string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if person != "" {
		req.Header.Set("X-Person-ID", person)
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Error   string          `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	var out T
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &out); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return out
}

func (ts *testServer) checkIn(t *testing.T, person, clientSessionID string) models.CheckInSession {
	t.Helper()
	rec := ts.request(t, http.MethodPost, "/time-entries/checkin", map[string]any{
		"taskId":          ts.task.ID,
		"action":          "checkin",
		"clientSessionId": clientSessionID,
	}, person)
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in returned %d: %s", rec.Code, rec.Body.String())
	}
	return decodeData[models.CheckInSession](t, rec)
}

func TestCheckInRequiresPersonHeader(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	rec := ts.request(t, http.MethodPost, "/time-entries/checkin", map[string]any{"taskId": ts.task.ID}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestCheckInConflict(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.checkIn(t, "tech-1", "client_1_aaa")

	rec := ts.request(t, http.MethodPost, "/time-entries/checkin", map[string]any{
		"taskId":          ts.task.ID,
		"action":          "checkin",
		"clientSessionId": "client_2_bbb",
	}, "tech-1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate check-in, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckInReplayIsIdempotent(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	first := ts.checkIn(t, "tech-1", "client_1_aaa")

	rec := ts.request(t, http.MethodPost, "/time-entries/checkin", map[string]any{
		"taskId":          ts.task.ID,
		"action":          "checkin",
		"clientSessionId": "client_1_aaa",
	}, "tech-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	replayed := decodeData[models.CheckInSession](t, rec)
	if replayed.SessionID != first.SessionID {
		t.Errorf("expected replay to return session %s, got %s", first.SessionID, replayed.SessionID)
	}
}

func TestActiveSessionQuery(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	path := "/time-entries?taskId=" + strconv.FormatUint(uint64(ts.task.ID), 10) + "&active=true"
	rec := ts.request(t, http.MethodGet, path, nil, "tech-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("active query returned %d", rec.Code)
	}
	if got := decodeData[*models.CheckInSession](t, rec); got != nil {
		t.Errorf("expected null active session, got %+v", got)
	}

	created := ts.checkIn(t, "tech-1", "")
	rec = ts.request(t, http.MethodGet, path, nil, "tech-1")
	got := decodeData[*models.CheckInSession](t, rec)
	if got == nil || got.SessionID != created.SessionID {
		t.Errorf("expected active session %s, got %+v", created.SessionID, got)
	}

	// Another person sees no active session for the same task.
	rec = ts.request(t, http.MethodGet, path, nil, "tech-2")
	if got := decodeData[*models.CheckInSession](t, rec); got != nil {
		t.Errorf("expected no session for tech-2, got %+v", got)
	}
}

func TestCheckOutFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := ts.checkIn(t, "tech-1", "")

	rec := ts.request(t, http.MethodPost, "/time-entries/checkout", map[string]any{
		"taskId":      ts.task.ID,
		"workOrderId": ts.task.WorkOrderID,
		"action":      "checkout",
		"sessionId":   session.SessionID,
		"date":        "2025-06-02T09:00:00Z",
		"hours":       1.5,
		"notes":       "compressor replaced",
	}, "tech-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout returned %d: %s", rec.Code, rec.Body.String())
	}
	entry := decodeData[models.TimeEntry](t, rec)
	if entry.Hours != 1.5 {
		t.Errorf("expected 1.5 hours on entry, got %v", entry.Hours)
	}

	// Second checkout of the same session is a 404.
	rec = ts.request(t, http.MethodPost, "/time-entries/checkout", map[string]any{
		"sessionId": session.SessionID,
		"hours":     1.5,
	}, "tech-1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for closed session, got %d", rec.Code)
	}
}

func TestEntriesReportEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := ts.checkIn(t, "tech-1", "")

	rec := ts.request(t, http.MethodPost, "/time-entries/checkout", map[string]any{
		"action":    "checkout",
		"sessionId": session.SessionID,
		"date":      "2025-06-02T09:00:00Z",
		"hours":     1.5,
	}, "tech-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout returned %d: %s", rec.Code, rec.Body.String())
	}

	// Default window covers today's entry.
	rec = ts.request(t, http.MethodGet, "/time-entries/report", nil, "tech-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("report returned %d: %s", rec.Code, rec.Body.String())
	}
	entries := decodeData[[]models.TimeEntry](t, rec)
	if len(entries) != 1 || entries[0].Hours != 1.5 {
		t.Fatalf("unexpected report entries: %+v", entries)
	}

	// Another person's report is empty.
	rec = ts.request(t, http.MethodGet, "/time-entries/report", nil, "tech-2")
	if got := decodeData[[]models.TimeEntry](t, rec); len(got) != 0 {
		t.Errorf("expected no entries for tech-2, got %+v", got)
	}

	// A window in the past excludes it.
	rec = ts.request(t, http.MethodGet, "/time-entries/report?from=2020-01-01&to=2020-01-07", nil, "tech-1")
	if got := decodeData[[]models.TimeEntry](t, rec); len(got) != 0 {
		t.Errorf("expected no entries in past window, got %+v", got)
	}

	rec = ts.request(t, http.MethodGet, "/time-entries/report?from=yesterday", nil, "tech-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed date, got %d", rec.Code)
	}
}

func TestHeartbeatEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := ts.checkIn(t, "tech-1", "")

	rec := ts.request(t, http.MethodPost, "/time-entries/heartbeat", map[string]any{
		"sessionId": session.SessionID,
	}, "tech-1")
	if rec.Code != http.StatusOK {
		t.Errorf("heartbeat returned %d", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, "/time-entries/heartbeat", map[string]any{
		"sessionId": "srv-missing",
	}, "tech-1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestEmergencyCheckoutEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := ts.checkIn(t, "tech-1", "client_7_xyz")

	rec := ts.request(t, http.MethodPost, "/time-entries/emergency-checkout", map[string]any{
		"sessionId": session.SessionID,
		"notes":     "stale after offline period",
	}, "tech-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("emergency checkout returned %d: %s", rec.Code, rec.Body.String())
	}
	entry := decodeData[models.TimeEntry](t, rec)
	if entry.Source != "emergency" {
		t.Errorf("expected emergency entry, got %q", entry.Source)
	}
}

func TestTaskEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/tasks", nil, "tech-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("tasks returned %d", rec.Code)
	}
	tasks := decodeData[[]models.Task](t, rec)
	if len(tasks) != 1 || tasks[0].Title != "Replace compressor" {
		t.Errorf("unexpected task list: %+v", tasks)
	}

	rec = ts.request(t, http.MethodGet, "/tasks/9999", nil, "tech-1")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown task, got %d", rec.Code)
	}
}
