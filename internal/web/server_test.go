package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

func newTestServer(t *testing.T) (*Server, *mock.MockLedger) {
	t.Helper()
	store := mock.NewMockIdentityStore(
		database.Identity{ID: "s-01", DisplayName: "Student One", Embedding: []float32{1, 0}},
		database.Identity{ID: "s-02", DisplayName: "Student Two", Embedding: []float32{0, 1}},
	)
	ledger := mock.NewMockLedger()
	faculty := mock.NewMockFacultyStore()
	database.RegisterBackend("mock",
		func() database.IdentityWriter { return store },
		func() database.AttendanceStore { return ledger },
		func() database.FacultyStore { return faculty },
	)
	t.Cleanup(database.ResetBackend)

	cfg := &config.Config{
		Embedding: config.EmbeddingConfig{Dim: 2},
		Matching:  config.MatchingConfig{Threshold: 0.4},
		Web:       config.WebConfig{Host: "127.0.0.1", Port: 0},
	}
	svc := attendance.New(gallery.New(store, 2, nil), store, ledger, facematch.NewMatcher(facematch.NewScorer(2), nil), nil)
	return NewServer(cfg, Deps{Service: svc}), ledger
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/identities", http.StatusOK},
		{http.MethodGet, "/api/v1/identities/s-01/report", http.StatusOK},
		{http.MethodGet, "/api/v1/identities/nobody/report", http.StatusNotFound},
		{http.MethodGet, "/api/v1/attendance?date=2026-10-15", http.StatusOK},
		{http.MethodGet, "/api/v1/stats", http.StatusOK},
		{http.MethodGet, "/api/v1/faculty", http.StatusOK},
		{http.MethodPost, "/api/v1/faculty", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/identities", http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			srv.Router().ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))
			if recorder.Code != tc.expected {
				t.Errorf("expected status %d, got %d\nBody: %s", tc.expected, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_MarkThenEndSession(t *testing.T) {
	srv, ledger := newTestServer(t)

	post := func(path string, body any) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		srv.Router().ServeHTTP(recorder, req)
		return recorder
	}

	session := map[string]any{"faculty_id": "F1", "subject": "Math", "period": 4, "date": "2026-10-15"}
	mark := map[string]any{"faculty_id": "F1", "subject": "Math", "period": 4, "date": "2026-10-15",
		"probes": []map[string]any{{"embedding": []float32{0.95, 0.05}}}}

	if rec := post("/api/v1/attendance/mark", mark); rec.Code != http.StatusOK {
		t.Fatalf("mark failed: %d %s", rec.Code, rec.Body.String())
	}

	rec := post("/api/v1/attendance/end-session", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("end session failed: %d %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Result struct {
			AbsentCount int `json:"absent_count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Result.AbsentCount != 1 {
		t.Errorf("expected 1 absent, got %d", result.Result.AbsentCount)
	}
	if ledger.Len() != 2 {
		t.Errorf("expected 2 records, got %d", ledger.Len())
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("expected nosniff header, got %q", recorder.Header().Get("X-Content-Type-Options"))
	}
}
