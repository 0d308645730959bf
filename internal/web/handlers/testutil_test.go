package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Embedding: config.EmbeddingConfig{Dim: 2},
		Matching:  config.MatchingConfig{Threshold: 0.4},
	}
}

// testIdentities is a two-person gallery in two dimensions
func testIdentities() []database.Identity {
	return []database.Identity{
		{ID: "A", DisplayName: "Alžběta Nováková", Embedding: []float32{1, 0}, Model: "buffalo_l"},
		{ID: "B", DisplayName: "Bohumil Hrabal", Embedding: []float32{0, 1}, Model: "buffalo_l"},
	}
}

// useMockBackend registers in-memory stores as the active backend for the duration of the test
func useMockBackend(t *testing.T, store *mock.MockIdentityStore, ledger *mock.MockLedger) {
	t.Helper()
	useMockBackendWithFaculty(t, store, ledger, nil)
}

// useMockBackendWithFaculty is useMockBackend with a caller-provided faculty store
func useMockBackendWithFaculty(t *testing.T, store *mock.MockIdentityStore, ledger *mock.MockLedger, faculty *mock.MockFacultyStore) {
	t.Helper()
	if store == nil {
		store = mock.NewMockIdentityStore()
	}
	if ledger == nil {
		ledger = mock.NewMockLedger()
	}
	if faculty == nil {
		faculty = mock.NewMockFacultyStore()
	}
	database.RegisterBackend("mock",
		func() database.IdentityWriter { return store },
		func() database.AttendanceStore { return ledger },
		func() database.FacultyStore { return faculty },
	)
	t.Cleanup(database.ResetBackend)
}

// newTestService wires the attendance service over the mocks
func newTestService(store *mock.MockIdentityStore, ledger *mock.MockLedger) *attendance.Service {
	g := gallery.New(store, 2, nil)
	return attendance.New(g, store, ledger, facematch.NewMatcher(facematch.NewScorer(2), nil), nil)
}

// fakeDetector returns canned detections
type fakeDetector struct {
	probes []facematch.Probe
	err    error
}

func (f *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*fingerprint.Detection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fingerprint.Detection{Probes: f.probes, Model: "buffalo_l"}, nil
}

func (f *fakeDetector) DetectSingleFace(ctx context.Context, imageData []byte) ([]float32, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	switch len(f.probes) {
	case 0:
		return nil, "", fingerprint.ErrNoFace
	case 1:
		return f.probes[0].Embedding, "buffalo_l", nil
	default:
		return nil, "", fingerprint.ErrMultipleFaces
	}
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a multipart request with form fields and an optional image file
func multipartRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "frame.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(image)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
