package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]int{"count": 42})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var result map[string]int
	parseJSONResponse(t, recorder, &result)
	if result["count"] != 42 {
		t.Errorf("expected count 42, got %d", result["count"])
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "something went wrong")
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid session", fmt.Errorf("%w: period", attendance.ErrInvalidSession), http.StatusBadRequest},
		{"invalid threshold", attendance.ErrInvalidThreshold, http.StatusBadRequest},
		{"bad dimension", facematch.ErrDimensionMismatch, http.StatusBadRequest},
		{"no face", fingerprint.ErrNoFace, http.StatusBadRequest},
		{"many faces", fingerprint.ErrMultipleFaces, http.StatusBadRequest},
		{"unknown identity", fmt.Errorf("%w: x", database.ErrIdentityNotFound), http.StatusNotFound},
		{"no backend", database.ErrBackendNotInitialized, http.StatusServiceUnavailable},
		{"store down", database.Unavailable("mark present", errors.New("reset")), http.StatusServiceUnavailable},
		{"detector down", fmt.Errorf("%w: timeout", fingerprint.ErrDetector), http.StatusBadGateway},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondServiceError(recorder, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)
			assertStatusCode(t, recorder, tc.expected)
		})
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, 10, 15, 18, 45, 0, 0, time.UTC)

	got, err := parseDate("", now)
	if err != nil || !got.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected today, got %v, %v", got, err)
	}

	got, err = parseDate("2026-02-28", now)
	if err != nil || got.Day() != 28 || got.Month() != time.February {
		t.Errorf("unexpected parse result %v, %v", got, err)
	}

	if _, err := parseDate("28/02/2026", now); err == nil {
		t.Error("expected error for wrong format")
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("/api/v1\r\nfake entry"); got != "/api/v1fake entry" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	useMockBackend(t, nil, nil)

	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "ok" || result["backend"] != "mock" {
		t.Errorf("unexpected health response %v", result)
	}
}
