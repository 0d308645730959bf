package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// FaceDetector turns an uploaded image into probes
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*fingerprint.Detection, error)
	DetectSingleFace(ctx context.Context, imageData []byte) ([]float32, string, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, attendance.ErrInvalidSession),
		errors.Is(err, attendance.ErrInvalidThreshold),
		errors.Is(err, facematch.ErrDimensionMismatch),
		errors.Is(err, facematch.ErrDegenerateVector),
		errors.Is(err, fingerprint.ErrNoFace),
		errors.Is(err, fingerprint.ErrMultipleFaces):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, database.ErrIdentityNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, database.ErrFacultyExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, database.ErrBackendNotInitialized):
		status, message = http.StatusServiceUnavailable, "database not configured"
	case errors.Is(err, database.ErrPersistenceUnavailable):
		status, message = http.StatusServiceUnavailable, "attendance store unavailable, retry the request"
	case errors.Is(err, fingerprint.ErrDetector):
		status, message = http.StatusBadGateway, "face detector unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.Named("web").Error().
			Err(err).
			Str("path", sanitizeForLog(r.URL.Path)).
			Int("status", status).
			Msg("request failed")
	}
	respondError(w, status, message)
}

// parseDate parses an optional YYYY-MM-DD value, defaulting to today.
func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return database.SessionDate(now), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return t, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": database.BackendName(),
	})
}
