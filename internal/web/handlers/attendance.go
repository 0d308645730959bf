package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// AttendanceHandler handles marking, closing and viewing attendance
type AttendanceHandler struct {
	config   *config.Config
	service  *attendance.Service
	detector FaceDetector
	now      func() time.Time
}

// NewAttendanceHandler creates a new attendance handler. A nil service means no database is configured.
func NewAttendanceHandler(cfg *config.Config, svc *attendance.Service, detector FaceDetector) *AttendanceHandler {
	return &AttendanceHandler{config: cfg, service: svc, detector: detector, now: time.Now}
}

// SessionRequest identifies the session in request bodies
type SessionRequest struct {
	FacultyID string `json:"faculty_id"`
	Subject   string `json:"subject"`
	Period    int    `json:"period"`
	Date      string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

func (h *AttendanceHandler) session(req SessionRequest) (attendance.Session, error) {
	date, err := parseDate(req.Date, h.now())
	if err != nil {
		return attendance.Session{}, fmt.Errorf("%w: %w", attendance.ErrInvalidSession, err)
	}
	return attendance.Session{
		FacultyID: strings.TrimSpace(req.FacultyID),
		Subject:   strings.TrimSpace(req.Subject),
		Date:      date,
		Period:    req.Period,
	}, nil
}

func (h *AttendanceHandler) threshold(override *float64) float64 {
	if override != nil {
		return *override
	}
	return h.config.Matching.Threshold
}

// ProbeRequest is one detected face supplied by the client
type ProbeRequest struct {
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
	BBox      []float64 `json:"bbox"`
}

// MarkRequest marks attendance from faces the client already detected
type MarkRequest struct {
	SessionRequest
	Threshold *float64       `json:"threshold,omitempty"`
	Probes    []ProbeRequest `json:"probes"`
}

// MarkResponse wraps a frame outcome with an operator-facing message
type MarkResponse struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Outcome *attendance.SessionOutcome `json:"outcome"`
}

// Mark handles POST /api/v1/attendance/mark
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondServiceError(w, r, database.ErrBackendNotInitialized)
		return
	}

	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.session(req.SessionRequest)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	probes := make([]facematch.Probe, len(req.Probes))
	for i, p := range req.Probes {
		probes[i] = facematch.Probe{Embedding: p.Embedding, DetScore: p.DetScore, BBox: p.BBox}
	}

	h.markAndRespond(w, r, probes, session, h.threshold(req.Threshold))
}

// MarkImage handles POST /api/v1/attendance/mark/image (multipart form).
// The frame is sent as the "image" file or as a "face_data" data URL.
func (h *AttendanceHandler) MarkImage(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondServiceError(w, r, database.ErrBackendNotInitialized)
		return
	}

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	period, err := strconv.Atoi(r.FormValue("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "period must be a number")
		return
	}
	session, err := h.session(SessionRequest{
		FacultyID: r.FormValue("faculty_id"),
		Subject:   r.FormValue("subject"),
		Period:    period,
		Date:      r.FormValue("date"),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := session.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	var override *float64
	if s := r.FormValue("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		override = &v
	}

	imageData, err := readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.detector == nil {
		respondError(w, http.StatusServiceUnavailable, "face detector not configured")
		return
	}

	det, err := h.detector.DetectFaces(r.Context(), imageData)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	h.markAndRespond(w, r, det.Probes, session, h.threshold(override))
}

func (h *AttendanceHandler) markAndRespond(w http.ResponseWriter, r *http.Request, probes []facematch.Probe, session attendance.Session, threshold float64) {
	outcome, err := h.service.MarkFromFrame(r.Context(), probes, session, threshold)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MarkResponse{
		Success: outcome.Classification.Success(),
		Message: outcome.Message(),
		Outcome: outcome,
	})
}

// readFrame returns the uploaded image from the "image" file or the "face_data" data URL.
func readFrame(r *http.Request) ([]byte, error) {
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.New("failed to read image")
		}
		return data, nil
	}

	dataURL := r.FormValue("face_data")
	if dataURL == "" {
		return nil, errors.New("image is required")
	}
	if _, payload, ok := strings.Cut(dataURL, ","); ok {
		dataURL = payload
	}
	data, err := base64.StdEncoding.DecodeString(dataURL)
	if err != nil {
		return nil, errors.New("face_data is not valid base64")
	}
	return data, nil
}

// EndSessionResponse wraps a sweep result with an operator-facing message
type EndSessionResponse struct {
	Success bool                         `json:"success"`
	Message string                       `json:"message"`
	Result  *attendance.EndSessionResult `json:"result"`
}

// EndSession handles POST /api/v1/attendance/end-session
func (h *AttendanceHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondServiceError(w, r, database.ErrBackendNotInitialized)
		return
	}

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.session(req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	res, err := h.service.EndSession(r.Context(), session)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, EndSessionResponse{Success: true, Message: res.Message(), Result: res})
}

// RecordResponse is one attendance record
type RecordResponse struct {
	IdentityID  string   `json:"identity_id"`
	DisplayName string   `json:"display_name"`
	FacultyID   string   `json:"faculty_id"`
	Subject     string   `json:"subject"`
	Date        string   `json:"date"`
	Period      int      `json:"period"`
	Status      string   `json:"status"`
	Confidence  *float64 `json:"confidence,omitempty"`
	MarkedAt    string   `json:"marked_at"`
}

func recordResponse(rec database.AttendanceRecord) RecordResponse {
	return RecordResponse{
		IdentityID:  rec.IdentityID,
		DisplayName: rec.DisplayName,
		FacultyID:   rec.FacultyID,
		Subject:     rec.Subject,
		Date:        rec.SessionDate.Format(time.DateOnly),
		Period:      rec.Period,
		Status:      string(rec.Status),
		Confidence:  rec.Confidence,
		MarkedAt:    rec.MarkedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/attendance?date=YYYY-MM-DD
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store, err := database.GetAttendanceStore(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	records, err := store.ListByDate(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]RecordResponse, len(records))
	for i, rec := range records {
		out[i] = recordResponse(rec)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    date.Format(time.DateOnly),
		"records": out,
	})
}
