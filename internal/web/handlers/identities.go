package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// maxIdentityIDLength matches the identity_id column width
const maxIdentityIDLength = 64

// IdentitiesHandler handles enrolment, listing and per-identity reports
type IdentitiesHandler struct {
	config   *config.Config
	detector FaceDetector
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(cfg *config.Config, detector FaceDetector) *IdentitiesHandler {
	return &IdentitiesHandler{config: cfg, detector: detector}
}

// IdentityResponse represents an enrolled identity without its embedding
type IdentityResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Model       string `json:"model,omitempty"`
	Dim         int    `json:"dim"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func identityResponse(identity database.Identity) IdentityResponse {
	resp := IdentityResponse{
		ID:          identity.ID,
		DisplayName: identity.DisplayName,
		Model:       identity.Model,
		Dim:         len(identity.Embedding),
	}
	if !identity.CreatedAt.IsZero() {
		resp.CreatedAt = identity.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// List handles GET /api/v1/identities?q=name
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetIdentityReader(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	identities, err := reader.ListAll(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	query := r.URL.Query().Get("q")
	out := make([]IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		if facematch.NameMatches(identity.DisplayName, query) || strings.EqualFold(identity.ID, strings.TrimSpace(query)) {
			out = append(out, identityResponse(identity))
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// Enroll handles POST /api/v1/identities (multipart: id, display_name, image).
// The photo must contain exactly one face.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	writer, err := database.GetIdentityWriter(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	id := strings.TrimSpace(r.FormValue("id"))
	name := strings.TrimSpace(r.FormValue("display_name"))
	switch {
	case id == "":
		respondError(w, http.StatusBadRequest, "id is required")
		return
	case len(id) > maxIdentityIDLength:
		respondError(w, http.StatusBadRequest, "id is too long")
		return
	case name == "":
		respondError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	imageData, err := readUpload(r, "image")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.detector == nil {
		respondError(w, http.StatusServiceUnavailable, "face detector not configured")
		return
	}

	embedding, model, err := h.detector.DetectSingleFace(r.Context(), imageData)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := facematch.NewScorer(h.config.Embedding.Dim).Validate(embedding); err != nil {
		respondServiceError(w, r, err)
		return
	}

	identity := database.Identity{ID: id, DisplayName: name, Embedding: embedding, Model: model}
	if err := writer.Save(r.Context(), identity); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, identityResponse(identity))
}

func readUpload(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.New(field + " is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read " + field)
	}
	return data, nil
}

// ReportResponse is the attendance history of one identity
type ReportResponse struct {
	Identity   IdentityResponse `json:"identity"`
	Total      int              `json:"total"`
	Present    int              `json:"present"`
	Percentage float64          `json:"percentage"`
	Records    []RecordResponse `json:"records"`
}

// Report handles GET /api/v1/identities/{id}/report
func (h *IdentitiesHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reader, err := database.GetIdentityReader(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	store, err := database.GetAttendanceStore(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	identity, err := reader.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	summary, err := store.Summary(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	records := make([]RecordResponse, len(summary.Records))
	for i, rec := range summary.Records {
		records[i] = recordResponse(rec)
	}
	respondJSON(w, http.StatusOK, ReportResponse{
		Identity:   identityResponse(*identity),
		Total:      summary.Total,
		Present:    summary.Present,
		Percentage: summary.Percentage,
		Records:    records,
	})
}
