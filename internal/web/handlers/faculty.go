package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// maxFacultyIDLength matches the faculty id column width
const maxFacultyIDLength = 64

// FacultyHandler handles the faculty registry
type FacultyHandler struct{}

// NewFacultyHandler creates a new faculty handler
func NewFacultyHandler() *FacultyHandler {
	return &FacultyHandler{}
}

// FacultyRequest is the body of a faculty registration
type FacultyRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Mobile     string `json:"mobile"`
}

// FacultyResponse represents a registered faculty member
type FacultyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Mobile     string `json:"mobile,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func facultyResponse(f database.Faculty) FacultyResponse {
	resp := FacultyResponse{ID: f.ID, Name: f.Name, Department: f.Department, Mobile: f.Mobile}
	if !f.CreatedAt.IsZero() {
		resp.CreatedAt = f.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// List handles GET /api/v1/faculty
func (h *FacultyHandler) List(w http.ResponseWriter, r *http.Request) {
	store, err := database.GetFacultyStore(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	faculty, err := store.ListFaculty(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]FacultyResponse, 0, len(faculty))
	for _, f := range faculty {
		out = append(out, facultyResponse(f))
	}
	respondJSON(w, http.StatusOK, out)
}

// Create handles POST /api/v1/faculty
func (h *FacultyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FacultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	f := database.Faculty{
		ID:         strings.TrimSpace(req.ID),
		Name:       strings.TrimSpace(req.Name),
		Department: strings.TrimSpace(req.Department),
		Mobile:     strings.TrimSpace(req.Mobile),
	}
	switch {
	case f.ID == "":
		respondError(w, http.StatusBadRequest, "id is required")
		return
	case len(f.ID) > maxFacultyIDLength:
		respondError(w, http.StatusBadRequest, "id is too long")
		return
	case f.Name == "":
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	store, err := database.GetFacultyStore(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := store.SaveFaculty(r.Context(), f); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, facultyResponse(f))
}
