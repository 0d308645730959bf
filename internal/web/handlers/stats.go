package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// StatsHandler handles the dashboard statistics endpoint
type StatsHandler struct {
	now func() time.Time
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{now: time.Now}
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	Date       string  `json:"date"`
	Identities int     `json:"identities"`
	Faculty    int     `json:"faculty"`
	Present    int     `json:"present"`
	Rate       float64 `json:"rate"` // present / identities * 100
}

// Get handles GET /api/v1/stats?date=YYYY-MM-DD
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

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

	faculty, err := database.GetFacultyStore(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	count, err := reader.Count(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	present, err := store.CountPresent(r.Context(), date)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	facultyCount, err := faculty.CountFaculty(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := StatsResponse{Date: date.Format(time.DateOnly), Identities: count, Faculty: facultyCount, Present: present}
	if count > 0 {
		resp.Rate = float64(present) / float64(count) * 100
	}
	respondJSON(w, http.StatusOK, resp)
}
