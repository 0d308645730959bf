package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryHandler exposes nearest-identity diagnostics
type GalleryHandler struct {
	gallery *gallery.Gallery
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(g *gallery.Gallery) *GalleryHandler {
	return &GalleryHandler{gallery: g}
}

// NearestRequest asks for the identities closest to an embedding
type NearestRequest struct {
	Embedding []float32 `json:"embedding"`
	K         int       `json:"k"`
}

// NearestResponse lists the closest identities, best first
type NearestResponse struct {
	GallerySize int                `json:"gallery_size"`
	Neighbors   []gallery.Neighbor `json:"neighbors"`
}

// Nearest handles POST /api/v1/gallery/nearest
func (h *GalleryHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	if h.gallery == nil {
		respondServiceError(w, r, database.ErrBackendNotInitialized)
		return
	}

	var req NearestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	k := req.K
	if k <= 0 {
		k = constants.DefaultNearestK
	}
	k = min(k, constants.MaxNearestK)

	snap, err := h.gallery.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	neighbors, err := snap.Nearest(req.Embedding, k)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if neighbors == nil {
		neighbors = []gallery.Neighbor{}
	}
	respondJSON(w, http.StatusOK, NearestResponse{GallerySize: snap.Size(), Neighbors: neighbors})
}
