// Package facematch scores face embeddings and resolves probes against an enrolled gallery.
package facematch

import (
	"github.com/kozaktomas/face-attendance/internal/database"
)

// DefaultThreshold is the cosine similarity a best match must strictly exceed
const DefaultThreshold = 0.4

// Probe is one detected face of a submitted frame
type Probe struct {
	Embedding []float32
	DetScore  float64   // Detector confidence
	BBox      []float64 // [x1, y1, x2, y2] in frame pixels
}

// MatchResult is the resolution of one probe. IdentityID is empty when no
// identity was accepted; Similarity is then the best score seen (0 if none).
type MatchResult struct {
	ProbeIndex  int
	IdentityID  string
	DisplayName string
	Similarity  float64
}

// Matched reports whether an identity was accepted for the probe
func (r MatchResult) Matched() bool {
	return r.IdentityID != ""
}

// Gallery is the read view a Matcher scans. Implementations must not change
// the returned slice while a match is in flight.
type Gallery interface {
	Identities() []database.Identity
}
