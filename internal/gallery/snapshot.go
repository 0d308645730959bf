// Package gallery holds immutable snapshots of the enrolled identities.
package gallery

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// ErrDuplicateIdentity is returned when two enrolled identities share an ID
var ErrDuplicateIdentity = errors.New("duplicate identity")

// Snapshot is a read-only view of the gallery taken at one point in time.
// It is safe for concurrent use; refreshing the gallery produces a new Snapshot.
type Snapshot struct {
	identities []database.Identity // sorted by ID
	dim        int

	indexOnce sync.Once
	index     *hnsw.Graph[int]
	indexed   int
}

// NewSnapshot copies identities into a snapshot sorted by ID.
func NewSnapshot(identities []database.Identity, dim int) (*Snapshot, error) {
	sorted := make([]database.Identity, len(identities))
	copy(sorted, identities)
	slices.SortFunc(sorted, func(a, b database.Identity) int {
		return strings.Compare(a.ID, b.ID)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, sorted[i].ID)
		}
	}

	return &Snapshot{identities: sorted, dim: dim}, nil
}

// Identities returns the enrolled identities ordered by ID. Callers must not modify the slice.
func (s *Snapshot) Identities() []database.Identity {
	if s == nil {
		return nil
	}
	return s.identities
}

// Size returns the number of enrolled identities
func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.identities)
}

// IDs returns the enrolled identity IDs in order
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, s.Size())
	for _, identity := range s.Identities() {
		ids = append(ids, identity.ID)
	}
	return ids
}

// Neighbor is one candidate returned by Nearest
type Neighbor struct {
	IdentityID  string  `json:"identity_id"`
	DisplayName string  `json:"display_name"`
	Similarity  float64 `json:"similarity"`
}

// Nearest returns up to k identities closest to embedding, best first.
// It uses an approximate index and is meant for diagnostics; attendance
// decisions go through the exhaustive matcher.
func (s *Snapshot) Nearest(embedding []float32, k int) ([]Neighbor, error) {
	if k <= 0 || s.Size() == 0 {
		return nil, nil
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", facematch.ErrDimensionMismatch, len(embedding), s.dim)
	}

	s.indexOnce.Do(s.buildIndex)
	if s.indexed == 0 {
		return nil, nil
	}

	scorer := facematch.NewScorer(s.dim)
	nodes := s.index.Search(embedding, k)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		identity := s.identities[n.Key]
		similarity, err := scorer.Score(embedding, identity.Embedding)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{
			IdentityID:  identity.ID,
			DisplayName: identity.DisplayName,
			Similarity:  similarity,
		})
	}

	slices.SortStableFunc(neighbors, func(a, b Neighbor) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		return strings.Compare(a.IdentityID, b.IdentityID)
	})
	return neighbors, nil
}

func (s *Snapshot) buildIndex() {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.EfSearch = constants.HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	scorer := facematch.NewScorer(s.dim)
	for i, identity := range s.identities {
		// Skip vectors the scorer would reject; they can never be neighbours.
		if scorer.Validate(identity.Embedding) != nil {
			continue
		}
		g.Add(hnsw.MakeNode(i, identity.Embedding))
		s.indexed++
	}
	s.index = g
}
