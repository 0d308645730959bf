package gallery

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// Gallery loads snapshots of the enrolled identities from the identity store.
// Every Snapshot call reads the store, so enrolments are visible to the next batch.
type Gallery struct {
	reader  database.IdentityReader
	dim     int
	log     *logger.Logger
	current atomic.Pointer[Snapshot]
}

// New creates a gallery backed by reader for embeddings of the given dimension.
func New(reader database.IdentityReader, dim int, log *logger.Logger) *Gallery {
	if log == nil {
		log = logger.Nop()
	}
	return &Gallery{reader: reader, dim: dim, log: log}
}

// Snapshot loads a fresh snapshot and makes it the current one.
func (g *Gallery) Snapshot(ctx context.Context) (*Snapshot, error) {
	identities, err := g.reader.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gallery: %w", err)
	}

	snap, err := NewSnapshot(identities, g.dim)
	if err != nil {
		return nil, err
	}

	// Enrolment rejects unusable embeddings; anything left here predates that or was written directly.
	scorer := facematch.NewScorer(g.dim)
	for _, identity := range snap.Identities() {
		if err := scorer.Validate(identity.Embedding); err != nil {
			g.log.Debug().Err(err).Str("identity_id", identity.ID).Msg("enrolled embedding is unusable")
		}
	}

	g.current.Store(snap)
	g.log.Debug().Int("identities", snap.Size()).Msg("gallery snapshot loaded")
	return snap, nil
}

// Current returns the most recently loaded snapshot, or nil before the first load.
func (g *Gallery) Current() *Snapshot {
	return g.current.Load()
}

// Dim returns the embedding dimension the gallery was configured with
func (g *Gallery) Dim() int {
	return g.dim
}

// Size returns the size of the current snapshot (0 before the first load)
func (g *Gallery) Size() int {
	return g.Current().Size()
}
