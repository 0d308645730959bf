package facematch

import (
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// Matcher resolves the probes of one frame against a gallery snapshot.
// Each probe is resolved independently: two probes may match the same identity.
type Matcher struct {
	scorer Scorer
	log    *logger.Logger
}

// NewMatcher creates a matcher. A nil log discards skipped-comparison logs.
func NewMatcher(scorer Scorer, log *logger.Logger) *Matcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Matcher{scorer: scorer, log: log}
}

// Match returns one result per probe, in probe order.
// An identity is accepted iff its similarity is the maximum for the probe and strictly
// exceeds threshold; equal maxima resolve to the smallest identity ID.
func (m *Matcher) Match(probes []Probe, gallery Gallery, threshold float64) []MatchResult {
	results := make([]MatchResult, len(probes))
	if len(probes) == 0 {
		return results
	}

	var identities []database.Identity
	if gallery != nil {
		identities = gallery.Identities()
	}

	if len(probes) == 1 {
		results[0] = m.matchOne(0, probes[0], identities, threshold)
		return results
	}

	var wg sync.WaitGroup
	for i := range probes {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = m.matchOne(idx, probes[idx], identities, threshold)
		}(i)
	}
	wg.Wait()

	return results
}

func (m *Matcher) matchOne(idx int, probe Probe, identities []database.Identity, threshold float64) MatchResult {
	result := MatchResult{ProbeIndex: idx}

	var best *database.Identity
	var bestSimilarity float64
	for i := range identities {
		candidate := &identities[i]
		similarity, err := m.scorer.Score(probe.Embedding, candidate.Embedding)
		if err != nil {
			m.log.Debug().
				Err(err).
				Int("probe_index", idx).
				Str("identity_id", candidate.ID).
				Msg("skipping comparison")
			continue
		}
		if best == nil || similarity > bestSimilarity ||
			(similarity == bestSimilarity && candidate.ID < best.ID) {
			best = candidate
			bestSimilarity = similarity
		}
	}

	if best == nil {
		if len(identities) > 0 {
			m.log.Warn().Int("probe_index", idx).Msg("probe had no valid comparisons")
		}
		return result
	}

	result.Similarity = bestSimilarity
	if bestSimilarity > threshold {
		result.IdentityID = best.ID
		result.DisplayName = best.DisplayName
	}
	return result
}
