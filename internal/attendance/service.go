// Package attendance turns match results into attendance records and closes sessions.
package attendance

import (
	"context"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// Service marks attendance from detected faces. It holds no per-session state and
// is safe for concurrent use; uniqueness per key is enforced by the ledger.
type Service struct {
	gallery    *gallery.Gallery
	identities database.IdentityReader
	ledger     database.AttendanceLedger
	matcher    *facematch.Matcher
	log        *logger.Logger
}

// New creates an attendance service.
func New(g *gallery.Gallery, identities database.IdentityReader, ledger database.AttendanceLedger, matcher *facematch.Matcher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		gallery:    g,
		identities: identities,
		ledger:     ledger,
		matcher:    matcher,
		log:        log,
	}
}

// MarkFromFrame matches the probes of one frame against a fresh gallery snapshot and
// marks every accepted identity present, in probe order.
// A persistence error aborts the frame; marks made before it stay committed.
func (s *Service) MarkFromFrame(ctx context.Context, probes []facematch.Probe, session Session, threshold float64) (*SessionOutcome, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	outcome := &SessionOutcome{
		FrameID:    uuid.NewString(),
		Session:    session,
		TotalFaces: len(probes),
		Entries:    make([]Entry, 0, len(probes)),
	}
	log := s.log.With().
		Str("frame_id", outcome.FrameID).
		Str("subject", session.Subject).
		Int("period", session.Period).
		Logger()

	if len(probes) == 0 {
		outcome.Classification = NoFacesDetected
		log.Info().Msg("no faces detected")
		return outcome, nil
	}

	snap, err := s.gallery.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading gallery failed")
		return nil, err
	}

	results := s.matcher.Match(probes, snap, threshold)
	for i, result := range results {
		entry := Entry{
			ProbeIndex: result.ProbeIndex,
			Similarity: result.Similarity,
			DetScore:   probes[i].DetScore,
			BBox:       probes[i].BBox,
		}

		if !result.Matched() {
			entry.Status = EntryUnrecognized
			outcome.Unrecognized++
			outcome.Entries = append(outcome.Entries, entry)
			continue
		}

		entry.IdentityID = result.IdentityID
		entry.DisplayName = result.DisplayName

		mark, err := s.ledger.MarkPresent(ctx, session.Key(result.IdentityID), session.FacultyID, session.Subject, result.Similarity)
		if err != nil {
			log.Error().Err(err).Str("identity_id", result.IdentityID).Msg("marking present failed")
			return nil, err
		}

		if mark == database.OutcomeCreated {
			entry.Status = EntryMarked
			outcome.Marked++
		} else {
			entry.Status = EntryAlreadyMarked
			outcome.AlreadyMarked++
		}
		outcome.Entries = append(outcome.Entries, entry)
	}

	outcome.Classification = classify(outcome)
	log.Info().
		Str("classification", string(outcome.Classification)).
		Int("faces", outcome.TotalFaces).
		Int("marked", outcome.Marked).
		Int("already_marked", outcome.AlreadyMarked).
		Int("unrecognized", outcome.Unrecognized).
		Msg("frame processed")
	return outcome, nil
}

func classify(o *SessionOutcome) Classification {
	switch {
	case o.TotalFaces == 0:
		return NoFacesDetected
	case o.Marked > 0:
		return PartialOrFullSuccess
	case o.AlreadyMarked > 0:
		return AllAlreadyMarked
	default:
		return NoneRecognized
	}
}

// EndSession marks every enrolled identity without a record for the session absent.
// Calling it again for the same session creates nothing.
func (s *Service) EndSession(ctx context.Context, session Session) (*EndSessionResult, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	ids, err := s.identities.ListIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("listing enrolled identities failed")
		return nil, err
	}

	n, err := s.ledger.SweepAbsent(ctx, database.SessionDate(session.Date), session.Period, session.FacultyID, session.Subject, ids)
	if err != nil {
		s.log.Error().Err(err).Int("period", session.Period).Msg("absent sweep failed")
		return nil, err
	}

	s.log.Info().
		Str("subject", session.Subject).
		Str("date", database.SessionDate(session.Date).Format("2006-01-02")).
		Int("period", session.Period).
		Int("enrolled", len(ids)).
		Int("absent", n).
		Msg("session ended")

	return &EndSessionResult{Session: session, Enrolled: len(ids), AbsentCount: n}, nil
}

// Gallery returns the gallery the service matches against
func (s *Service) Gallery() *gallery.Gallery {
	return s.gallery
}
