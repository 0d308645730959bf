package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// sweepTimeout bounds one automatic session close
const sweepTimeout = 2 * time.Minute

// SessionCloser ends a session by marking everyone unrecorded absent
type SessionCloser interface {
	EndSession(ctx context.Context, session attendance.Session) (*attendance.EndSessionResult, error)
}

// Scheduler runs EndSession for every timetable period at its end time.
type Scheduler struct {
	cron   *gocron.Scheduler
	tt     *Timetable
	closer SessionCloser
	log    *logger.Logger
	now    func() time.Time
}

// New registers one daily job per timetable period. Call Start to run them.
func New(tt *Timetable, closer SessionCloser, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		cron:   gocron.NewScheduler(tt.Location()),
		tt:     tt,
		closer: closer,
		log:    log,
		now:    time.Now,
	}
	s.cron.SingletonModeAll()

	for i := range tt.Periods {
		p := tt.Periods[i]
		_, err := s.cron.Every(1).Day().At(p.EndsAt).
			Tag(fmt.Sprintf("period-%d-%s", p.Period, p.EndsAt)).
			Do(s.closePeriod, p)
		if err != nil {
			return nil, fmt.Errorf("scheduling period %d: %w", p.Period, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.log.Info().Int("jobs", s.cron.Len()).Str("timezone", s.tt.Location().String()).Msg("session scheduler started")
}

// Stop stops the scheduler; a running close is allowed to finish
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Jobs returns the number of registered period jobs
func (s *Scheduler) Jobs() int {
	return s.cron.Len()
}

func (s *Scheduler) closePeriod(p Period) {
	now := s.now().In(s.tt.Location())
	if !p.RunsOn(now.Weekday()) {
		return
	}

	session := attendance.Session{
		FacultyID: p.FacultyID,
		Subject:   p.Subject,
		Date:      now,
		Period:    p.Period,
	}

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	res, err := s.closer.EndSession(ctx, session)
	if err != nil {
		s.log.Error().Err(err).Int("period", p.Period).Str("subject", p.Subject).Msg("automatic session close failed")
		return
	}
	s.log.Info().Int("period", p.Period).Int("absent", res.AbsentCount).Msg("session closed automatically")
}
