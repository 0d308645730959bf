package schedule

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

const sampleTimetable = `
timezone: Europe/Prague
periods:
  - period: 1
    subject: Mathematics
    faculty_id: F-01
    ends_at: "09:45"
  - period: 2
    subject: Physics
    faculty_id: F-02
    ends_at: "10:40"
    weekdays: [Monday, wed, FRI]
`

func TestParse(t *testing.T) {
	tt, err := Parse([]byte(sampleTimetable))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tt.Location().String() != "Europe/Prague" {
		t.Errorf("unexpected location %s", tt.Location())
	}
	if len(tt.Periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(tt.Periods))
	}
	if !tt.Periods[0].RunsOn(time.Sunday) {
		t.Error("period without weekdays should run every day")
	}
	physics := tt.Periods[1]
	if !physics.RunsOn(time.Monday) || !physics.RunsOn(time.Friday) || physics.RunsOn(time.Tuesday) {
		t.Errorf("unexpected weekday filter: %v", physics.days)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "periods: ["},
		{"no periods", "timezone: UTC\n"},
		{"bad zone", "timezone: Mars/Olympus\nperiods:\n  - {period: 1, subject: A, faculty_id: F, ends_at: '10:00'}\n"},
		{"zero period", "periods:\n  - {period: 0, subject: A, faculty_id: F, ends_at: '10:00'}\n"},
		{"no subject", "periods:\n  - {period: 1, faculty_id: F, ends_at: '10:00'}\n"},
		{"no faculty", "periods:\n  - {period: 1, subject: A, ends_at: '10:00'}\n"},
		{"bad time", "periods:\n  - {period: 1, subject: A, faculty_id: F, ends_at: '25:99'}\n"},
		{"bad weekday", "periods:\n  - {period: 1, subject: A, faculty_id: F, ends_at: '10:00', weekdays: [funday]}\n"},
		{"duplicate slot", "periods:\n  - {period: 1, subject: A, faculty_id: F, ends_at: '10:00'}\n  - {period: 1, subject: B, faculty_id: F, ends_at: '11:00', weekdays: [mon]}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidTimetable) {
				t.Errorf("expected ErrInvalidTimetable, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.yaml")
	if err := os.WriteFile(path, []byte(sampleTimetable), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

type fakeCloser struct {
	mu       sync.Mutex
	sessions []attendance.Session
	err      error
}

func (f *fakeCloser) EndSession(ctx context.Context, s attendance.Session) (*attendance.EndSessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
	if f.err != nil {
		return nil, f.err
	}
	return &attendance.EndSessionResult{Session: s, AbsentCount: 3}, nil
}

func TestScheduler_ClosePeriod(t *testing.T) {
	tt, err := Parse([]byte(sampleTimetable))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closer := &fakeCloser{}
	s, err := New(tt, closer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Jobs() != 2 {
		t.Errorf("expected 2 jobs, got %d", s.Jobs())
	}

	// Tuesday 2026-03-10 23:30 in Prague is still the 10th locally.
	s.now = func() time.Time { return time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC) }

	s.closePeriod(tt.Periods[0])
	s.closePeriod(tt.Periods[1]) // physics does not run on Tuesday

	if len(closer.sessions) != 1 {
		t.Fatalf("expected one closed session, got %d", len(closer.sessions))
	}
	got := closer.sessions[0]
	if got.Period != 1 || got.Subject != "Mathematics" || got.FacultyID != "F-01" {
		t.Errorf("unexpected session: %+v", got)
	}
	if day := database.SessionDate(got.Date); day.Day() != 10 {
		t.Errorf("expected local date 10th, got %v", day)
	}

	closer.err = database.Unavailable("sweep absent", errors.New("down"))
	s.closePeriod(tt.Periods[0]) // logged, not panicking
	if len(closer.sessions) != 2 {
		t.Errorf("expected second attempt, got %d", len(closer.sessions))
	}
}

func TestScheduler_StartStop(t *testing.T) {
	tt, err := Parse([]byte("timezone: UTC\nperiods:\n  - {period: 1, subject: A, faculty_id: F, ends_at: '10:00'}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := New(tt, &fakeCloser{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	s.Stop()
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		name   string
		want   time.Weekday
		wantOK bool
	}{
		{"Monday", time.Monday, true},
		{"mon", time.Monday, true},
		{" SAT ", time.Saturday, true},
		{"sunday", time.Sunday, true},
		{"thu", time.Thursday, true},
		{"monkey", 0, false},
		{"sundae", 0, false},
		{"tues", 0, false},
		{"mo", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseWeekday(tt.name)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("parseWeekday(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParse_RejectsMisspelledWeekday(t *testing.T) {
	data := "periods:\n  - {period: 1, subject: A, faculty_id: F, ends_at: '10:00', weekdays: [monkey]}\n"
	if _, err := Parse([]byte(data)); !errors.Is(err, ErrInvalidTimetable) {
		t.Errorf("expected ErrInvalidTimetable, got %v", err)
	}
}
