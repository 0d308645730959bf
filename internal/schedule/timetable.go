// Package schedule closes attendance sessions automatically from a timetable.
package schedule

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTimetable is returned when a timetable cannot drive the scheduler
var ErrInvalidTimetable = errors.New("invalid timetable")

// Timetable is the daily list of periods whose sessions close automatically
type Timetable struct {
	Timezone string   `yaml:"timezone"`
	Periods  []Period `yaml:"periods"`

	location *time.Location
}

// Period is one slot of the timetable
type Period struct {
	Period    int      `yaml:"period"`
	Subject   string   `yaml:"subject"`
	FacultyID string   `yaml:"faculty_id"`
	EndsAt    string   `yaml:"ends_at"`  // HH:MM in the timetable zone
	Weekdays  []string `yaml:"weekdays"` // mon..sun; empty means every day

	days map[time.Weekday]bool
}

var weekdayNames = func() map[string]time.Weekday {
	names := make(map[string]time.Weekday, 14)
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		names[full] = d
		names[full[:3]] = d
	}
	return names
}()

// parseWeekday accepts full or three-letter English day names ("Monday", "mon").
func parseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

// Load reads and validates a YAML timetable file
func Load(path string) (*Timetable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading timetable: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML timetable
func Parse(data []byte) (*Timetable, error) {
	var tt Timetable
	if err := yaml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTimetable, err)
	}
	if err := tt.validate(); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (tt *Timetable) validate() error {
	loc := time.Local
	if tt.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(tt.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %w", ErrInvalidTimetable, tt.Timezone, err)
		}
	}
	tt.location = loc

	if len(tt.Periods) == 0 {
		return fmt.Errorf("%w: no periods", ErrInvalidTimetable)
	}

	type slot struct {
		period int
		day    time.Weekday
	}
	seen := make(map[slot]bool)

	for i := range tt.Periods {
		p := &tt.Periods[i]
		switch {
		case p.Period <= 0:
			return fmt.Errorf("%w: entry %d: period must be positive", ErrInvalidTimetable, i+1)
		case strings.TrimSpace(p.Subject) == "":
			return fmt.Errorf("%w: period %d: subject is required", ErrInvalidTimetable, p.Period)
		case strings.TrimSpace(p.FacultyID) == "":
			return fmt.Errorf("%w: period %d: faculty_id is required", ErrInvalidTimetable, p.Period)
		}
		if _, err := time.Parse("15:04", p.EndsAt); err != nil {
			return fmt.Errorf("%w: period %d: ends_at %q must be HH:MM", ErrInvalidTimetable, p.Period, p.EndsAt)
		}

		p.days = make(map[time.Weekday]bool)
		for _, name := range p.Weekdays {
			day, ok := parseWeekday(name)
			if !ok {
				return fmt.Errorf("%w: period %d: unknown weekday %q", ErrInvalidTimetable, p.Period, name)
			}
			p.days[day] = true
		}

		for day := time.Sunday; day <= time.Saturday; day++ {
			if !p.RunsOn(day) {
				continue
			}
			key := slot{p.Period, day}
			if seen[key] {
				return fmt.Errorf("%w: period %d scheduled twice on %s", ErrInvalidTimetable, p.Period, day)
			}
			seen[key] = true
		}
	}
	return nil
}

// Location returns the zone the timetable is expressed in
func (tt *Timetable) Location() *time.Location {
	if tt.location == nil {
		return time.Local
	}
	return tt.location
}

// RunsOn reports whether the period is held on the given weekday
func (p *Period) RunsOn(day time.Weekday) bool {
	return len(p.days) == 0 || p.days[day]
}
