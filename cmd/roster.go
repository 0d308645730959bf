package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RosterEntry is one student to enrol
type RosterEntry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Image string `yaml:"image"` // relative to the roster file
}

// Roster is a bulk enrolment file
type Roster struct {
	Students []RosterEntry `yaml:"students"`
}

// loadRoster reads a roster and resolves image paths against its directory.
func loadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	roster, err := parseRoster(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range roster.Students {
		if !filepath.IsAbs(roster.Students[i].Image) {
			roster.Students[i].Image = filepath.Join(dir, roster.Students[i].Image)
		}
	}
	return roster, nil
}

func parseRoster(data []byte) (*Roster, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	if len(roster.Students) == 0 {
		return nil, errors.New("roster has no students")
	}

	seen := make(map[string]int, len(roster.Students))
	for i := range roster.Students {
		s := &roster.Students[i]
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("roster entry %d: id is required", i+1)
		case s.Name == "":
			return nil, fmt.Errorf("roster entry %d (%s): name is required", i+1, s.ID)
		case s.Image == "":
			return nil, fmt.Errorf("roster entry %d (%s): image is required", i+1, s.ID)
		}
		if prev, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("roster entry %d: id %s already used by entry %d", i+1, s.ID, prev)
		}
		seen[s.ID] = i + 1
	}
	return &roster, nil
}
