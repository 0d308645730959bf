package database

import (
	"time"
)

// Identity represents an enrolled person and the canonical face embedding used for matching
type Identity struct {
	ID          string // Stable unique key (e.g., roll number)
	DisplayName string
	Embedding   []float32
	Model       string // Embedding model that produced the vector (e.g., buffalo_l)
	CreatedAt   time.Time
}

// Faculty is a staff member who can run attendance sessions
type Faculty struct {
	ID         string // Employee ID
	Name       string
	Department string
	Mobile     string
	CreatedAt  time.Time
}

// Status is the terminal outcome stored for an attendance key
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// AttendanceKey is the uniqueness scope of an attendance record.
// At most one record may ever exist per key.
type AttendanceKey struct {
	IdentityID  string
	SessionDate time.Time // Calendar date, see SessionDate
	Period      int
}

// AttendanceRecord represents one stored attendance outcome
type AttendanceRecord struct {
	ID          int64
	IdentityID  string
	FacultyID   string
	Subject     string
	SessionDate time.Time
	Period      int
	Status      Status
	Confidence  *float64 // Match similarity, nil for absent records
	MarkedAt    time.Time

	// Populated by read queries that join identities
	DisplayName string
}

// MarkOutcome is the result of a conditional present insert
type MarkOutcome int

const (
	// OutcomeCreated means this call inserted the record for the key
	OutcomeCreated MarkOutcome = iota + 1
	// OutcomeAlreadyPresent means a record (present or absent) already existed for the key
	OutcomeAlreadyPresent
)

func (o MarkOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// AttendanceSummary aggregates the attendance history of one identity
type AttendanceSummary struct {
	IdentityID string
	Total      int
	Present    int
	Percentage float64
	Records    []AttendanceRecord // Newest first
}

// SessionDate normalizes t to the calendar date it falls on (in t's location),
// expressed as midnight UTC so that it round-trips through DATE columns.
func SessionDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UniqueIDs returns ids with duplicates and empty values removed, preserving first occurrence order
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NewSummary aggregates records (already ordered newest date first) into a summary.
func NewSummary(identityID string, records []AttendanceRecord) *AttendanceSummary {
	s := &AttendanceSummary{IdentityID: identityID, Total: len(records), Records: records}
	for _, rec := range records {
		if rec.Status == StatusPresent {
			s.Present++
		}
	}
	if s.Total > 0 {
		s.Percentage = float64(s.Present) / float64(s.Total) * 100
	}
	return s
}
