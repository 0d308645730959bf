package database

import (
	"context"
	"time"
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// ListAll returns every enrolled identity ordered by ID
	ListAll(ctx context.Context) ([]Identity, error)
	// Get retrieves an identity by ID, returns ErrIdentityNotFound if missing
	Get(ctx context.Context, id string) (*Identity, error)
	// ListIDs returns the IDs of every enrolled identity without loading embeddings
	ListIDs(ctx context.Context) ([]string, error)
	// Count returns the number of enrolled identities
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides enrolment access to identities
type IdentityWriter interface {
	IdentityReader

	// Save stores an identity (re-enrolment replaces the embedding and name)
	Save(ctx context.Context, identity Identity) error
}

// FacultyReader provides read-only access to registered faculty
type FacultyReader interface {
	// ListFaculty returns every faculty member ordered by ID
	ListFaculty(ctx context.Context) ([]Faculty, error)
	// CountFaculty returns the number of registered faculty members
	CountFaculty(ctx context.Context) (int, error)
}

// FacultyStore adds registration to FacultyReader
type FacultyStore interface {
	FacultyReader

	// SaveFaculty registers a faculty member, returns ErrFacultyExists if the ID is taken
	SaveFaculty(ctx context.Context, faculty Faculty) error
}

// AttendanceLedger is the uniqueness-enforcing write side of attendance.
// Both operations are atomic: they either fully commit or leave no visible record.
type AttendanceLedger interface {
	// MarkPresent inserts a present record for key unless one exists.
	// Exactly one concurrent caller per key observes OutcomeCreated.
	MarkPresent(ctx context.Context, key AttendanceKey, facultyID, subject string, similarity float64) (MarkOutcome, error)

	// SweepAbsent inserts an absent record for each identity without a record for
	// (date, period) and returns how many were created. Re-running yields 0.
	SweepAbsent(ctx context.Context, date time.Time, period int, facultyID, subject string, identityIDs []string) (int, error)
}

// AttendanceReader provides read-only access to stored attendance
type AttendanceReader interface {
	// Get returns the record for key, or nil if none exists
	Get(ctx context.Context, key AttendanceKey) (*AttendanceRecord, error)
	// ListByDate returns all records of a date ordered by period, then identity
	ListByDate(ctx context.Context, date time.Time) ([]AttendanceRecord, error)
	// CountPresent returns the number of distinct identities present on a date
	CountPresent(ctx context.Context, date time.Time) (int, error)
	// Summary returns the attendance history and percentage of one identity
	Summary(ctx context.Context, identityID string) (*AttendanceSummary, error)
}

// AttendanceStore combines the ledger with its read side
type AttendanceStore interface {
	AttendanceLedger
	AttendanceReader
}
