package attendance

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var (
	// ErrInvalidSession is returned for a session without faculty, subject, date or a positive period
	ErrInvalidSession = errors.New("invalid session")
	// ErrInvalidThreshold is returned for a threshold outside [-1, 1)
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// Session identifies one teaching period on one calendar date
type Session struct {
	FacultyID string    `json:"faculty_id"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Period    int       `json:"period"`
}

// Validate checks that the session can scope attendance records.
func (s Session) Validate() error {
	switch {
	case strings.TrimSpace(s.FacultyID) == "":
		return fmt.Errorf("%w: faculty is required", ErrInvalidSession)
	case strings.TrimSpace(s.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidSession)
	case s.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidSession)
	case s.Period <= 0:
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidSession, s.Period)
	}
	return nil
}

// Key returns the attendance key of identityID within the session
func (s Session) Key(identityID string) database.AttendanceKey {
	return database.AttendanceKey{
		IdentityID:  identityID,
		SessionDate: database.SessionDate(s.Date),
		Period:      s.Period,
	}
}

// ValidateThreshold rejects thresholds that no cosine similarity could exceed, and NaN.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < -1 || threshold >= 1 {
		return fmt.Errorf("%w: %v not in [-1, 1)", ErrInvalidThreshold, threshold)
	}
	return nil
}

// Classification summarizes what a frame achieved
type Classification string

const (
	NoFacesDetected      Classification = "no_faces_detected"
	NoneRecognized       Classification = "none_recognized"
	PartialOrFullSuccess Classification = "partial_or_full_success"
	AllAlreadyMarked     Classification = "all_already_marked"
)

// Success reports whether at least one identity was newly marked
func (c Classification) Success() bool {
	return c == PartialOrFullSuccess
}

// EntryStatus is the per-probe result within a frame
type EntryStatus string

const (
	EntryMarked        EntryStatus = "marked"
	EntryAlreadyMarked EntryStatus = "already_marked"
	EntryUnrecognized  EntryStatus = "unrecognized"
)

// Entry describes what happened to one probe of a frame
type Entry struct {
	ProbeIndex  int         `json:"probe_index"`
	IdentityID  string      `json:"identity_id,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	Status      EntryStatus `json:"status"`
	Similarity  float64     `json:"similarity"`
	DetScore    float64     `json:"det_score"`
	BBox        []float64   `json:"bbox,omitempty"`
}

// SessionOutcome is the result of marking attendance from one frame
type SessionOutcome struct {
	FrameID        string         `json:"frame_id"`
	Classification Classification `json:"classification"`
	Session        Session        `json:"session"`
	TotalFaces     int            `json:"total_faces"`
	Marked         int            `json:"marked"`
	AlreadyMarked  int            `json:"already_marked"`
	Unrecognized   int            `json:"unrecognized"`
	Entries        []Entry        `json:"entries"`
}

// Message renders the outcome as an operator-facing sentence.
func (o *SessionOutcome) Message() string {
	switch o.Classification {
	case NoFacesDetected:
		return "No faces detected in the image"
	case NoneRecognized:
		return fmt.Sprintf("Detected %d face(s) but none recognized", o.TotalFaces)
	case AllAlreadyMarked:
		return fmt.Sprintf("All %d student(s) already marked present", o.AlreadyMarked)
	}

	parts := []string{fmt.Sprintf("Marked %d student(s) present.", o.Marked)}
	if o.AlreadyMarked > 0 {
		parts = append(parts, fmt.Sprintf("%d already marked.", o.AlreadyMarked))
	}
	if o.Unrecognized > 0 {
		parts = append(parts, fmt.Sprintf("%d face(s) not recognized.", o.Unrecognized))
	}
	return strings.Join(parts, " ")
}

// EndSessionResult is the result of closing a session
type EndSessionResult struct {
	Session     Session `json:"session"`
	Enrolled    int     `json:"enrolled"`
	AbsentCount int     `json:"absent_count"`
}

// Message renders the result as an operator-facing sentence
func (r *EndSessionResult) Message() string {
	return fmt.Sprintf("Session ended. Marked %d student(s) as absent", r.AbsentCount)
}
