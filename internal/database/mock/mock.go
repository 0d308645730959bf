// Package mock provides in-memory implementations of the database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockIdentityStore is an in-memory database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]database.Identity

	// Error injection
	ListAllError error
	GetError     error
	ListIDsError error
	CountError   error
	SaveError    error
}

// NewMockIdentityStore creates a store pre-populated with identities
func NewMockIdentityStore(identities ...database.Identity) *MockIdentityStore {
	m := &MockIdentityStore{identities: make(map[string]database.Identity)}
	for _, identity := range identities {
		m.identities[identity.ID] = identity
	}
	return m
}

// ListAll returns every identity ordered by ID
func (m *MockIdentityStore) ListAll(ctx context.Context) ([]database.Identity, error) {
	if m.ListAllError != nil {
		return nil, m.ListAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		out = append(out, identity)
	}
	slices.SortFunc(out, func(a, b database.Identity) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Get retrieves an identity by ID
func (m *MockIdentityStore) Get(ctx context.Context, id string) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	identity, ok := m.identities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", database.ErrIdentityNotFound, id)
	}
	return &identity, nil
}

// ListIDs returns every identity ID in order
func (m *MockIdentityStore) ListIDs(ctx context.Context) ([]string, error) {
	if m.ListIDsError != nil {
		return nil, m.ListIDsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.identities))
	for id := range m.identities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Count returns the number of identities
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// Save stores or replaces an identity
func (m *MockIdentityStore) Save(ctx context.Context, identity database.Identity) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.identities[identity.ID]; ok {
		identity.CreatedAt = existing.CreatedAt
	} else if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	m.identities[identity.ID] = identity
	return nil
}

// MarkCall records one MarkPresent invocation
type MarkCall struct {
	Key        database.AttendanceKey
	FacultyID  string
	Subject    string
	Similarity float64
	Outcome    database.MarkOutcome
}

// MockLedger is an in-memory database.AttendanceStore with the same
// at-most-once-per-key semantics as the SQL backends.
type MockLedger struct {
	mu      sync.Mutex
	records map[database.AttendanceKey]database.AttendanceRecord
	nextID  int64
	now     func() time.Time

	// Names used to fill DisplayName on reads
	Names map[string]string

	// Error injection
	MarkPresentError error
	SweepAbsentError error
	ReadError        error
	// FailMarkFor fails MarkPresent only for the listed identity IDs
	FailMarkFor map[string]error

	// Call tracking
	MarkCalls []MarkCall
}

// NewMockLedger creates an empty ledger
func NewMockLedger() *MockLedger {
	return &MockLedger{
		records: make(map[database.AttendanceKey]database.AttendanceRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func normalizeKey(key database.AttendanceKey) database.AttendanceKey {
	key.SessionDate = database.SessionDate(key.SessionDate)
	return key
}

// MarkPresent inserts a present record unless the key already has one
func (m *MockLedger) MarkPresent(ctx context.Context, key database.AttendanceKey, facultyID, subject string, similarity float64) (database.MarkOutcome, error) {
	if m.MarkPresentError != nil {
		return 0, m.MarkPresentError
	}
	if err := m.FailMarkFor[key.IdentityID]; err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key = normalizeKey(key)
	outcome := database.OutcomeAlreadyPresent
	if _, ok := m.records[key]; !ok {
		m.nextID++
		conf := similarity
		m.records[key] = database.AttendanceRecord{
			ID:          m.nextID,
			IdentityID:  key.IdentityID,
			FacultyID:   facultyID,
			Subject:     subject,
			SessionDate: key.SessionDate,
			Period:      key.Period,
			Status:      database.StatusPresent,
			Confidence:  &conf,
			MarkedAt:    m.now(),
		}
		outcome = database.OutcomeCreated
	}

	m.MarkCalls = append(m.MarkCalls, MarkCall{
		Key: key, FacultyID: facultyID, Subject: subject, Similarity: similarity, Outcome: outcome,
	})
	return outcome, nil
}

// SweepAbsent inserts absent records for identities without a record
func (m *MockLedger) SweepAbsent(ctx context.Context, date time.Time, period int, facultyID, subject string, identityIDs []string) (int, error) {
	if m.SweepAbsentError != nil {
		return 0, m.SweepAbsentError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := 0
	for _, id := range database.UniqueIDs(identityIDs) {
		key := normalizeKey(database.AttendanceKey{IdentityID: id, SessionDate: date, Period: period})
		if _, ok := m.records[key]; ok {
			continue
		}
		m.nextID++
		m.records[key] = database.AttendanceRecord{
			ID:          m.nextID,
			IdentityID:  id,
			FacultyID:   facultyID,
			Subject:     subject,
			SessionDate: key.SessionDate,
			Period:      period,
			Status:      database.StatusAbsent,
			MarkedAt:    m.now(),
		}
		created++
	}
	return created, nil
}

func (m *MockLedger) withName(rec database.AttendanceRecord) database.AttendanceRecord {
	rec.DisplayName = m.Names[rec.IdentityID]
	return rec
}

// Get returns the record for key, or nil
func (m *MockLedger) Get(ctx context.Context, key database.AttendanceKey) (*database.AttendanceRecord, error) {
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[normalizeKey(key)]
	if !ok {
		return nil, nil
	}
	rec = m.withName(rec)
	return &rec, nil
}

// ListByDate returns the records of a date ordered by period, then identity
func (m *MockLedger) ListByDate(ctx context.Context, date time.Time) ([]database.AttendanceRecord, error) {
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	day := database.SessionDate(date)
	var out []database.AttendanceRecord
	for key, rec := range m.records {
		if key.SessionDate.Equal(day) {
			out = append(out, m.withName(rec))
		}
	}
	slices.SortFunc(out, func(a, b database.AttendanceRecord) int {
		return cmp.Or(cmp.Compare(a.Period, b.Period), strings.Compare(a.IdentityID, b.IdentityID))
	})
	return out, nil
}

// CountPresent returns the number of distinct identities present on a date
func (m *MockLedger) CountPresent(ctx context.Context, date time.Time) (int, error) {
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	day := database.SessionDate(date)
	present := make(map[string]struct{})
	for key, rec := range m.records {
		if key.SessionDate.Equal(day) && rec.Status == database.StatusPresent {
			present[key.IdentityID] = struct{}{}
		}
	}
	return len(present), nil
}

// Summary returns the history of one identity, newest date first
func (m *MockLedger) Summary(ctx context.Context, identityID string) (*database.AttendanceSummary, error) {
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []database.AttendanceRecord
	for key, rec := range m.records {
		if key.IdentityID == identityID {
			records = append(records, m.withName(rec))
		}
	}
	slices.SortFunc(records, func(a, b database.AttendanceRecord) int {
		return cmp.Or(b.SessionDate.Compare(a.SessionDate), cmp.Compare(a.Period, b.Period))
	})
	return database.NewSummary(identityID, records), nil
}

// Len returns the number of stored records
func (m *MockLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MockFacultyStore is an in-memory database.FacultyStore
type MockFacultyStore struct {
	mu      sync.RWMutex
	faculty map[string]database.Faculty

	// Error injection
	ListError error
	SaveError error
}

// NewMockFacultyStore creates a store pre-populated with faculty members
func NewMockFacultyStore(faculty ...database.Faculty) *MockFacultyStore {
	m := &MockFacultyStore{faculty: make(map[string]database.Faculty)}
	for _, f := range faculty {
		m.faculty[f.ID] = f
	}
	return m
}

// ListFaculty returns every faculty member ordered by ID
func (m *MockFacultyStore) ListFaculty(ctx context.Context) ([]database.Faculty, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.Faculty, 0, len(m.faculty))
	for _, f := range m.faculty {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b database.Faculty) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// CountFaculty returns the number of faculty members
func (m *MockFacultyStore) CountFaculty(ctx context.Context) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faculty), nil
}

// SaveFaculty registers a faculty member unless the ID is taken
func (m *MockFacultyStore) SaveFaculty(ctx context.Context, faculty database.Faculty) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.faculty[faculty.ID]; ok {
		return fmt.Errorf("%w: %s", database.ErrFacultyExists, faculty.ID)
	}
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = time.Now().UTC()
	}
	m.faculty[faculty.ID] = faculty
	return nil
}
