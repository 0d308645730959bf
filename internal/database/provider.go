package database

import (
	"context"
	"errors"
	"sync"
)

// ErrBackendNotInitialized is returned when no storage backend has been registered
var ErrBackendNotInitialized = errors.New("storage backend not initialized: DATABASE_URL or MARIADB_DSN is required")

var (
	backendMu        sync.RWMutex
	identityWriter   func() IdentityWriter
	attendanceStore  func() AttendanceStore
	facultyStore     func() FacultyStore
	backendName      string
	backendInitiated bool
)

// RegisterBackend registers the repository constructors of the active backend.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, identities func() IdentityWriter, attendance func() AttendanceStore, faculty func() FacultyStore) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = name
	identityWriter = identities
	attendanceStore = attendance
	facultyStore = faculty
	backendInitiated = true
}

// ResetBackend forgets the registered backend.
func ResetBackend() {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = ""
	identityWriter = nil
	attendanceStore = nil
	facultyStore = nil
	backendInitiated = false
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendInitiated
}

// BackendName returns the name of the registered backend.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}

// GetIdentityReader returns an IdentityReader from the registered backend
func GetIdentityReader(ctx context.Context) (IdentityReader, error) {
	return GetIdentityWriter(ctx)
}

// GetIdentityWriter returns an IdentityWriter from the registered backend
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if !backendInitiated || identityWriter == nil {
		return nil, ErrBackendNotInitialized
	}
	return identityWriter(), nil
}

// GetAttendanceStore returns the AttendanceStore from the registered backend
func GetAttendanceStore(ctx context.Context) (AttendanceStore, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if !backendInitiated || attendanceStore == nil {
		return nil, ErrBackendNotInitialized
	}
	return attendanceStore(), nil
}

// GetFacultyStore returns the FacultyStore from the registered backend
func GetFacultyStore(ctx context.Context) (FacultyStore, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if !backendInitiated || facultyStore == nil {
		return nil, ErrBackendNotInitialized
	}
	return facultyStore(), nil
}
