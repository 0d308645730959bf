package database

import (
	"errors"
	"fmt"
)

// ErrPersistenceUnavailable is returned when the backing store cannot complete an operation.
// The operation has no visible side effect; callers should retry the whole request.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// ErrIdentityNotFound is returned when an identity lookup finds nothing
var ErrIdentityNotFound = errors.New("identity not found")

// ErrFacultyExists is returned when registering an employee ID that is already taken
var ErrFacultyExists = errors.New("faculty already registered")

// Unavailable wraps a driver error so that it matches ErrPersistenceUnavailable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistenceUnavailable, err)
}
