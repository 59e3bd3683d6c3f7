package database

import "errors"

var (
	// ErrNotFound is returned if a record is not found in the database.
	ErrNotFound = errors.New("not found")

	// ErrNothingToRollback is returned if no previously activated, non-current
	// record exists.
	ErrNothingToRollback = errors.New("nothing to rollback to")
)

// IsNotFoundError checks if the error indicates a row was not found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
