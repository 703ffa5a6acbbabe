// Package sentinel holds the storage-level facts that stores report and the
// service layer translates into domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint or a compare-and-set lost
	// against a concurrent writer.
	ErrConflict = errors.New("conflict")
)
