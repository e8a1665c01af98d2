package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a key is not present.
	ErrNotFound = errors.New("key not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
