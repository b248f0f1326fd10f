package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a concurrent writer changed a key first.
	ErrConflict = errors.New("concurrent modification")

	// ErrInvalidSubject is returned for subjects a store cannot address,
	// such as blank nodes on a remote endpoint.
	ErrInvalidSubject = errors.New("invalid subject")
)
