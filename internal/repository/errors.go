package repository

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when creating a record whose id is already taken.
	ErrDuplicate = errors.New("record already exists")
	// ErrVersionConflict is returned when a versioned write keeps losing to concurrent writers.
	ErrVersionConflict = errors.New("record was modified concurrently")
)
