package entity

import "errors"

// ErrNotFound is returned when a requested entity does not exist or
// has been soft-deleted. Repositories wrap it with context, so match
// with errors.Is.
var ErrNotFound = errors.New("entity not found")
