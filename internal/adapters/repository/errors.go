package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrNotFound      = errors.New("work not found")
	ErrInvalidWorkID = errors.New("invalid work id")
)
