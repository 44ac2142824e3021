package service

import "errors"

// Sentinel errors for the service.
var (
	ErrNoFeed  = errors.New("no event feed configured")
	ErrStopped = errors.New("service stopped")
)
