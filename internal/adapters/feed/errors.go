package feed

import "errors"

// Sentinel kinds for feed errors.
var (
	ErrInvalidWorkID = errors.New("invalid work id")
	ErrNotFound      = errors.New("work not found upstream")
	ErrUpstream      = errors.New("upstream request failed")
	ErrDecode        = errors.New("decode event feed")
	ErrTooLarge      = errors.New("event feed too large")
)
