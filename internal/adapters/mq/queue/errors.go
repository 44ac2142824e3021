package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull   = errors.New("refresh queue full")
	ErrClosed      = errors.New("refresh queue closed")
	ErrEmptyWorkID = errors.New("refresh job without work id")
)
