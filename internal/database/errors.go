package database

import "errors"

var (
	// ErrQueueFull is returned when the audit write queue cannot take another event
	ErrQueueFull = errors.New("audit write queue full")
	// ErrWriteTimeout is returned when a synchronous write waits too long for the writer
	ErrWriteTimeout = errors.New("audit write timed out")
)
