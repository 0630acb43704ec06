package jobqueue

import "errors"

var (
	// ErrNotFound is returned when a job id is unknown to the queue.
	ErrNotFound = errors.New("jobqueue: job not found")
	// ErrAlreadyTerminal is returned by Cancel when the job already
	// reached a terminal state.
	ErrAlreadyTerminal = errors.New("jobqueue: job already in a terminal state")
)
