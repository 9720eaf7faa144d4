package domain

import "errors"

// ErrInvalidState is returned when a job lifecycle operation is attempted
// from a state that does not permit it. It signals a caller bug rather than
// a business failure and is never retried by the task runner.
var ErrInvalidState = errors.New("invalid job state transition")
