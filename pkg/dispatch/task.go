// Package dispatch submits analysis work to a worker pool and exposes job
// status lookups by handle. Job submission returns immediately; workers claim
// jobs independently of the request/response cycle.
package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownJob is returned by Status for a handle that was never issued.
var ErrUnknownJob = errors.New("unknown job")

// JobStatus represents the current state of a job.
//
// Transitions: pending -> running -> {succeeded, failed}, with
// failed -> pending allowed while retry attempts remain.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Task is the unit of work the dispatcher runs.
type Task interface {
	// Name returns a human-readable name used in logs.
	Name() string

	// Execute runs the task. Errors wrapped with apperrors.Transient are
	// retried; any other error fails the job terminally.
	Execute(ctx context.Context) error
}

// JobSnapshot is an immutable view of job state for status queries.
type JobSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Status   JobStatus `json:"status"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
}
