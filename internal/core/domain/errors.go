package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCycleInProgress indicates a harvest cycle is already running.
	ErrCycleInProgress = errors.New("harvest cycle in progress")

	// ErrCycleAborted indicates a harvest cycle stopped before the walk completed.
	// Records persisted before the abort remain committed.
	ErrCycleAborted = errors.New("harvest cycle aborted")

	// Upstream Errors.

	// ErrFetchExhausted indicates a page could not be fetched within the retry budget.
	ErrFetchExhausted = errors.New("fetch retries exhausted")

	// ErrMalformedPage indicates an upstream page body could not be decoded.
	ErrMalformedPage = errors.New("malformed page")

	// ErrRateLimited indicates the upstream rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidTable indicates a field extraction table failed validation.
	ErrInvalidTable = errors.New("invalid field table")

	// ErrTaskNotFound indicates the scheduler has no task with the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskRunning indicates a run of the task is already in progress.
	ErrTaskRunning = errors.New("task already running")
)
