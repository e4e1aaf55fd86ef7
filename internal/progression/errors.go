// Package progression derives completion, gating, and transcript state from
// the append-only activity and grade ledger. All writes are idempotent or
// uniqueness-guarded; every read is a pure recomputation over the ledger.
package progression

import "errors"

// Error taxonomy. Callers classify with errors.Is; the API layer maps these
// to HTTP statuses.
var (
	// ErrNotFound means a referenced entity does not exist or is
	// unpublished. Not retryable.
	ErrNotFound = errors.New("not found")

	// ErrInvalid means the payload is malformed, such as an answer
	// referencing a question outside the quiz. Not retryable.
	ErrInvalid = errors.New("invalid input")

	// ErrConflict means a uniqueness constraint fired. The grader retries
	// once internally; if it still conflicts the caller sees this.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable means the store failed transiently. The caller may
	// retry.
	ErrUnavailable = errors.New("store unavailable")
)
