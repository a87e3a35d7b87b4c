package store

import "errors"

var (
	// ErrNotFound is returned when a record doesn't exist.
	ErrNotFound = errors.New("listsync: record not found")

	// ErrAlreadyExists is returned when attempting to create a record with an existing key.
	ErrAlreadyExists = errors.New("listsync: record already exists")

	// ErrPreconditionFailed is returned when a conditional write's condition did not hold.
	ErrPreconditionFailed = errors.New("listsync: write precondition failed")

	// ErrTransactionSizeExceeded is returned when a transaction carries more
	// operations than the per-call limit. Callers must chunk larger sets.
	ErrTransactionSizeExceeded = errors.New("listsync: transaction size exceeded")

	// ErrUnavailable wraps transient DynamoDB infrastructure failures.
	ErrUnavailable = errors.New("listsync: store unavailable")
)
