package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutcomeRecorded is returned when attempting to set an outcome
	// on a decision or flow that already has one. Outcomes are written
	// at most once.
	ErrOutcomeRecorded = errors.New("outcome already recorded")

	// ErrNotFollowed is returned when attempting to record P&L on a
	// whale flow that was never followed.
	ErrNotFollowed = errors.New("flow not followed")
)
