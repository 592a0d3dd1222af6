package domain

import "errors"

// Domain errors represent failure conditions of the parking lot.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrDuplicate is returned when a plate is already known to the lot,
	// whether still parked or departed.
	ErrDuplicate = errors.New("parkd: vehicle already in lot")

	// ErrLotFull is returned when the lot is at capacity and the caller
	// did not ask to wait for a slot.
	ErrLotFull = errors.New("parkd: lot is full")

	// ErrWaitTimeout is returned when an admission wait elapses before
	// a slot frees up.
	ErrWaitTimeout = errors.New("parkd: admission wait timed out")

	// ErrNotFound is returned when a plate is unknown or already departed.
	ErrNotFound = errors.New("parkd: vehicle not found")

	// ErrInvalidArgument is returned for non-positive rates and other
	// rejected inputs.
	ErrInvalidArgument = errors.New("parkd: invalid argument")
)
