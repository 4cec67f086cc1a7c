package models

import "errors"

var (
	// ErrInvalidTransition is returned when a requested status is not reachable from the current one.
	ErrInvalidTransition = errors.New("invalid work order transition")

	// ErrDuplicateTrigger is returned when a trigger would create a second open order for the same source.
	ErrDuplicateTrigger = errors.New("duplicate trigger")

	// ErrStoreUnavailable is returned when the work order store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModify is returned when a conditional update lost a race.
	ErrConcurrentModify = errors.New("concurrent modification")

	// ErrInvalidArgument is returned when an inbound record fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
