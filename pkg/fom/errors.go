package fom

import "errors"

var (
	// ErrNoFreshValue is returned by the fresh accessors when the value has
	// already been consumed. Callers treat it as a normal outcome.
	ErrNoFreshValue = errors.New("no fresh value")

	// ErrHandleReassigned is returned when a resolved handle would change.
	ErrHandleReassigned = errors.New("handle already assigned")

	// ErrModelFrozen is returned when bindings change after handle resolution.
	ErrModelFrozen = errors.New("object model is frozen")

	// ErrNotResolved is returned when an operation needs handles that have
	// not been resolved yet.
	ErrNotResolved = errors.New("handles not resolved")

	// ErrNotRegistered is returned when a published instance is updated
	// before registration.
	ErrNotRegistered = errors.New("instance not registered")

	// ErrAlreadyInitialized is returned by a second InitAttributesMap.
	ErrAlreadyInitialized = errors.New("attribute map already initialized")
)
