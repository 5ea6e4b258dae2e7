package model

import "errors"

// Error taxonomy shared by the store and the coordinator.
//
// ErrNotFound is a normal negative lookup result, not a failure.
// ErrStorageUnavailable means the circuit is open: lookups degrade to
// "no policy found" and writes fail fast.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrValidation         = errors.New("validation failed")
)
