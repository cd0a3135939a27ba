package usecase

import "errors"

// Error taxonomy for the messaging use cases.
//
// Validation failures are rejected immediately and never retried; persistence
// failures abort the whole operation with no partial state, leaving retry to
// an explicit user action.
var (
	ErrValidation  = errors.New("chat use case: validation error")
	ErrNotFound    = errors.New("chat use case: conversation not found")
	ErrPersistence = errors.New("chat use case: persistence error")
)
