package domain

import "errors"

// Shared error taxonomy. Call sites wrap these with context via
// fmt.Errorf("...: %w", Err...) and the HTTP layer maps them to
// status codes in one place.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("not allowed")
	ErrValidation   = errors.New("validation failed")
)
