package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates no LLM service is configured.
	// Planning and synthesis are impossible without one.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrSessionNotFound indicates the referenced chat session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSynthesisFailed indicates the synthesis LLM call failed.
	// Unlike source failures, this is fatal to the request.
	ErrSynthesisFailed = errors.New("synthesis failed")
)
