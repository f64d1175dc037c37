package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidConfig   = errors.New("invalid configuration")

	// Conversation errors
	ErrTurnInProgress = errors.New("another turn is in progress for this chat")
	ErrCorruptState   = errors.New("conversation state is corrupt")

	// Storage errors
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
