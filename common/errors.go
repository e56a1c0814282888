package common

import (
	"errors"
)

// Common error constants
var (
	// ErrInvalidConfig is returned when an invalid configuration is provided
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreUnavailable is returned when the relational store is not configured or cannot be reached
	ErrStoreUnavailable = errors.New("relational store unavailable")

	// ErrRunInProgress is returned when another ingest run holds the run lock
	ErrRunInProgress = errors.New("ingest run already in progress")
)
