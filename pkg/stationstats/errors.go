package stationstats

import "errors"

// Sentinel errors for common error conditions
var (
	// Configuration errors
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidChunkSize    = errors.New("invalid chunk size")
	ErrUnknownSpillMode    = errors.New("unknown spill mode")
	ErrUnknownSpillBackend = errors.New("unknown spill backend")

	// Version/compatibility errors
	ErrIncompatibleVersion = errors.New("incompatible version")

	// Result errors
	ErrDuplicateKey = errors.New("station present in more than one bucket")
)
