package usecase

import "errors"

var (
	// ErrInvalidBatch rejects a whole request: empty or oversized.
	ErrInvalidBatch = errors.New("invalid damage batch")
	// ErrInvalidEvent marks a single event; the rest of the batch goes on.
	ErrInvalidEvent = errors.New("invalid damage event")
)
