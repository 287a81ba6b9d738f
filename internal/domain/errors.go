package domain

import "errors"

var (
	// ErrClipTooLarge is returned when a sound clip payload exceeds the
	// configured per-clip cap. The sound log is left unchanged.
	ErrClipTooLarge = errors.New("sound clip payload too large")

	// ErrHubStopped is returned when registering against a hub that has
	// already shut down.
	ErrHubStopped = errors.New("hub stopped")

	// ErrHubFull is returned when the connection cap is reached.
	ErrHubFull = errors.New("connection limit reached")
)
