package router

import "errors"

// Sentinel errors for routing operations.
var (
	// ErrNoContent indicates an inbound message carried neither text nor a
	// voice transcript.
	ErrNoContent = errors.New("router: cannot route inbound message without text content")

	// ErrNoDestination indicates an outbound response had no resolvable
	// channel destination.
	ErrNoDestination = errors.New("router: no channel destination found")
)
