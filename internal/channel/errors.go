package channel

import "errors"

// Sentinel errors for channel operations.
var (
	// ErrNoChannel indicates a lookup for a channel ID that is not registered.
	ErrNoChannel = errors.New("channel: unknown channel")

	// ErrDuplicateChannel indicates a channel with the same ID is already
	// registered.
	ErrDuplicateChannel = errors.New("channel: duplicate channel id")

	// ErrNotConnected indicates a send was attempted while the adapter is not
	// in the connected state.
	ErrNotConnected = errors.New("channel: not connected")
)
