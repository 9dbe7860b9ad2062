package discord

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrNotConnected indicates a payload send was attempted without an open
	// socket.
	ErrNotConnected = errors.New("discord: not connected")

	// ErrMissingToken indicates the gateway was constructed without a bot
	// token.
	ErrMissingToken = errors.New("discord: missing bot token")

	// ErrInvalidHello indicates the server sent a HELLO with a non-positive or
	// non-finite heartbeat interval.
	ErrInvalidHello = errors.New("discord: invalid heartbeat interval in HELLO")
)
