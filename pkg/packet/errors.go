package packet

import "errors"

// Decode failure kinds.
var (
	// ErrInvalidHex indicates a payload character outside [0-9A-Fa-f] or an
	// odd number of hex digits.
	ErrInvalidHex = errors.New("invalid hex payload")

	// ErrLengthMismatch indicates a payload of the wrong size.
	ErrLengthMismatch = errors.New("payload length mismatch")

	// ErrMissingTag indicates a proof frame without its "PA" prefix.
	ErrMissingTag = errors.New("missing frame tag")

	// ErrMissingTerminator indicates a frame without the terminator byte.
	ErrMissingTerminator = errors.New("missing frame terminator")

	// ErrPointNotOnCurve indicates a decoded point that fails the curve
	// equation. Only reported when point validation is enabled.
	ErrPointNotOnCurve = errors.New("point not on curve")
)
