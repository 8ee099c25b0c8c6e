package handshake

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Configuration errors.
var (
	ErrInvalidTimeout    = errors.New("invalid timeout")
	ErrInvalidTerminator = errors.New("invalid terminator")
	ErrInvalidLayout     = errors.New("invalid packet layout")
	ErrNoDialer          = errors.New("no dialer configured")
)

// ErrFrameTimeout is matched by every *FrameTimeoutError.
var ErrFrameTimeout = errors.New("frame timeout")

// ChannelError reports a connect, send or disconnect failure.
type ChannelError struct {
	// Op is "connect", "send" or "disconnect".
	Op string

	// Command is the command code for send failures.
	Command string

	Err error
}

func (e *ChannelError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("channel %s %s: %v", e.Op, e.Command, e.Err)
	}
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// FrameTimeoutError reports a terminator that did not arrive in time.
// Partial holds whatever was buffered; it is never decoded.
type FrameTimeoutError struct {
	State   State
	Timeout time.Duration
	Partial []byte
}

func (e *FrameTimeoutError) Error() string {
	return fmt.Sprintf("no frame in %s after %s (%d bytes buffered)", e.State, e.Timeout, len(e.Partial))
}

func (e *FrameTimeoutError) Unwrap() error { return ErrFrameTimeout }

// MalformedFrameError reports a frame that failed to decode. Err wraps one
// of the packet package's failure kinds.
type MalformedFrameError struct {
	State State
	Frame []byte
	Err   error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame in %s: %v", e.State, e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

// errorKind names the failure class of err for protocol logs.
func errorKind(err error) string {
	var chErr *ChannelError
	var toErr *FrameTimeoutError
	var mfErr *MalformedFrameError
	switch {
	case errors.As(err, &chErr):
		return "channel"
	case errors.As(err, &toErr):
		return "timeout"
	case errors.As(err, &mfErr):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
