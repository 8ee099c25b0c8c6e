package handshake

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/frame"
	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
)

// Config configures a Machine.
type Config struct {
	// DeviceID is sent with the init command as ASCII decimal.
	DeviceID uint8

	// Terminator ends every prover frame.
	Terminator byte

	// AckTimeout bounds the best-effort wait for the register ack.
	AckTimeout time.Duration

	// AckSettle is how long the link must stay quiet before an ack is
	// considered complete.
	AckSettle time.Duration

	// PublicKeyTimeout bounds the wait for the public key frame.
	PublicKeyTimeout time.Duration

	// KeyAckTimeout bounds the best-effort wait for the key-exchange ack.
	KeyAckTimeout time.Duration

	// ProofTimeout bounds the wait for the proof frame.
	ProofTimeout time.Duration

	// TrailerTimeout bounds the wait for the timing field that follows the
	// terminator of the public key and proof frames. Zero reads only what
	// is already buffered.
	TrailerTimeout time.Duration

	// MaxFrameSize bounds the bytes buffered while waiting for a frame.
	MaxFrameSize int

	// PublicKeyLayout locates the key inside the public key frame.
	PublicKeyLayout packet.PublicKeyLayout

	// ProofLayout describes the proof frame.
	ProofLayout packet.ProofLayout

	// ValidatePoints rejects public keys and commitments that are not on
	// the curve. Off by default.
	ValidatePoints bool

	// DeriveSessionKey derives Session.SessionKey after a successful check.
	DeriveSessionKey bool

	// Logger receives operational logs. Nil uses slog.Default().
	Logger *slog.Logger

	// ProtocolLogger receives protocol events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default handshake configuration.
func DefaultConfig() Config {
	return Config{
		DeviceID:         10,
		Terminator:       frame.DefaultTerminator,
		AckTimeout:       2 * time.Second,
		AckSettle:        100 * time.Millisecond,
		PublicKeyTimeout: 10 * time.Second,
		KeyAckTimeout:    5 * time.Second,
		ProofTimeout:     15 * time.Second,
		TrailerTimeout:   250 * time.Millisecond,
		MaxFrameSize:     frame.DefaultMaxBufferSize,
		PublicKeyLayout:  packet.DefaultPublicKeyLayout(),
		ProofLayout:      packet.DefaultProofLayout(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"ack", c.AckTimeout},
		{"public key", c.PublicKeyTimeout},
		{"key ack", c.KeyAckTimeout},
		{"proof", c.ProofTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return fmt.Errorf("%w: %s timeout %s", ErrInvalidTimeout, t.name, t.d)
		}
	}
	if c.AckSettle < 0 {
		return fmt.Errorf("%w: ack settle %s", ErrInvalidTimeout, c.AckSettle)
	}
	if c.TrailerTimeout < 0 {
		return fmt.Errorf("%w: trailer timeout %s", ErrInvalidTimeout, c.TrailerTimeout)
	}

	if isHexChar(c.Terminator) || c.Terminator == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidTerminator, c.Terminator)
	}
	if c.PublicKeyLayout.Terminator != c.Terminator || c.ProofLayout.Terminator != c.Terminator {
		return fmt.Errorf("%w: layout terminators differ from %q", ErrInvalidLayout, c.Terminator)
	}
	if c.PublicKeyLayout.PayloadOffset < c.PublicKeyLayout.MetadataSize || c.PublicKeyLayout.MetadataSize < 0 {
		return fmt.Errorf("%w: payload offset %d before end of metadata %d",
			ErrInvalidLayout, c.PublicKeyLayout.PayloadOffset, c.PublicKeyLayout.MetadataSize)
	}
	if c.ProofLayout.Tag == "" || c.ProofLayout.Size() == 0 {
		return fmt.Errorf("%w: empty proof layout", ErrInvalidLayout)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func isHexChar(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}
