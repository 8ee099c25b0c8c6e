package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/discovery"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/symmetric"
	"github.com/zkble-protocol/zkble-go/pkg/transport"
)

// Service errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownScheme  = errors.New("unknown scheme")
	ErrDeviceNotFound = errors.New("device not found")
)

// Scheme selects the authentication variant.
type Scheme string

const (
	// SchemeSchnorr is the zero-knowledge handshake.
	SchemeSchnorr Scheme = "schnorr"

	// SchemeAES checks an AES-CBC ciphertext pushed by the device.
	SchemeAES Scheme = "aes"

	// SchemeHMAC checks an HMAC-SHA256 tag pushed by the device.
	SchemeHMAC Scheme = "hmac"
)

// ParseScheme parses a scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeSchnorr, SchemeAES, SchemeHMAC:
		return Scheme(s), nil
	case "":
		return SchemeSchnorr, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
}

// Config configures a Verifier.
type Config struct {
	// Scheme selects the authentication variant. Default: schnorr.
	Scheme Scheme

	// DeviceName is the default name used by AuthenticateByName callers.
	DeviceName string

	// Handshake configures the Schnorr handshake.
	Handshake handshake.Config

	// Listen configures the AES and HMAC variants.
	Listen symmetric.ListenConfig

	// AESKeyHex and HMACKeyHex are the pre-shared keys.
	AESKeyHex  string
	HMACKeyHex string

	// AESLayout places the fields of an AES frame.
	AESLayout symmetric.AESLayout

	// Browser configures discovery.
	Browser discovery.BrowserConfig

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// Stream configures the TCP channel.
	Stream transport.StreamConfig

	// Logger is the operational logger. Nil uses slog.Default().
	Logger *slog.Logger

	// ProtocolLogger receives protocol events from every scheme. Nil
	// disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Scheme:      SchemeSchnorr,
		Handshake:   handshake.DefaultConfig(),
		Listen:      symmetric.DefaultListenConfig(),
		AESKeyHex:   symmetric.DefaultAESKeyHex,
		HMACKeyHex:  symmetric.DefaultHMACKeyHex,
		AESLayout:   symmetric.DefaultAESLayout,
		Browser:     discovery.DefaultBrowserConfig(),
		DialTimeout: 10 * time.Second,
		Stream:      transport.DefaultStreamConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := ParseScheme(string(c.Scheme)); err != nil {
		return err
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout must be positive", ErrInvalidConfig)
	}
	if c.Scheme == SchemeSchnorr || c.Scheme == "" {
		if err := c.Handshake.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// EventType identifies a verifier event.
type EventType uint8

const (
	// EventDiscovered - a bridge matched the requested name.
	EventDiscovered EventType = iota

	// EventConnected - the channel to the device is up.
	EventConnected

	// EventAuthenticated - the device proved its identity.
	EventAuthenticated

	// EventRejected - the device answered but failed the check.
	EventRejected

	// EventFailed - the attempt aborted.
	EventFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventDiscovered:
		return "DISCOVERED"
	case EventConnected:
		return "CONNECTED"
	case EventAuthenticated:
		return "AUTHENTICATED"
	case EventRejected:
		return "REJECTED"
	case EventFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is emitted at each stage of an attempt.
type Event struct {
	Type    EventType
	Scheme  Scheme
	Address string

	// Bridge is set for discovery events.
	Bridge *discovery.Bridge

	// Error is set for failures.
	Error error
}

// EventHandler handles verifier events.
type EventHandler func(Event)

// Report is the result of one authentication attempt.
type Report struct {
	Scheme  Scheme
	Address string
	Outcome handshake.Outcome
	Err     error

	// Bridge is set when the device was located by name.
	Bridge *discovery.Bridge

	// Handshake is set for the Schnorr scheme.
	Handshake *handshake.Result

	// Symmetric is set for the AES and HMAC schemes.
	Symmetric *symmetric.Result

	Duration time.Duration
}

// Authenticated reports whether the device was authenticated.
func (r *Report) Authenticated() bool {
	return r.Outcome == handshake.OutcomeAuthenticated
}
