package log

import "time"

// Event is a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the authentication attempt (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates data flow relative to the verifier.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event payload.
	Category Category `cbor:"5,keyasint"`

	// DeviceAddress is the channel address of the prover.
	DeviceAddress string `cbor:"6,keyasint,omitempty"`

	// DeviceID is the decimal device identifier sent with the init command.
	DeviceID string `cbor:"7,keyasint,omitempty"`

	// Exactly one payload is set.
	Frame        *FrameEvent        `cbor:"10,keyasint,omitempty"`
	Command      *CommandEvent      `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Verification *VerificationEvent `cbor:"13,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn is prover to verifier.
	DirectionIn Direction = 0
	// DirectionOut is verifier to prover.
	DirectionOut Direction = 1
	// DirectionLocal marks events with no wire traffic.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the channel and frame reassembly layer.
	LayerTransport Layer = 0
	// LayerCodec is the packet decoding layer.
	LayerCodec Layer = 1
	// LayerHandshake is the protocol state machine.
	LayerHandshake Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerCodec:
		return "CODEC"
	case LayerHandshake:
		return "HANDSHAKE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame is a reassembled inbound frame.
	CategoryFrame Category = 0
	// CategoryCommand is an outbound command write.
	CategoryCommand Category = 1
	// CategoryState is a state transition.
	CategoryState Category = 2
	// CategoryVerification is the result of the Schnorr check.
	CategoryVerification Category = 3
	// CategoryError is a failure at any layer.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryVerification:
		return "VERIFICATION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a frame extracted from the notification stream.
type FrameEvent struct {
	// Size is the frame size in bytes, terminator included.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Remainder counts bytes left buffered after the terminator.
	Remainder int `cbor:"4,keyasint,omitempty"`
}

// CommandEvent captures a command written to the prover.
type CommandEvent struct {
	// Code is the command letter (R, I, K, D).
	Code string `cbor:"1,keyasint"`

	// Size is the full command size in bytes.
	Size int `cbor:"2,keyasint"`

	// Data is the raw command bytes.
	Data []byte `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a handshake state transition.
type StateChangeEvent struct {
	// OldState is the previous state (empty for the first transition).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// VerificationEvent captures the outcome of the Schnorr check.
type VerificationEvent struct {
	// Outcome is ACCEPTED or REJECTED.
	Outcome string `cbor:"1,keyasint"`

	// HashHex is the transcript hash as uppercase hex.
	HashHex string `cbor:"2,keyasint"`

	// CommitmentX is the commitment X coordinate as uppercase hex.
	CommitmentX string `cbor:"3,keyasint"`

	// PacketDeviceID is the device identifier carried in the proof packet.
	PacketDeviceID uint8 `cbor:"4,keyasint"`

	// Tag is the plaintext tag carried in the proof packet.
	Tag string `cbor:"5,keyasint,omitempty"`

	// ResponseOverflow is set when the challenge response was not below n.
	ResponseOverflow bool `cbor:"6,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Kind is the failure class (channel, timeout, malformed, cancelled).
	Kind string `cbor:"2,keyasint"`

	// Message is the error message.
	Message string `cbor:"3,keyasint"`

	// Context describes the state the handshake was in.
	Context string `cbor:"4,keyasint,omitempty"`

	// Partial holds buffered bytes at the time of a timeout.
	Partial []byte `cbor:"5,keyasint,omitempty"`
}
