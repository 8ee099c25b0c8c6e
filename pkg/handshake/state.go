package handshake

// State is a handshake state.
type State uint8

const (
	StateIdle State = iota
	StateConnected
	StateRegistered
	StateAwaitingPublicKey
	StateKeyExchanged
	StateAwaitingProof
	StateVerified
	StateRejected
	StateFailed
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnected:
		return "CONNECTED"
	case StateRegistered:
		return "REGISTERED"
	case StateAwaitingPublicKey:
		return "AWAITING_PUBLIC_KEY"
	case StateKeyExchanged:
		return "KEY_EXCHANGED"
	case StateAwaitingProof:
		return "AWAITING_PROOF"
	case StateVerified:
		return "VERIFIED"
	case StateRejected:
		return "REJECTED"
	case StateFailed:
		return "FAILED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s ends the protocol exchange.
func (s State) Terminal() bool {
	switch s {
	case StateVerified, StateRejected, StateFailed, StateClosed:
		return true
	default:
		return false
	}
}

// Outcome is the overall result of a handshake.
type Outcome uint8

const (
	// OutcomeFailed indicates the handshake aborted; Result.Err holds the
	// cause.
	OutcomeFailed Outcome = iota

	// OutcomeAuthenticated indicates the proof verified.
	OutcomeAuthenticated

	// OutcomeRejected indicates a well-formed proof that did not verify.
	OutcomeRejected
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "AUTHENTICATED"
	case OutcomeRejected:
		return "REJECTED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
