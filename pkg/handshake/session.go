package handshake

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// SessionKeySize is the size of a derived session key.
const SessionKeySize = 32

const sessionKeyInfo = "zkble session key v1"

// Session is the per-attempt handshake context. Each protocol step takes a
// Session and returns the updated copy; nothing else writes to it.
type Session struct {
	// ID correlates logs for this attempt.
	ID string

	// Address is the prover's channel address.
	Address string

	// DeviceID is the identifier sent with the init command.
	DeviceID uint8

	// State is the current handshake state.
	State State

	// GeneratorXHex is G's X coordinate as hashed into the transcript.
	GeneratorXHex string

	// ProverXHex is the prover's public X exactly as received.
	ProverXHex string

	// ProverKey is the prover's public point Qd.
	ProverKey curve.Point

	// KeyMetadata is the timing field leading the public key frame.
	KeyMetadata string

	// Ephemeral is the verifier's per-session key pair.
	Ephemeral *curve.KeyPair

	// RegisterAck and KeyAck hold the best-effort acknowledgements.
	RegisterAck []byte
	KeyAck      []byte

	// KeyTiming and ProofTiming hold bytes trailing the respective frames.
	KeyTiming   string
	ProofTiming string

	// Hash and HashHex are the transcript hash once computed.
	Hash    *big.Int
	HashHex string

	// SessionKey is set after a successful check when enabled.
	SessionKey []byte
}

// NewSession starts a session for the prover at address.
func NewSession(address string, deviceID uint8) Session {
	return Session{
		ID:            uuid.New().String(),
		Address:       address,
		DeviceID:      deviceID,
		State:         StateIdle,
		GeneratorXHex: curve.GeneratorXHex(),
	}
}

// DeviceIDString returns the device identifier as sent on the wire.
func (s Session) DeviceIDString() string {
	return fmt.Sprintf("%d", s.DeviceID)
}

// deriveSessionKey expands the ECDH X coordinate of the ephemeral key and
// Qd, salted with the commitment X.
func deriveSessionKey(ephemeral *curve.KeyPair, qd curve.Point, commitmentX []byte) ([]byte, error) {
	shared, err := ephemeral.SharedX(qd)
	if err != nil {
		return nil, fmt.Errorf("shared secret: %w", err)
	}
	return DeriveSessionKey(shared, commitmentX)
}

// DeriveSessionKey expands an ECDH X coordinate into a session key with
// HKDF-SHA256. Both ends call it with the same inputs.
func DeriveSessionKey(sharedX, commitmentX []byte) ([]byte, error) {
	key := make([]byte, SessionKeySize)
	r := hkdf.New(sha256.New, sharedX, commitmentX, []byte(sessionKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}
