package prover

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
	"github.com/zkble-protocol/zkble-go/pkg/schnorr"
)

// Default acknowledgements.
const (
	AckRegistered      = "R1"
	AckFirstRegistered = "RA"
	AckKey             = "KA"
)

// Config configures a simulated device.
type Config struct {
	// Name is the advertised device name.
	Name string

	// DeviceID is used when the init command carries no parsable id.
	DeviceID uint8

	// Tag is the plaintext tag written into the proof packet.
	Tag string

	// ChunkSize limits each notification (default: 20).
	ChunkSize int

	// ChunkDelay is the pause between notifications.
	ChunkDelay time.Duration

	// Faults injects misbehaviour.
	Faults Faults

	// Rand supplies nonces. Nil uses crypto/rand.
	Rand io.Reader
}

// DefaultConfig returns the configuration of the reference device.
func DefaultConfig() Config {
	return Config{
		Name:      "ZKBLE-Prover",
		DeviceID:  10,
		Tag:       "Hello, verifier!",
		ChunkSize: 20,
	}
}

// Faults describes injected misbehaviour.
type Faults struct {
	// SilentAcks suppresses the register and key-exchange acks.
	SilentAcks bool

	// SilentPublicKey suppresses the public key frame.
	SilentPublicKey bool

	// SilentProof suppresses the proof frame.
	SilentProof bool

	// PartialProof sends only this many bytes of the proof frame, with no
	// terminator. Zero disables it.
	PartialProof int

	// TamperResponse adds one to the challenge response.
	TamperResponse bool

	// TamperCommitment adds one to the commitment X coordinate.
	TamperCommitment bool

	// TruncateProof drops this many hex characters before the terminator.
	TruncateProof int

	// CorruptProofHex replaces one payload character with a non-hex one.
	CorruptProofHex bool

	// PublicKeyFrame replaces the public key frame verbatim.
	PublicKeyFrame []byte

	// ProofFrame replaces the proof frame verbatim.
	ProofFrame []byte
}

// Device is a simulated prover holding a long-term key.
type Device struct {
	cfg Config
	key *curve.KeyPair

	mu          sync.Mutex
	registered  bool
	deviceID    uint8
	verifierKey curve.Point
	lastProof   *schnorr.Proof
	sessionKey  []byte
	commands    [][]byte
}

// NewDevice creates a device with key.
func NewDevice(key *curve.KeyPair, cfg Config) *Device {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	return &Device{cfg: cfg, key: key, deviceID: cfg.DeviceID}
}

// Name returns the advertised name.
func (d *Device) Name() string { return d.cfg.Name }

// PublicKey returns the device public key Qd.
func (d *Device) PublicKey() curve.Point { return d.key.Public() }

// Config returns the device configuration.
func (d *Device) Config() Config { return d.cfg }

// LastProof returns the most recent proof, or nil.
func (d *Device) LastProof() *schnorr.Proof {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastProof
}

// SessionKey returns the key derived with the verifier's ephemeral key
// during the last proof, or nil.
func (d *Device) SessionKey() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionKey
}

// Commands returns a copy of every command received.
func (d *Device) Commands() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.commands))
	copy(out, d.commands)
	return out
}

// Respond handles one command and returns the full response, or nil if
// the device stays silent.
func (d *Device) Respond(cmd []byte) ([]byte, error) {
	if len(cmd) == 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, append([]byte(nil), cmd...))

	switch cmd[0] {
	case handshake.CmdRegister:
		return d.register(), nil
	case handshake.CmdInit:
		return d.publicKeyFrame(cmd[1:]), nil
	case handshake.CmdKeyExchange:
		return d.keyExchange(cmd[1:]), nil
	case handshake.CmdRequestDigest:
		return d.proofFrame()
	default:
		return nil, nil
	}
}

func (d *Device) register() []byte {
	ack := AckRegistered
	if !d.registered {
		ack = AckFirstRegistered
		d.registered = true
	}
	if d.cfg.Faults.SilentAcks {
		return nil
	}
	return []byte(ack)
}

func (d *Device) publicKeyFrame(arg []byte) []byte {
	if id, err := strconv.ParseUint(string(arg), 10, 8); err == nil {
		d.deviceID = uint8(id)
	}
	if d.cfg.Faults.SilentPublicKey {
		return nil
	}
	if d.cfg.Faults.PublicKeyFrame != nil {
		return d.cfg.Faults.PublicKeyFrame
	}

	start := time.Now()
	pub := d.key.Public()
	meta := fmt.Sprintf("Key generation time: %d us", time.Since(start).Microseconds())
	return packet.EncodePublicKeyFrame(meta, pub, "")
}

func (d *Device) keyExchange(arg []byte) []byte {
	if p, err := curve.PointFromBytes(arg); err == nil {
		d.verifierKey = p
	}
	if d.cfg.Faults.SilentAcks {
		return nil
	}
	return []byte(AckKey)
}

func (d *Device) proofFrame() ([]byte, error) {
	f := d.cfg.Faults
	if f.SilentProof {
		return nil, nil
	}
	if f.ProofFrame != nil {
		return f.ProofFrame, nil
	}

	start := time.Now()
	k, err := curve.RandomScalar(d.cfg.Rand)
	if err != nil {
		return nil, err
	}
	proof, err := schnorr.Prove(d.key.Private(), k, d.key.Public().XHex())
	if err != nil {
		return nil, err
	}
	d.lastProof = proof
	d.sessionKey = d.deriveSessionKey(proof.Commitment)

	commitment := proof.Commitment
	if f.TamperCommitment {
		commitment = curve.Point{X: new(big.Int).Add(commitment.X, big.NewInt(1)), Y: commitment.Y}
	}
	response := proof.Response
	if f.TamperResponse {
		response = new(big.Int).Add(response, big.NewInt(1))
	}

	layout := packet.DefaultProofLayout()
	raw := layout.Pack(commitment, response, d.deviceID, d.cfg.Tag)
	timing := fmt.Sprintf("%07d", time.Since(start).Microseconds())
	frame := layout.EncodeFrame(raw, timing)

	switch {
	case f.PartialProof > 0:
		frame = frame[:min(f.PartialProof, len(frame))]
	case f.TruncateProof > 0:
		end := len(packet.ProofTag) + 2*layout.Size()
		cut := max(end-f.TruncateProof, len(packet.ProofTag))
		frame = append(append([]byte(nil), frame[:cut]...), frame[end:]...)
	case f.CorruptProofHex:
		frame[len(packet.ProofTag)+10] = 'G'
	}
	return frame, nil
}

func (d *Device) deriveSessionKey(commitment curve.Point) []byte {
	if d.verifierKey.IsInfinity() {
		return nil
	}
	shared, err := d.key.SharedX(d.verifierKey)
	if err != nil {
		return nil
	}
	key, err := handshake.DeriveSessionKey(shared, commitment.Bytes()[:curve.CoordinateSize])
	if err != nil {
		return nil
	}
	return key
}

// Chunk splits data into notifications of at most size bytes.
func Chunk(data []byte, size int) [][]byte {
	if size <= 0 {
		size = len(data)
	}
	var out [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
