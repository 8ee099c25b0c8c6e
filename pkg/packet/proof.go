package packet

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// Proof packet field sizes.
const (
	CommitmentXSize = curve.CoordinateSize
	CommitmentYSize = curve.CoordinateSize
	ResponseSize    = 32
	DeviceIDSize    = 1
	TagSize         = 16

	// ProofSize is the total decoded proof packet size.
	ProofSize = CommitmentXSize + CommitmentYSize + ResponseSize + DeviceIDSize + TagSize

	// ProofTag prefixes every proof frame.
	ProofTag = "PA"
)

// Field is a byte range inside a binary packet.
type Field struct {
	Offset int
	Size   int
}

// End returns the offset just past the field.
func (f Field) End() int { return f.Offset + f.Size }

// slice returns the field's bytes from b.
func (f Field) slice(b []byte) []byte { return b[f.Offset:f.End()] }

// ProofLayout describes the proof frame and the fields of its packet.
type ProofLayout struct {
	Tag        string
	Terminator byte

	CommitmentX Field
	CommitmentY Field
	Response    Field
	DeviceID    Field
	Text        Field
}

// DefaultProofLayout returns the layout sent by the reference prover.
func DefaultProofLayout() ProofLayout {
	l := ProofLayout{Tag: ProofTag, Terminator: ';'}
	off := 0
	next := func(size int) Field {
		f := Field{Offset: off, Size: size}
		off += size
		return f
	}
	l.CommitmentX = next(CommitmentXSize)
	l.CommitmentY = next(CommitmentYSize)
	l.Response = next(ResponseSize)
	l.DeviceID = next(DeviceIDSize)
	l.Text = next(TagSize)
	return l
}

// Size returns the packet size implied by the layout.
func (l ProofLayout) Size() int {
	return l.Text.End()
}

// ProofPacket is a decoded proof.
type ProofPacket struct {
	// Commitment is the prover's commitment point R.
	Commitment curve.Point

	// CommitmentXHex is the commitment X as 64 uppercase hex characters,
	// the form hashed into the transcript.
	CommitmentXHex string

	// Response is the challenge response scalar, unreduced.
	Response *big.Int

	// ResponseOverflow is set when Response is not below the group order.
	ResponseOverflow bool

	// DeviceID is the one-byte device identifier.
	DeviceID uint8

	// Tag is the plaintext tag. Invalid UTF-8 sequences are dropped.
	Tag string

	// Raw holds the decoded packet bytes.
	Raw []byte
}

// DecodeProof decodes a proof frame using the default layout.
func DecodeProof(frame []byte) (*ProofPacket, error) {
	return DefaultProofLayout().Decode(frame)
}

// Decode decodes a proof frame. Anything after the first terminator is
// ignored.
func (l ProofLayout) Decode(frame []byte) (*ProofPacket, error) {
	text := bytes.TrimLeft(frame, " \t\r\n")
	if !bytes.HasPrefix(text, []byte(l.Tag)) {
		return nil, fmt.Errorf("%w: want %q", ErrMissingTag, l.Tag)
	}
	text = text[len(l.Tag):]

	end := bytes.IndexByte(text, l.Terminator)
	if end < 0 {
		return nil, ErrMissingTerminator
	}

	payload, err := cleanHex(string(text[:end]))
	if err != nil {
		return nil, err
	}
	raw, err := decodeHex(payload, l.Size())
	if err != nil {
		return nil, err
	}
	return l.Unpack(raw)
}

// Unpack splits a binary packet into its fields.
func (l ProofLayout) Unpack(raw []byte) (*ProofPacket, error) {
	if len(raw) != l.Size() {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrLengthMismatch, len(raw), l.Size())
	}

	xb := l.CommitmentX.slice(raw)
	response := new(big.Int).SetBytes(l.Response.slice(raw))

	return &ProofPacket{
		Commitment: curve.Point{
			X: new(big.Int).SetBytes(xb),
			Y: new(big.Int).SetBytes(l.CommitmentY.slice(raw)),
		},
		CommitmentXHex:   fmt.Sprintf("%X", xb),
		Response:         response,
		ResponseOverflow: response.Cmp(curve.N()) >= 0,
		DeviceID:         l.DeviceID.slice(raw)[0],
		Tag:              strings.ToValidUTF8(string(l.Text.slice(raw)), ""),
		Raw:              bytes.Clone(raw),
	}, nil
}

// Pack assembles a binary packet. The tag is cut or zero-padded to the
// field size.
func (l ProofLayout) Pack(commitment curve.Point, response *big.Int, deviceID uint8, tag string) []byte {
	raw := make([]byte, l.Size())
	pb := commitment.Bytes()
	copy(l.CommitmentX.slice(raw), pb[:curve.CoordinateSize])
	copy(l.CommitmentY.slice(raw), pb[curve.CoordinateSize:])
	if response != nil {
		r := new(big.Int).Mod(response, new(big.Int).Lsh(big.NewInt(1), uint(8*l.Response.Size)))
		r.FillBytes(l.Response.slice(raw))
	}
	l.DeviceID.slice(raw)[0] = deviceID
	copy(l.Text.slice(raw), tag)
	return raw
}

// EncodeFrame wraps a binary packet as a proof frame followed by trailer.
func (l ProofLayout) EncodeFrame(raw []byte, trailer string) []byte {
	var b strings.Builder
	b.WriteString(l.Tag)
	fmt.Fprintf(&b, "%X", raw)
	b.WriteByte(l.Terminator)
	b.WriteString(trailer)
	return []byte(b.String())
}

// EncodeProofFrame wraps raw as a proof frame using the default layout.
func EncodeProofFrame(raw []byte, trailer string) []byte {
	return DefaultProofLayout().EncodeFrame(raw, trailer)
}
