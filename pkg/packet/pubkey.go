package packet

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// Public key frame constants.
const (
	// DefaultMetadataSize is the length of the leading key-generation
	// timing field.
	DefaultMetadataSize = 35

	// DefaultPayloadOffset is where the hex key starts, after the metadata
	// and a two-character separator.
	DefaultPayloadOffset = 37

	// CoordinateHexSize is the number of hex characters per coordinate.
	CoordinateHexSize = 2 * curve.CoordinateSize

	// PublicKeyHexSize is the number of hex characters in X||Y.
	PublicKeyHexSize = 2 * CoordinateHexSize
)

// PublicKeyLayout describes where the key sits inside a public key frame.
type PublicKeyLayout struct {
	// MetadataSize is the length of the leading metadata field.
	MetadataSize int

	// PayloadOffset is the offset of the first hex character.
	PayloadOffset int

	// Terminator ends the payload. The last occurrence is used.
	Terminator byte
}

// DefaultPublicKeyLayout returns the layout sent by the reference prover.
func DefaultPublicKeyLayout() PublicKeyLayout {
	return PublicKeyLayout{
		MetadataSize:  DefaultMetadataSize,
		PayloadOffset: DefaultPayloadOffset,
		Terminator:    ';',
	}
}

// PublicKeyPacket is a decoded prover public key.
type PublicKeyPacket struct {
	// XHex and YHex are the coordinates exactly as received. XHex feeds
	// the transcript hash verbatim.
	XHex string
	YHex string

	// Point is the decoded public point Qd.
	Point curve.Point

	// Metadata is the leading timing field with surrounding spaces removed.
	Metadata string
}

// DecodePublicKey decodes a public key frame using the default layout.
func DecodePublicKey(frame []byte) (*PublicKeyPacket, error) {
	return DefaultPublicKeyLayout().Decode(frame)
}

// Decode decodes a public key frame. CR and LF bytes are removed first.
func (l PublicKeyLayout) Decode(frame []byte) (*PublicKeyPacket, error) {
	clean := bytes.ReplaceAll(frame, []byte{'\r'}, nil)
	clean = bytes.ReplaceAll(clean, []byte{'\n'}, nil)
	clean = bytes.TrimSpace(clean)

	end := bytes.LastIndexByte(clean, l.Terminator)
	if end < 0 {
		return nil, ErrMissingTerminator
	}
	if end < l.PayloadOffset {
		return nil, fmt.Errorf("%w: terminator at %d before payload offset %d", ErrLengthMismatch, end, l.PayloadOffset)
	}

	metaEnd := min(l.MetadataSize, len(clean))
	payload := strings.TrimSpace(string(clean[l.PayloadOffset:end]))
	if len(payload) != PublicKeyHexSize {
		return nil, fmt.Errorf("%w: %d hex characters, want %d", ErrLengthMismatch, len(payload), PublicKeyHexSize)
	}

	xHex, yHex := payload[:CoordinateHexSize], payload[CoordinateHexSize:]
	x, err := parseCoordinate(xHex)
	if err != nil {
		return nil, fmt.Errorf("X coordinate: %w", err)
	}
	y, err := parseCoordinate(yHex)
	if err != nil {
		return nil, fmt.Errorf("Y coordinate: %w", err)
	}

	return &PublicKeyPacket{
		XHex:     xHex,
		YHex:     yHex,
		Point:    curve.Point{X: x, Y: y},
		Metadata: strings.TrimSpace(string(clean[:metaEnd])),
	}, nil
}

// EncodePublicKeyFrame renders a public key frame as a prover sends it.
// metadata is padded or cut to the layout's metadata size and trailer is
// appended after the terminator.
func (l PublicKeyLayout) EncodePublicKeyFrame(metadata string, p curve.Point, trailer string) []byte {
	var b strings.Builder
	b.WriteString(fitField(metadata, l.MetadataSize))
	b.WriteString(strings.Repeat(" ", max(l.PayloadOffset-l.MetadataSize, 0)))
	fmt.Fprintf(&b, "%X", p.Bytes())
	b.WriteByte(l.Terminator)
	b.WriteString(trailer)
	return []byte(b.String())
}

// EncodePublicKeyFrame renders a public key frame using the default layout.
func EncodePublicKeyFrame(metadata string, p curve.Point, trailer string) []byte {
	return DefaultPublicKeyLayout().EncodePublicKeyFrame(metadata, p, trailer)
}

func parseCoordinate(s string) (*big.Int, error) {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return nil, fmt.Errorf("%w: character %q at offset %d", ErrInvalidHex, s[i], i)
		}
	}
	v, _ := new(big.Int).SetString(s, 16)
	return v, nil
}

// fitField pads s to size. An empty field is zero-filled so the frame
// never starts with whitespace.
func fitField(s string, size int) string {
	if s == "" {
		return strings.Repeat("0", size)
	}
	if len(s) >= size {
		return s[:size]
	}
	return s + strings.Repeat(" ", size-len(s))
}
