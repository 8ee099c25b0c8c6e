package symmetric

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zkble-protocol/zkble-go/pkg/handshake"
)

// Default pre-shared keys of the reference firmware.
const (
	DefaultAESKeyHex  = "02000500AC26BF9605F82F63C9D0EEBCA36DD7971F7F1D56E8E1B7D4EA4F8DB9"
	DefaultHMACKeyHex = "000500AC26BF9605F82F63C9D0EEBCA36DD7971F7F1D56E8E1B7D4EA4F8DB9C3"
)

// Terminator ends the authenticated part of a frame.
const Terminator = ';'

// Frame errors.
var (
	ErrFrameTooShort     = errors.New("frame too short")
	ErrMissingTerminator = errors.New("missing terminator")
	ErrMissingTag        = errors.New("missing PA tag")
	ErrInvalidHex        = errors.New("invalid hex")
	ErrInvalidKey        = errors.New("invalid key")
	ErrMessageTooLong    = errors.New("message too long")
)

// Verifier checks one pushed frame.
type Verifier interface {
	// Scheme names the variant ("aes" or "hmac").
	Scheme() string

	// Verify decodes frame and checks it. A frame that cannot be decoded
	// yields an error; a decoded frame yields Authenticated or Rejected.
	Verify(frame []byte) (*Verification, error)
}

// Verification is the decoded content of a checked frame.
type Verification struct {
	Outcome handshake.Outcome

	// Timing is the leading timing field.
	Timing string

	// PacketTiming is the text after the terminator, trimmed.
	PacketTiming string

	// Message is the plaintext the prover sent alongside the tag.
	Message string

	// Expected is what the verifier recomputed: the decrypted block for
	// AES, the uppercase hex mac for HMAC.
	Expected string

	// Received is the ciphertext or mac as carried on the wire.
	Received string
}

// ParseKey decodes a hex key. AES keys must be 16, 24 or 32 bytes.
func ParseKey(keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	return key, nil
}

// splitFrame returns the text before the first terminator and the trimmed
// text after it.
func splitFrame(frame []byte) (string, string, error) {
	i := bytes.IndexByte(frame, Terminator)
	if i < 0 {
		return "", "", ErrMissingTerminator
	}
	body := string(frame[:i])
	trailer := string(frame[i+1:])
	if j := strings.IndexByte(trailer, Terminator); j >= 0 {
		trailer = trailer[:j]
	}
	return body, strings.TrimSpace(trailer), nil
}

// decodeText hex-decodes s and returns it as text with invalid UTF-8
// dropped.
func decodeText(s string) (string, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return dropInvalidUTF8(raw), nil
}

func dropInvalidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}

func trimRightSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
