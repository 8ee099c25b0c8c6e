package packet

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// cleanHex removes transport noise (ASCII whitespace and control characters)
// and rejects any other non-hex character.
func cleanHex(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isHexDigit(c):
			b.WriteByte(c)
		case c <= ' ' || c == 0x7f:
			// dropped
		default:
			return "", fmt.Errorf("%w: character %q at offset %d", ErrInvalidHex, c, i)
		}
	}
	return b.String(), nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// decodeHex decodes cleaned hex text into exactly want bytes.
func decodeHex(s string, want int) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrLengthMismatch, len(raw), want)
	}
	return raw, nil
}
