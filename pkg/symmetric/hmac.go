package symmetric

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zkble-protocol/zkble-go/pkg/handshake"
)

// HMAC frame layout.
const (
	HMACTimingSize = 4
	HMACTag        = "PA"
	HMACHexSize    = 2 * sha256.Size
)

// HMACVerifier checks HMAC-SHA256 frames.
type HMACVerifier struct {
	key []byte
}

// NewHMACVerifier creates a verifier for key.
func NewHMACVerifier(key []byte) (*HMACVerifier, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	return &HMACVerifier{key: append([]byte(nil), key...)}, nil
}

// Scheme implements Verifier.
func (v *HMACVerifier) Scheme() string { return "hmac" }

// Verify implements Verifier.
func (v *HMACVerifier) Verify(frame []byte) (*Verification, error) {
	body, trailer, err := splitFrame(frame)
	if err != nil {
		return nil, err
	}
	if len(body) < HMACTimingSize+len(HMACTag) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(body))
	}
	rest := body[HMACTimingSize:]
	if !strings.HasPrefix(rest, HMACTag) {
		return nil, ErrMissingTag
	}
	rest = rest[len(HMACTag):]
	if len(rest) < HMACHexSize {
		return nil, fmt.Errorf("%w: mac %d < %d", ErrFrameTooShort, len(rest), HMACHexSize)
	}

	macHex := rest[:HMACHexSize]
	received, err := hex.DecodeString(macHex)
	if err != nil {
		return nil, fmt.Errorf("mac: %w: %v", ErrInvalidHex, err)
	}
	msg, err := decodeText(strings.TrimRight(rest[HMACHexSize:], "\r\n"))
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	msg = strings.TrimSpace(msg)

	mac := Sum(v.key, msg)
	res := &Verification{
		Outcome:      handshake.OutcomeRejected,
		Timing:       body[:HMACTimingSize],
		PacketTiming: trailer,
		Message:      msg,
		Expected:     strings.ToUpper(hex.EncodeToString(mac)),
		Received:     macHex,
	}
	if hmac.Equal(mac, received) {
		res.Outcome = handshake.OutcomeAuthenticated
	}
	return res, nil
}

// Sum returns HMAC-SHA256(key, message).
func Sum(key []byte, message string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(message))
	return h.Sum(nil)
}

// EncodeHMACFrame builds a frame the way a prover does.
func EncodeHMACFrame(key []byte, message, timing, packetTiming string) []byte {
	var sb strings.Builder
	sb.WriteString(fit(timing, HMACTimingSize))
	sb.WriteString(HMACTag)
	sb.WriteString(strings.ToUpper(hex.EncodeToString(Sum(key, message))))
	sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte(message))))
	sb.WriteByte(Terminator)
	sb.WriteString(packetTiming)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
