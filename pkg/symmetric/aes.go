package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zkble-protocol/zkble-go/pkg/handshake"
)

// AESLayout places the fields of an AES frame.
type AESLayout struct {
	TimingSize   int
	CipherOffset int
	CipherSize   int // hex characters
}

// DefaultAESLayout is the reference firmware layout.
var DefaultAESLayout = AESLayout{TimingSize: 5, CipherOffset: 10, CipherSize: 32}

func (l AESLayout) cipherEnd() int { return l.CipherOffset + l.CipherSize }

// AESVerifier checks AES-CBC frames.
type AESVerifier struct {
	block  cipher.Block
	layout AESLayout
}

// NewAESVerifier creates a verifier for key.
func NewAESVerifier(key []byte, layout AESLayout) (*AESVerifier, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if layout.CipherSize <= 0 || layout.CipherSize%(2*aes.BlockSize) != 0 ||
		layout.TimingSize > layout.CipherOffset {
		return nil, fmt.Errorf("invalid AES layout %+v", layout)
	}
	return &AESVerifier{block: block, layout: layout}, nil
}

// Scheme implements Verifier.
func (v *AESVerifier) Scheme() string { return "aes" }

// Verify implements Verifier.
func (v *AESVerifier) Verify(frame []byte) (*Verification, error) {
	body, trailer, err := splitFrame(frame)
	if err != nil {
		return nil, err
	}
	if len(body) < v.layout.cipherEnd() {
		return nil, fmt.Errorf("%w: %d < %d", ErrFrameTooShort, len(body), v.layout.cipherEnd())
	}

	cipherHex := body[v.layout.CipherOffset:v.layout.cipherEnd()]
	ct, err := hex.DecodeString(cipherHex)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w: %v", ErrInvalidHex, err)
	}
	msg, err := decodeText(strings.TrimSpace(body[v.layout.cipherEnd():]))
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}

	pt := make([]byte, len(ct))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(pt, ct)
	expected := trimRightSpace(dropInvalidUTF8(pt))

	res := &Verification{
		Outcome:      handshake.OutcomeRejected,
		Timing:       body[:v.layout.TimingSize],
		PacketTiming: trailer,
		Message:      msg,
		Expected:     expected,
		Received:     cipherHex,
	}
	if msg == expected {
		res.Outcome = handshake.OutcomeAuthenticated
	}
	return res, nil
}

// EncodeAESFrame builds a frame the way a prover does: message is padded
// with spaces to the ciphertext size and encrypted with a zero IV. timing
// is fitted to the layout's timing field.
func EncodeAESFrame(key []byte, layout AESLayout, message, timing, packetTiming string) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	size := layout.CipherSize / 2
	if len(message) > size {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLong, len(message), size)
	}

	pt := []byte(message + strings.Repeat(" ", size-len(message)))
	ct := make([]byte, size)
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(ct, pt)

	var sb strings.Builder
	sb.WriteString(fit(timing, layout.TimingSize))
	sb.WriteString(strings.Repeat(" ", layout.CipherOffset-layout.TimingSize))
	sb.WriteString(strings.ToUpper(hex.EncodeToString(ct)))
	sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte(message))))
	sb.WriteByte(Terminator)
	sb.WriteString(packetTiming)
	sb.WriteString("\r\n")
	return []byte(sb.String()), nil
}

// fit pads or cuts s to n characters.
func fit(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
