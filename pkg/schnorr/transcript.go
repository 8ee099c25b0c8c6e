package schnorr

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// TranscriptHash binds the generator, the prover identity and the commitment
// into the Fiat-Shamir challenge. The hex strings are hashed exactly as
// given, so both ends must agree on their textual form. It returns the digest
// as an unsigned integer and as uppercase hex.
func TranscriptHash(generatorXHex, proverXHex, commitmentXHex string) (*big.Int, string) {
	h := sha256.New()
	h.Write([]byte(generatorXHex))
	h.Write([]byte(proverXHex))
	h.Write([]byte(commitmentXHex))
	digest := h.Sum(nil)

	return new(big.Int).SetBytes(digest), fmt.Sprintf("%X", digest)
}
