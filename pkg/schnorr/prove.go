package schnorr

import (
	"errors"
	"math/big"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// ErrInvalidSecret is returned when a secret or nonce is missing or zero.
var ErrInvalidSecret = errors.New("invalid secret scalar")

// Proof is a prover-side proof of possession.
type Proof struct {
	// Commitment is R = k*G.
	Commitment curve.Point

	// Response is s = k + H*d mod n.
	Response *big.Int

	// Hash is the transcript hash H as an integer.
	Hash *big.Int

	// HashHex is H as uppercase hex.
	HashHex string
}

// Prove builds a proof for secret d using nonce k. proverXHex must be the
// text the prover publishes for its public X coordinate, since the verifier
// hashes it verbatim.
func Prove(d, k *big.Int, proverXHex string) (*Proof, error) {
	if d == nil || k == nil || d.Sign() == 0 || k.Sign() == 0 {
		return nil, ErrInvalidSecret
	}

	r := curve.ScalarBaseMul(k)
	hash, hashHex := TranscriptHash(curve.GeneratorXHex(), proverXHex, r.XHex())

	n := curve.N()
	s := new(big.Int).Mul(hash, d)
	s.Add(s, k)
	s.Mod(s, n)

	return &Proof{
		Commitment: r,
		Response:   s,
		Hash:       hash,
		HashHex:    hashHex,
	}, nil
}
