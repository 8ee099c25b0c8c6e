package curve

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyPair is a secp256k1 key pair. The private scalar is never serialized;
// only the public point and derived secrets go on the wire.
type KeyPair struct {
	private *big.Int
	public  Point
}

// GenerateKeyPair creates a fresh random key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	scalar := priv.Key.Bytes()
	priv.Zero()

	d := new(big.Int).SetBytes(scalar[:])
	return &KeyPair{private: d, public: ScalarBaseMul(d)}, nil
}

// NewKeyPair builds a key pair from a known private scalar.
func NewKeyPair(d *big.Int) (*KeyPair, error) {
	if d == nil || d.Sign() <= 0 || d.Cmp(params.N) >= 0 {
		return nil, fmt.Errorf("private scalar out of range")
	}
	k := new(big.Int).Set(d)
	return &KeyPair{private: k, public: ScalarBaseMul(k)}, nil
}

// Public returns the public point.
func (kp *KeyPair) Public() Point {
	return kp.public.clone()
}

// Private returns a copy of the private scalar. Only provers and tests
// need it; the verifier never serializes its ephemeral scalar.
func (kp *KeyPair) Private() *big.Int {
	return new(big.Int).Set(kp.private)
}

// PublicBytes returns the raw 64-byte X||Y public key, the form sent after
// the key-exchange command byte.
func (kp *KeyPair) PublicBytes() []byte {
	return kp.public.Bytes()
}

// SharedX returns the X coordinate of private*peer as 32 bytes. The peer must
// be a finite point on the curve.
func (kp *KeyPair) SharedX(peer Point) ([]byte, error) {
	if peer.IsInfinity() {
		return nil, ErrPointAtInfinity
	}
	if !IsOnCurve(peer) {
		return nil, ErrNotOnCurve
	}
	shared := ScalarMul(kp.private, peer)
	if shared.IsInfinity() {
		return nil, ErrPointAtInfinity
	}
	return shared.Bytes()[:CoordinateSize], nil
}

// RandomScalar returns a uniformly random scalar in [1, n-1].
func RandomScalar(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	max := new(big.Int).Sub(params.N, big.NewInt(1))
	k, err := rand.Int(r, max)
	if err != nil {
		return nil, fmt.Errorf("failed to generate scalar: %w", err)
	}
	return k.Add(k, big.NewInt(1)), nil
}
