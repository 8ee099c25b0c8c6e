package curve

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Curve constants.
const (
	// CoordinateSize is the size of one encoded coordinate in bytes.
	CoordinateSize = 32

	// PointSize is the size of a raw X||Y point encoding in bytes.
	PointSize = 2 * CoordinateSize
)

// Curve errors.
var (
	ErrInvalidPointSize = errors.New("invalid point encoding size")
	ErrPointAtInfinity  = errors.New("point at infinity")
	ErrNotOnCurve       = errors.New("point is not on the curve")
)

var (
	params = secp256k1.S256().Params()
	curveB = big.NewInt(7)
)

// P returns the field modulus.
func P() *big.Int { return new(big.Int).Set(params.P) }

// N returns the group order.
func N() *big.Int { return new(big.Int).Set(params.N) }

// Point is an affine secp256k1 point. The zero value (nil coordinates) is the
// point at infinity.
type Point struct {
	X, Y *big.Int
}

// Infinity returns the point at infinity.
func Infinity() Point {
	return Point{}
}

// Generator returns the base point G.
func Generator() Point {
	return Point{X: new(big.Int).Set(params.Gx), Y: new(big.Int).Set(params.Gy)}
}

// GeneratorXHex returns the X coordinate of G as uppercase hex without
// leading zeros. This is the form both ends feed into the transcript hash.
func GeneratorXHex() string {
	return fmt.Sprintf("%X", params.Gx)
}

// NewPoint returns a point from its coordinates. The values are copied.
func NewPoint(x, y *big.Int) Point {
	return Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}
}

// PointFromBytes decodes a raw 64-byte X||Y encoding.
func PointFromBytes(b []byte) (Point, error) {
	if len(b) != PointSize {
		return Point{}, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidPointSize, len(b), PointSize)
	}
	return Point{
		X: new(big.Int).SetBytes(b[:CoordinateSize]),
		Y: new(big.Int).SetBytes(b[CoordinateSize:]),
	}, nil
}

// IsInfinity reports whether p is the point at infinity.
func (p Point) IsInfinity() bool {
	return p.X == nil || p.Y == nil
}

// Equal reports whether p and q have identical coordinates.
func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() && q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Bytes returns the raw 64-byte X||Y encoding. The point at infinity encodes
// as all zeros.
func (p Point) Bytes() []byte {
	out := make([]byte, PointSize)
	if p.IsInfinity() {
		return out
	}
	fieldBytes(p.X).FillBytes(out[:CoordinateSize])
	fieldBytes(p.Y).FillBytes(out[CoordinateSize:])
	return out
}

// XHex returns the X coordinate as 64 uppercase hex characters.
func (p Point) XHex() string {
	if p.IsInfinity() {
		return ""
	}
	return fmt.Sprintf("%X", p.Bytes()[:CoordinateSize])
}

// String returns a short human-readable representation.
func (p Point) String() string {
	if p.IsInfinity() {
		return "(infinity)"
	}
	return fmt.Sprintf("(%X, %X)", p.X, p.Y)
}

// IsOnCurve reports whether p satisfies y^2 = x^3 + 7 (mod p) with both
// coordinates in [0, p).
func IsOnCurve(p Point) bool {
	if p.IsInfinity() {
		return false
	}
	if p.X.Sign() < 0 || p.Y.Sign() < 0 || p.X.Cmp(params.P) >= 0 || p.Y.Cmp(params.P) >= 0 {
		return false
	}

	lhs := new(big.Int).Mul(p.Y, p.Y)
	lhs.Mod(lhs, params.P)

	rhs := new(big.Int).Mul(p.X, p.X)
	rhs.Mul(rhs, p.X)
	rhs.Add(rhs, curveB)
	rhs.Mod(rhs, params.P)

	return lhs.Cmp(rhs) == 0
}

// Negate returns (Px, -Py mod p).
func Negate(p Point) Point {
	if p.IsInfinity() {
		return Infinity()
	}
	y := new(big.Int).Neg(p.Y)
	y.Mod(y, params.P)
	return Point{X: new(big.Int).Set(p.X), Y: y}
}

// Add returns p + q.
func Add(p, q Point) Point {
	switch {
	case p.IsInfinity():
		return q.clone()
	case q.IsInfinity():
		return p.clone()
	}

	var jp, jq, sum secp256k1.JacobianPoint
	toJacobian(p, &jp)
	toJacobian(q, &jq)
	secp256k1.AddNonConst(&jp, &jq, &sum)
	return fromJacobian(&sum)
}

// ScalarMul returns k*p. k is used as given, without reduction modulo n.
func ScalarMul(k *big.Int, p Point) Point {
	if k == nil || k.Sign() == 0 || p.IsInfinity() {
		return Infinity()
	}
	if k.Sign() < 0 {
		return Negate(ScalarMul(new(big.Int).Neg(k), p))
	}

	var base, acc, tmp secp256k1.JacobianPoint
	toJacobian(p, &base)

	for i := k.BitLen() - 1; i >= 0; i-- {
		secp256k1.DoubleNonConst(&acc, &tmp)
		acc.Set(&tmp)
		if k.Bit(i) == 1 {
			secp256k1.AddNonConst(&acc, &base, &tmp)
			acc.Set(&tmp)
		}
	}
	return fromJacobian(&acc)
}

// ScalarBaseMul returns k*G.
func ScalarBaseMul(k *big.Int) Point {
	return ScalarMul(k, Generator())
}

func (p Point) clone() Point {
	if p.IsInfinity() {
		return Infinity()
	}
	return NewPoint(p.X, p.Y)
}

// fieldBytes returns v unchanged when it fits a coordinate and v mod p
// otherwise.
func fieldBytes(v *big.Int) *big.Int {
	if v.Sign() >= 0 && v.BitLen() <= 8*CoordinateSize {
		return v
	}
	return new(big.Int).Mod(v, params.P)
}

// toJacobian loads an affine point with Z = 1. Coordinates wider than the
// field are reduced by the field element setter.
func toJacobian(p Point, out *secp256k1.JacobianPoint) {
	var buf [CoordinateSize]byte
	fieldBytes(p.X).FillBytes(buf[:])
	out.X.SetBytes(&buf)
	fieldBytes(p.Y).FillBytes(buf[:])
	out.Y.SetBytes(&buf)
	out.Z.SetInt(1)
}

func fromJacobian(j *secp256k1.JacobianPoint) Point {
	var pt secp256k1.JacobianPoint
	pt.Set(j)
	pt.X.Normalize()
	pt.Y.Normalize()
	pt.Z.Normalize()
	if pt.Z.IsZero() || (pt.X.IsZero() && pt.Y.IsZero()) {
		return Infinity()
	}

	pt.ToAffine()
	x := pt.X.Bytes()
	y := pt.Y.Bytes()
	return Point{X: new(big.Int).SetBytes(x[:]), Y: new(big.Int).SetBytes(y[:])}
}
