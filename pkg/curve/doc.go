// Package curve implements point arithmetic on secp256k1 for the ZKBLE
// verifier.
//
// Points are carried in affine form as big-integer coordinates, which is how
// they arrive on the wire. Group operations are delegated to the Jacobian
// formulas of github.com/decred/dcrd/dcrec/secp256k1/v4.
//
// # Scalars
//
// ScalarMul multiplies by the full big-integer scalar using double-and-add.
// Scalars are NOT reduced modulo the group order before use: a challenge
// response or transcript hash larger than n is applied bit for bit. For
// points of order n the result is identical to the reduced computation.
//
// # Validation
//
// Nothing in this package rejects a point that is not on the curve. Callers
// that want that guarantee must call IsOnCurve themselves.
package curve
