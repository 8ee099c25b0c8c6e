package schnorr

import (
	"math/big"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// Outcome is the result of a verification check.
type Outcome uint8

const (
	// Rejected indicates the check equation did not hold.
	Rejected Outcome = iota

	// Accepted indicates the check equation held.
	Accepted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "ACCEPTED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Reconstruct computes response*G - hash*Qd, the commitment an honest prover
// must have sent.
func Reconstruct(response, hash *big.Int, qd curve.Point) curve.Point {
	piG := curve.ScalarBaseMul(response)
	sigmaQd := curve.ScalarMul(hash, qd)
	return curve.Add(piG, curve.Negate(sigmaQd))
}

// Verify checks the Schnorr identity for a decoded proof. A mismatch is a
// normal negative result, not an error.
func Verify(response, hash *big.Int, qd, commitment curve.Point) Outcome {
	p := Reconstruct(response, hash, qd)
	if p.IsInfinity() || commitment.IsInfinity() {
		return Rejected
	}
	if p.X.Cmp(commitment.X) == 0 && p.Y.Cmp(commitment.Y) == 0 {
		return Accepted
	}
	return Rejected
}
