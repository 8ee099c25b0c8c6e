package packet

import (
	"fmt"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// Validate checks that the public key lies on the curve.
func (p *PublicKeyPacket) Validate() error {
	if !curve.IsOnCurve(p.Point) {
		return fmt.Errorf("%w: public key %s", ErrPointNotOnCurve, p.Point)
	}
	return nil
}

// Validate checks that the commitment lies on the curve.
func (p *ProofPacket) Validate() error {
	if !curve.IsOnCurve(p.Commitment) {
		return fmt.Errorf("%w: commitment %s", ErrPointNotOnCurve, p.Commitment)
	}
	return nil
}
