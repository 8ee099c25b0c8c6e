package interactive

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zkble-protocol/zkble-go/pkg/discovery"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
	"github.com/zkble-protocol/zkble-go/pkg/service"
	"github.com/zkble-protocol/zkble-go/pkg/symmetric"
)

func TestPrintReportSchnorr(t *testing.T) {
	report := &service.Report{
		Scheme:   service.SchemeSchnorr,
		Address:  "10.0.0.5:7000",
		Outcome:  handshake.OutcomeAuthenticated,
		Bridge:   &discovery.Bridge{Name: "ZKBLE-Prover"},
		Duration: 1500 * time.Millisecond,
		Handshake: &handshake.Result{
			Outcome: handshake.OutcomeAuthenticated,
			Session: handshake.Session{
				ID:          "s-1",
				DeviceID:    10,
				ProofTiming: "0.0123",
				HashHex:     "ABCD",
				SessionKey:  []byte{0xde, 0xad},
			},
			Proof:  &packet.ProofPacket{Tag: "Hello, verifier!", CommitmentXHex: "1234"},
			States: []handshake.State{handshake.StateConnected, handshake.StateVerified},
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report, false)
	out := buf.String()
	assert.Contains(t, out, "AUTHENTICATED [schnorr] 10.0.0.5:7000 in 1.5s")
	assert.Contains(t, out, "ZKBLE-Prover")
	assert.Contains(t, out, "CONNECTED > VERIFIED")
	assert.Contains(t, out, `"Hello, verifier!"`)
	assert.Contains(t, out, "DEAD")
	assert.NotContains(t, out, "R.x:")

	buf.Reset()
	PrintReport(&buf, report, true)
	assert.Contains(t, buf.String(), "R.x:          1234")
	assert.Contains(t, buf.String(), "H:            ABCD")
}

func TestPrintReportSymmetricFailure(t *testing.T) {
	report := &service.Report{
		Scheme:  service.SchemeHMAC,
		Address: "127.0.0.1:7000",
		Outcome: handshake.OutcomeFailed,
		Err:     errors.New("no frame"),
		Symmetric: &symmetric.Result{
			SessionID: "s-2",
			CloseErr:  errors.New("closed twice"),
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report, true)
	out := buf.String()
	assert.Contains(t, out, "FAILED [hmac]")
	assert.Contains(t, out, "Error:        no frame")
	assert.Contains(t, out, "Close:        closed twice")
}
