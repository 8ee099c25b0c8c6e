package interactive

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/service"
)

// PrintReport writes a human-readable summary of report to w. verbose adds
// the transcript values of a Schnorr run.
func PrintReport(w io.Writer, report *service.Report, verbose bool) {
	fmt.Fprintf(w, "%s [%s] %s in %s\n",
		report.Outcome, report.Scheme, report.Address, report.Duration.Round(time.Millisecond))

	if report.Bridge != nil {
		fmt.Fprintf(w, "  Device:       %s\n", report.Bridge.Name)
	}
	if report.Err != nil {
		fmt.Fprintf(w, "  Error:        %v\n", report.Err)
	}

	if hs := report.Handshake; hs != nil {
		s := hs.Session
		fmt.Fprintf(w, "  Session:      %s\n", s.ID)
		fmt.Fprintf(w, "  Device ID:    %s\n", s.DeviceIDString())
		if len(hs.States) > 0 {
			names := make([]string, len(hs.States))
			for i, st := range hs.States {
				names[i] = st.String()
			}
			fmt.Fprintf(w, "  States:       %s\n", strings.Join(names, " > "))
		}
		if s.KeyMetadata != "" {
			fmt.Fprintf(w, "  Key timing:   %s\n", strings.TrimSpace(s.KeyMetadata))
		}
		if s.ProofTiming != "" {
			fmt.Fprintf(w, "  Proof timing: %s\n", s.ProofTiming)
		}
		if hs.Proof != nil {
			fmt.Fprintf(w, "  Tag:          %q\n", hs.Proof.Tag)
			if hs.Proof.ResponseOverflow {
				fmt.Fprintln(w, "  Response exceeds group order")
			}
		}
		if len(s.SessionKey) > 0 {
			fmt.Fprintf(w, "  Session key:  %s\n", strings.ToUpper(hex.EncodeToString(s.SessionKey)))
		}
		if verbose {
			fmt.Fprintf(w, "  G.x:          %s\n", s.GeneratorXHex)
			fmt.Fprintf(w, "  Q.x:          %s\n", s.ProverXHex)
			if hs.Proof != nil {
				fmt.Fprintf(w, "  R.x:          %s\n", hs.Proof.CommitmentXHex)
			}
			if s.HashHex != "" {
				fmt.Fprintf(w, "  H:            %s\n", s.HashHex)
			}
		}
		if hs.CloseErr != nil {
			fmt.Fprintf(w, "  Close:        %v\n", hs.CloseErr)
		}
	}

	if sy := report.Symmetric; sy != nil {
		fmt.Fprintf(w, "  Session:      %s\n", sy.SessionID)
		if v := sy.Verification; v != nil {
			fmt.Fprintf(w, "  Message:      %q\n", v.Message)
			fmt.Fprintf(w, "  Timing:       %s\n", strings.TrimSpace(v.Timing))
			if v.PacketTiming != "" {
				fmt.Fprintf(w, "  Packet:       %s\n", v.PacketTiming)
			}
			if verbose {
				fmt.Fprintf(w, "  Received:     %s\n", v.Received)
				fmt.Fprintf(w, "  Expected:     %s\n", v.Expected)
			}
		}
		if sy.CloseErr != nil {
			fmt.Fprintf(w, "  Close:        %v\n", sy.CloseErr)
		}
	}
}
