package zkble_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/prover"
	"github.com/zkble-protocol/zkble-go/pkg/service"
	"github.com/zkble-protocol/zkble-go/pkg/symmetric"
)

// startServer runs srv on a loopback port until the test ends.
func startServer(t *testing.T, srv *prover.Server) string {
	t.Helper()
	addr, err := srv.Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return addr.String()
}

func verifierConfig(scheme service.Scheme, logger log.Logger) service.Config {
	cfg := service.DefaultConfig()
	cfg.Scheme = scheme
	cfg.Handshake.AckTimeout = 300 * time.Millisecond
	cfg.Handshake.KeyAckTimeout = 300 * time.Millisecond
	cfg.Handshake.PublicKeyTimeout = 3 * time.Second
	cfg.Handshake.ProofTimeout = 3 * time.Second
	cfg.Handshake.DeriveSessionKey = true
	cfg.Handshake.ValidatePoints = true
	cfg.Listen.FrameTimeout = 3 * time.Second
	cfg.DialTimeout = 2 * time.Second
	cfg.ProtocolLogger = logger
	return cfg
}

func TestSchnorrOverTCP(t *testing.T) {
	key, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	pcfg := prover.DefaultConfig()
	pcfg.ChunkDelay = time.Millisecond
	dev := prover.NewDevice(key, pcfg)
	addr := startServer(t, prover.NewServer(dev, nil))

	path := filepath.Join(t.TempDir(), "verifier.zlog")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)

	v, err := service.NewVerifier(verifierConfig(service.SchemeSchnorr, fl))
	require.NoError(t, err)

	report := v.Authenticate(context.Background(), addr)
	require.NoError(t, report.Err)
	require.True(t, report.Authenticated())

	hs := report.Handshake
	assert.Equal(t, handshake.StateClosed, hs.Session.State)
	assert.Equal(t, key.Public().XHex(), hs.Session.ProverXHex)
	assert.Equal(t, dev.SessionKey(), hs.Session.SessionKey)
	assert.Equal(t, "Hello, verifier!", hs.Proof.Tag)
	require.NoError(t, fl.Close())

	// The capture holds the whole exchange and ends in an authenticated
	// verification.
	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var commands []string
	var outcome string
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, hs.Session.ID, ev.SessionID)
		if ev.Command != nil {
			commands = append(commands, ev.Command.Code)
		}
		if ev.Verification != nil {
			outcome = ev.Verification.Outcome
		}
	}
	assert.Equal(t, []string{"R", "I", "K", "D"}, commands)
	assert.Equal(t, "ACCEPTED", outcome)
}

func TestSchnorrFaultsOverTCP(t *testing.T) {
	tests := []struct {
		name    string
		faults  prover.Faults
		outcome handshake.Outcome
		check   func(t *testing.T, err error)
	}{
		{
			name:    "tampered response",
			faults:  prover.Faults{TamperResponse: true},
			outcome: handshake.OutcomeRejected,
		},
		{
			name:    "silent acks",
			faults:  prover.Faults{SilentAcks: true},
			outcome: handshake.OutcomeAuthenticated,
		},
		{
			name:    "truncated proof",
			faults:  prover.Faults{TruncateProof: 2},
			outcome: handshake.OutcomeFailed,
			check: func(t *testing.T, err error) {
				var mfErr *handshake.MalformedFrameError
				assert.ErrorAs(t, err, &mfErr)
			},
		},
		{
			name:    "silent proof",
			faults:  prover.Faults{SilentProof: true},
			outcome: handshake.OutcomeFailed,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, handshake.ErrFrameTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := curve.GenerateKeyPair()
			require.NoError(t, err)
			pcfg := prover.DefaultConfig()
			pcfg.Faults = tt.faults
			addr := startServer(t, prover.NewServer(prover.NewDevice(key, pcfg), nil))

			cfg := verifierConfig(service.SchemeSchnorr, nil)
			cfg.Handshake.ProofTimeout = 500 * time.Millisecond
			v, err := service.NewVerifier(cfg)
			require.NoError(t, err)

			report := v.Authenticate(context.Background(), addr)
			assert.Equal(t, tt.outcome, report.Outcome)
			if tt.check != nil {
				tt.check(t, report.Err)
			}
		})
	}
}

func TestSymmetricOverTCP(t *testing.T) {
	aesKey, err := symmetric.ParseKey(symmetric.DefaultAESKeyHex)
	require.NoError(t, err)
	hmacKey, err := symmetric.ParseKey(symmetric.DefaultHMACKeyHex)
	require.NoError(t, err)

	aesFrame, err := symmetric.EncodeAESFrame(aesKey, symmetric.DefaultAESLayout, "Hello", "0.004", "0.009")
	require.NoError(t, err)

	tests := []struct {
		name   string
		scheme service.Scheme
		frame  []byte
	}{
		{"aes", service.SchemeAES, aesFrame},
		{"hmac", service.SchemeHMAC, symmetric.EncodeHMACFrame(hmacKey, "Hello, verifier!", "0002", "0.011")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := startServer(t, prover.NewPushServer(tt.frame, prover.DefaultConfig(), nil))

			v, err := service.NewVerifier(verifierConfig(tt.scheme, nil))
			require.NoError(t, err)

			report := v.Authenticate(context.Background(), addr)
			require.NoError(t, report.Err)
			assert.True(t, report.Authenticated())
			assert.NotEmpty(t, report.Symmetric.Verification.PacketTiming)
		})
	}
}
