package handshake

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
	"github.com/zkble-protocol/zkble-go/pkg/frame"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
	"github.com/zkble-protocol/zkble-go/pkg/schnorr"
)

func TestEncodeCommands(t *testing.T) {
	assert.Equal(t, []byte("R"), EncodeRegister())
	assert.Equal(t, []byte("I10"), EncodeInit(10))
	assert.Equal(t, []byte("I0"), EncodeInit(0))
	assert.Equal(t, []byte("I255"), EncodeInit(255))
	assert.Equal(t, []byte("D"), EncodeRequestDigest())

	kp, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	cmd := EncodeKeyExchange(kp.PublicBytes())
	require.Len(t, cmd, 65)
	assert.Equal(t, CmdKeyExchange, cmd[0])
	assert.Equal(t, kp.PublicBytes(), cmd[1:])
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint8(10), cfg.DeviceID)
	assert.Equal(t, byte(';'), cfg.Terminator)
	assert.False(t, cfg.ValidatePoints)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero ack timeout", func(c *Config) { c.AckTimeout = 0 }, ErrInvalidTimeout},
		{"negative proof timeout", func(c *Config) { c.ProofTimeout = -time.Second }, ErrInvalidTimeout},
		{"negative settle", func(c *Config) { c.AckSettle = -1 }, ErrInvalidTimeout},
		{"negative trailer timeout", func(c *Config) { c.TrailerTimeout = -1 }, ErrInvalidTimeout},
		{"hex terminator", func(c *Config) {
			c.Terminator = 'A'
			c.PublicKeyLayout.Terminator = 'A'
			c.ProofLayout.Terminator = 'A'
		}, ErrInvalidTerminator},
		{"layout terminator mismatch", func(c *Config) { c.ProofLayout.Terminator = '#' }, ErrInvalidLayout},
		{"payload before metadata", func(c *Config) { c.PublicKeyLayout.PayloadOffset = 10 }, ErrInvalidLayout},
		{"empty proof tag", func(c *Config) { c.ProofLayout.Tag = "" }, ErrInvalidLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)

			_, err := NewMachine(nil, cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateConnected, "CONNECTED"},
		{StateRegistered, "REGISTERED"},
		{StateAwaitingPublicKey, "AWAITING_PUBLIC_KEY"},
		{StateKeyExchanged, "KEY_EXCHANGED"},
		{StateAwaitingProof, "AWAITING_PROOF"},
		{StateVerified, "VERIFIED"},
		{StateRejected, "REJECTED"},
		{StateFailed, "FAILED"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}

	assert.True(t, StateClosed.Terminal())
	assert.True(t, StateRejected.Terminal())
	assert.False(t, StateAwaitingProof.Terminal())

	assert.Equal(t, "AUTHENTICATED", OutcomeAuthenticated.String())
	assert.Equal(t, "REJECTED", OutcomeRejected.String())
	assert.Equal(t, "FAILED", OutcomeFailed.String())
	assert.Equal(t, "UNKNOWN", Outcome(9).String())
}

func TestErrorTypes(t *testing.T) {
	chErr := &ChannelError{Op: "send", Command: "K", Err: errors.New("link lost")}
	assert.Equal(t, "channel send K: link lost", chErr.Error())
	assert.Equal(t, "channel connect: refused", (&ChannelError{Op: "connect", Err: errors.New("refused")}).Error())

	toErr := &FrameTimeoutError{State: StateAwaitingProof, Timeout: time.Second, Partial: []byte("PA00")}
	assert.ErrorIs(t, toErr, ErrFrameTimeout)
	assert.Contains(t, toErr.Error(), "AWAITING_PROOF")
	assert.Contains(t, toErr.Error(), "4 bytes")

	mfErr := &MalformedFrameError{State: StateAwaitingProof, Err: fmt.Errorf("%w: 112 bytes", packet.ErrLengthMismatch)}
	assert.ErrorIs(t, mfErr, packet.ErrLengthMismatch)

	assert.Equal(t, "channel", errorKind(fmt.Errorf("wrapped: %w", chErr)))
	assert.Equal(t, "timeout", errorKind(toErr))
	assert.Equal(t, "malformed", errorKind(mfErr))
	assert.Equal(t, "cancelled", errorKind(context.Canceled))
	assert.Equal(t, "internal", errorKind(errors.New("other")))
}

func TestNewSession(t *testing.T) {
	a := NewSession("10.0.0.1:7000", 10)
	b := NewSession("10.0.0.1:7000", 10)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, StateIdle, a.State)
	assert.Equal(t, curve.GeneratorXHex(), a.GeneratorXHex)
	assert.Equal(t, "10", a.DeviceIDString())
}

func TestDeriveSessionKeyMatchesBothEnds(t *testing.T) {
	verifier, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	prover, err := curve.GenerateKeyPair()
	require.NoError(t, err)
	salt := []byte("commitment-x")

	vk, err := deriveSessionKey(verifier, prover.Public(), salt)
	require.NoError(t, err)

	shared, err := prover.SharedX(verifier.Public())
	require.NoError(t, err)
	pk, err := DeriveSessionKey(shared, salt)
	require.NoError(t, err)

	assert.Len(t, vk, SessionKeySize)
	assert.Equal(t, vk, pk)

	_, err = deriveSessionKey(verifier, curve.Point{X: curve.P(), Y: curve.P()}, salt)
	assert.ErrorIs(t, err, curve.ErrNotOnCurve)
}

func TestAwaitFrameClassifiesErrors(t *testing.T) {
	m, err := NewMachine(nil, DefaultConfig())
	require.NoError(t, err)

	t.Run("timeout keeps partial", func(t *testing.T) {
		r := m.newRun(NewSession("addr", 10))
		r.asm.Feed([]byte("PA0011"))

		_, err := r.awaitFrame(context.Background(), StateAwaitingProof, 20*time.Millisecond)
		var toErr *FrameTimeoutError
		require.ErrorAs(t, err, &toErr)
		assert.Equal(t, "PA0011", string(toErr.Partial))
		assert.Equal(t, StateAwaitingProof, toErr.State)
	})

	t.Run("parent cancellation", func(t *testing.T) {
		r := m.newRun(NewSession("addr", 10))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.awaitFrame(ctx, StateAwaitingProof, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("overflow is malformed", func(t *testing.T) {
		r := m.newRun(NewSession("addr", 10))
		r.asm = frame.NewReassemblerWithMaxSize(4)
		r.asm.Feed([]byte("0123456789"))

		_, err := r.awaitFrame(context.Background(), StateAwaitingPublicKey, time.Second)
		var mfErr *MalformedFrameError
		require.ErrorAs(t, err, &mfErr)
		assert.ErrorIs(t, err, frame.ErrBufferOverflow)
	})
}

func TestWireFramesDecodeAndVerify(t *testing.T) {
	xHex, yHex := strings.Repeat("A", 64), strings.Repeat("B", 64)
	pkFrame := []byte(strings.Repeat("0", 35) + "\r\n: " + xHex + yHex + ";")

	pk, err := packet.DecodePublicKey(pkFrame)
	require.NoError(t, err)
	wantX, _ := new(big.Int).SetString(xHex, 16)
	wantY, _ := new(big.Int).SetString(yHex, 16)
	require.True(t, pk.Point.Equal(curve.Point{X: wantX, Y: wantY}))

	// Build a commitment consistent with (s, H, Qd) and ship it in a proof
	// frame for device 10.
	s := big.NewInt(0x5eed)
	hash, _ := schnorr.TranscriptHash(curve.GeneratorXHex(), pk.XHex, strings.Repeat("0", 64))
	r := schnorr.Reconstruct(s, hash, pk.Point)
	require.False(t, r.IsInfinity())

	layout := packet.DefaultProofLayout()
	frame := layout.EncodeFrame(layout.Pack(r, s, 10, "tag"), "0012345")
	require.Len(t, frame, 2+226+1+7)

	pkt, err := packet.DecodeProof(frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), pkt.DeviceID)
	assert.Equal(t, schnorr.Accepted, schnorr.Verify(pkt.Response, hash, pk.Point, pkt.Commitment))

	off := curve.Point{X: new(big.Int).Add(pkt.Commitment.X, big.NewInt(1)), Y: pkt.Commitment.Y}
	assert.Equal(t, schnorr.Rejected, schnorr.Verify(pkt.Response, hash, pk.Point, off))
}
