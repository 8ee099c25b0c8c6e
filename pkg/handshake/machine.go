package handshake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
	"github.com/zkble-protocol/zkble-go/pkg/frame"
	"github.com/zkble-protocol/zkble-go/pkg/packet"
	"github.com/zkble-protocol/zkble-go/pkg/schnorr"
	"github.com/zkble-protocol/zkble-go/pkg/transport"
)

// Result is the outcome of one handshake.
type Result struct {
	// Outcome is AUTHENTICATED, REJECTED or FAILED.
	Outcome Outcome

	// Err is the cause of a FAILED outcome.
	Err error

	// CloseErr reports a disconnect failure after the outcome was decided.
	CloseErr error

	// Session is the final session context.
	Session Session

	// PublicKey and Proof are the decoded packets, when received.
	PublicKey *packet.PublicKeyPacket
	Proof     *packet.ProofPacket

	// States lists every state entered, in order.
	States []State

	// Duration is the wall time from start to close.
	Duration time.Duration
}

// Authenticated reports whether the prover proved possession of its key.
func (r *Result) Authenticated() bool {
	return r.Outcome == OutcomeAuthenticated
}

// Machine runs handshakes. It holds no per-session state and may run
// handshakes against different provers one after another.
type Machine struct {
	config Config
	dialer transport.Dialer
}

// NewMachine creates a machine. dialer may be nil if only RunChannel is
// used.
func NewMachine(dialer transport.Dialer, config Config) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Machine{config: config, dialer: dialer}, nil
}

// Config returns the machine configuration.
func (m *Machine) Config() Config {
	return m.config
}

// Run connects to address and performs a handshake.
func (m *Machine) Run(ctx context.Context, address string) *Result {
	r := m.newRun(NewSession(address, m.config.DeviceID))

	if m.dialer == nil {
		return r.abort(r.session, &ChannelError{Op: "connect", Err: ErrNoDialer})
	}
	ch, err := m.dialer.Dial(ctx, address)
	if err != nil {
		if ctx.Err() != nil {
			return r.abort(r.session, ctx.Err())
		}
		return r.abort(r.session, &ChannelError{Op: "connect", Err: err})
	}
	return r.exchange(ctx, ch)
}

// RunChannel performs a handshake over an already connected channel. The
// channel is disconnected before RunChannel returns.
func (m *Machine) RunChannel(ctx context.Context, ch transport.Channel, address string) *Result {
	r := m.newRun(NewSession(address, m.config.DeviceID))
	return r.exchange(ctx, ch)
}

// run is the state of one handshake in progress.
type run struct {
	cfg     Config
	log     *slog.Logger
	events  *eventLog
	ch      transport.Channel
	asm     *frame.Reassembler
	session Session
	result  *Result
	start   time.Time

	// mark is the reassembler Seq taken just before the last command.
	mark uint64
}

func (m *Machine) newRun(s Session) *run {
	r := &run{
		cfg:     m.config,
		session: s,
		result:  &Result{States: []State{s.State}},
		start:   time.Now(),
	}
	r.log = m.config.logger().With("session_id", s.ID, "address", s.Address)
	r.events = newEventLog(m.config.ProtocolLogger)
	r.asm = frame.NewReassemblerWithMaxSize(m.config.MaxFrameSize)
	if m.config.ProtocolLogger != nil {
		r.asm.SetLogger(m.config.ProtocolLogger, s.ID)
	}
	return r
}

type step func(context.Context, Session) (Session, error)

func (r *run) exchange(ctx context.Context, ch transport.Channel) *Result {
	r.ch = ch
	unsubscribe := ch.OnNotification(r.asm.Feed)

	s := r.transition(r.session, StateConnected, "")
	steps := []step{
		r.register,
		r.awaitPublicKey,
		r.exchangeKeys,
		r.requestProof,
		r.verify,
	}

	var err error
	for _, fn := range steps {
		if err = ctx.Err(); err != nil {
			break
		}
		if s, err = fn(ctx, s); err != nil {
			break
		}
	}

	unsubscribe()
	closeErr := ch.Disconnect()

	if err != nil {
		if closeErr != nil {
			r.log.Warn("disconnect failed", "error", closeErr)
			r.result.CloseErr = &ChannelError{Op: "disconnect", Err: closeErr}
		}
		return r.abort(s, err)
	}

	outcome := OutcomeRejected
	if s.State == StateVerified {
		outcome = OutcomeAuthenticated
	}
	if closeErr != nil {
		r.result.CloseErr = &ChannelError{Op: "disconnect", Err: closeErr}
		r.events.failure(s, r.result.CloseErr, nil)
		r.log.Warn("disconnect failed", "error", closeErr)
	}
	return r.finish(r.transition(s, StateClosed, ""), outcome, nil)
}

// abort moves s through FAILED to CLOSED.
func (r *run) abort(s Session, err error) *Result {
	var partial []byte
	var toErr *FrameTimeoutError
	if errors.As(err, &toErr) {
		partial = toErr.Partial
	}
	r.events.failure(s, err, partial)

	s = r.transition(s, StateFailed, err.Error())
	s = r.transition(s, StateClosed, "")
	return r.finish(s, OutcomeFailed, err)
}

func (r *run) finish(s Session, outcome Outcome, err error) *Result {
	r.result.Outcome = outcome
	r.result.Err = err
	r.result.Session = s
	r.result.Duration = time.Since(r.start)

	attrs := []any{"outcome", outcome.String(), "duration", r.result.Duration}
	if err != nil {
		r.log.Warn("handshake failed", append(attrs, "error", err, "kind", errorKind(err))...)
	} else {
		r.log.Info("handshake complete", attrs...)
	}
	return r.result
}

func (r *run) transition(s Session, to State, reason string) Session {
	from := s.State
	s.State = to
	r.result.States = append(r.result.States, to)
	r.events.stateChange(s, from, to, reason)
	r.log.Debug("state change", "from", from.String(), "to", to.String())
	return s
}

// send resets the reassembler and writes one command, so nothing buffered
// before the command can be taken for its answer.
func (r *run) send(s Session, cmd []byte) error {
	if dropped := r.asm.Reset(); len(dropped) > 0 {
		r.log.Debug("discarded buffered bytes", "size", len(dropped))
	}
	r.events.command(s, cmd)

	r.mark = r.asm.Seq()
	if err := r.ch.Send(cmd); err != nil {
		return &ChannelError{Op: "send", Command: string(cmd[:1]), Err: err}
	}
	return nil
}

// awaitAck waits best-effort for an acknowledgement. Silence is not an
// error; only cancellation is.
func (r *run) awaitAck(ctx context.Context, timeout time.Duration) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !r.asm.WaitActivity(actx, r.cfg.AckSettle, r.mark) {
		r.log.Debug("no acknowledgement", "timeout", timeout)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.asm.Pending(), nil
}

// awaitFrame waits for one terminated frame.
func (r *run) awaitFrame(ctx context.Context, state State, timeout time.Duration) ([]byte, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := r.asm.Wait(wctx, r.cfg.Terminator)
	switch {
	case err == nil:
		return raw, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return nil, &FrameTimeoutError{State: state, Timeout: timeout, Partial: r.asm.Pending()}
	default:
		return nil, &MalformedFrameError{State: state, Frame: r.asm.Pending(), Err: err}
	}
}

// awaitTrailer collects the timing field sent after a frame's terminator.
// It may arrive with the frame or in later chunks.
func (r *run) awaitTrailer(ctx context.Context) string {
	if r.cfg.TrailerTimeout > 0 {
		since := r.asm.Seq()
		tctx, cancel := context.WithTimeout(ctx, r.cfg.TrailerTimeout)
		r.asm.WaitActivity(tctx, r.cfg.AckSettle, since)
		cancel()
	}
	return strings.TrimSpace(string(r.asm.Pending()))
}

// register: CONNECTED -> REGISTERED.
func (r *run) register(ctx context.Context, s Session) (Session, error) {
	if err := r.send(s, EncodeRegister()); err != nil {
		return s, err
	}
	ack, err := r.awaitAck(ctx, r.cfg.AckTimeout)
	if err != nil {
		return s, err
	}
	s.RegisterAck = ack
	return r.transition(s, StateRegistered, ""), nil
}

// awaitPublicKey: REGISTERED -> AWAITING_PUBLIC_KEY, then decodes Qd.
func (r *run) awaitPublicKey(ctx context.Context, s Session) (Session, error) {
	if err := r.send(s, EncodeInit(s.DeviceID)); err != nil {
		return s, err
	}
	s = r.transition(s, StateAwaitingPublicKey, "")

	raw, err := r.awaitFrame(ctx, s.State, r.cfg.PublicKeyTimeout)
	if err != nil {
		return s, err
	}
	s.KeyTiming = r.awaitTrailer(ctx)

	pk, err := r.cfg.PublicKeyLayout.Decode(raw)
	if err != nil {
		return s, &MalformedFrameError{State: s.State, Frame: raw, Err: err}
	}
	if r.cfg.ValidatePoints {
		if err := pk.Validate(); err != nil {
			return s, &MalformedFrameError{State: s.State, Frame: raw, Err: err}
		}
	}

	s.ProverXHex = pk.XHex
	s.ProverKey = pk.Point
	s.KeyMetadata = pk.Metadata
	r.result.PublicKey = pk
	r.log.Debug("public key received", "x", pk.XHex, "metadata", pk.Metadata)
	return s, nil
}

// exchangeKeys: AWAITING_PUBLIC_KEY -> KEY_EXCHANGED.
func (r *run) exchangeKeys(ctx context.Context, s Session) (Session, error) {
	kp, err := curve.GenerateKeyPair()
	if err != nil {
		return s, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	s.Ephemeral = kp

	if err := r.send(s, EncodeKeyExchange(kp.PublicBytes())); err != nil {
		return s, err
	}
	s = r.transition(s, StateKeyExchanged, "")

	ack, err := r.awaitAck(ctx, r.cfg.KeyAckTimeout)
	if err != nil {
		return s, err
	}
	s.KeyAck = ack
	return s, nil
}

// requestProof: KEY_EXCHANGED -> AWAITING_PROOF, then decodes the proof.
func (r *run) requestProof(ctx context.Context, s Session) (Session, error) {
	if err := r.send(s, EncodeRequestDigest()); err != nil {
		return s, err
	}
	s = r.transition(s, StateAwaitingProof, "")

	raw, err := r.awaitFrame(ctx, s.State, r.cfg.ProofTimeout)
	if err != nil {
		return s, err
	}
	s.ProofTiming = r.awaitTrailer(ctx)

	pkt, err := r.cfg.ProofLayout.Decode(raw)
	if err != nil {
		return s, &MalformedFrameError{State: s.State, Frame: raw, Err: err}
	}
	if r.cfg.ValidatePoints {
		if err := pkt.Validate(); err != nil {
			return s, &MalformedFrameError{State: s.State, Frame: raw, Err: err}
		}
	}
	if pkt.ResponseOverflow {
		r.log.Warn("challenge response not reduced", "device_id", pkt.DeviceID)
	}
	r.result.Proof = pkt
	return s, nil
}

// verify: AWAITING_PROOF -> VERIFIED | REJECTED.
func (r *run) verify(_ context.Context, s Session) (Session, error) {
	pkt := r.result.Proof
	s.Hash, s.HashHex = schnorr.TranscriptHash(s.GeneratorXHex, s.ProverXHex, pkt.CommitmentXHex)

	outcome := schnorr.Verify(pkt.Response, s.Hash, s.ProverKey, pkt.Commitment)
	r.events.verification(s, outcome, pkt)
	r.log.Debug("proof checked",
		"outcome", outcome.String(),
		"hash", s.HashHex,
		"device_id", pkt.DeviceID,
		"tag", pkt.Tag,
	)

	if outcome != schnorr.Accepted {
		return r.transition(s, StateRejected, "verification mismatch"), nil
	}

	if r.cfg.DeriveSessionKey {
		key, err := deriveSessionKey(s.Ephemeral, s.ProverKey, pkt.Commitment.Bytes()[:curve.CoordinateSize])
		if err != nil {
			r.log.Warn("session key not derived", "error", err)
		} else {
			s.SessionKey = key
		}
	}
	return r.transition(s, StateVerified, ""), nil
}
