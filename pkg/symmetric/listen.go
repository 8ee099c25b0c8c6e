package symmetric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zkble-protocol/zkble-go/pkg/frame"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/transport"
)

// Default listen timings.
const (
	DefaultFrameTimeout = 6 * time.Second
	DefaultSettle       = 100 * time.Millisecond
)

// ListenConfig configures Listen.
type ListenConfig struct {
	// FrameTimeout bounds the wait for the terminator.
	FrameTimeout time.Duration

	// Settle is how long the stream must stay quiet after the terminator
	// before the trailing timing field is considered complete.
	Settle time.Duration

	// MaxFrameSize limits buffered bytes (0 = frame.DefaultMaxBufferSize).
	MaxFrameSize int

	Logger         *slog.Logger
	ProtocolLogger log.Logger
}

// DefaultListenConfig returns the default configuration.
func DefaultListenConfig() ListenConfig {
	return ListenConfig{
		FrameTimeout: DefaultFrameTimeout,
		Settle:       DefaultSettle,
	}
}

// Result is the outcome of one Listen.
type Result struct {
	Outcome      handshake.Outcome
	Err          error
	CloseErr     error
	SessionID    string
	Verification *Verification
	Duration     time.Duration
}

// Authenticated reports whether the frame verified.
func (r *Result) Authenticated() bool {
	return r.Outcome == handshake.OutcomeAuthenticated
}

// Listen waits on ch for one frame pushed by the prover and checks it with
// v. The channel is unsubscribed and disconnected before returning.
func Listen(ctx context.Context, ch transport.Channel, address string, v Verifier, cfg ListenConfig) *Result {
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = frame.DefaultMaxBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	res := &Result{SessionID: uuid.NewString()}
	logger = logger.With("session", res.SessionID, "scheme", v.Scheme(), "address", address)

	r := frame.NewReassemblerWithMaxSize(cfg.MaxFrameSize)
	if cfg.ProtocolLogger != nil {
		r.SetLogger(cfg.ProtocolLogger, res.SessionID)
	}
	unsubscribe := ch.OnNotification(r.Feed)

	res.Verification, res.Err = await(ctx, r, v, cfg)
	switch {
	case res.Err != nil:
		res.Outcome = handshake.OutcomeFailed
		logger.Warn("symmetric authentication failed", "error", res.Err)
		logError(cfg.ProtocolLogger, res.SessionID, address, res.Err)
	default:
		res.Outcome = res.Verification.Outcome
		logger.Info("symmetric authentication finished",
			"outcome", res.Outcome.String(),
			"message", res.Verification.Message,
			"timing", res.Verification.Timing,
			"packet_timing", res.Verification.PacketTiming)
		logVerification(cfg.ProtocolLogger, res.SessionID, address, res.Verification)
	}

	unsubscribe()
	if err := ch.Disconnect(); err != nil {
		res.CloseErr = &handshake.ChannelError{Op: "disconnect", Err: err}
		logger.Debug("disconnect failed", "error", err)
	}
	res.Duration = time.Since(start)
	return res
}

func await(ctx context.Context, r *frame.Reassembler, v Verifier, cfg ListenConfig) (*Verification, error) {
	waitCtx, cancel := context.WithTimeout(ctx, cfg.FrameTimeout)
	defer cancel()

	body, err := r.Wait(waitCtx, Terminator)
	mark := r.Seq()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &handshake.FrameTimeoutError{
				State:   handshake.StateAwaitingProof,
				Timeout: cfg.FrameTimeout,
				Partial: r.Pending(),
			}
		}
		return nil, err
	}

	// Trailing timing arrives after the terminator, possibly in later
	// chunks. An already-quiet stream returns once ctx expires, so bound it.
	settleCtx, cancelSettle := context.WithTimeout(ctx, 2*cfg.Settle)
	r.WaitActivity(settleCtx, cfg.Settle, mark)
	cancelSettle()

	full := append(body, r.Pending()...)
	ver, err := v.Verify(full)
	if err != nil {
		return nil, &handshake.MalformedFrameError{State: handshake.StateAwaitingProof, Frame: full, Err: err}
	}
	return ver, nil
}

func logVerification(logger log.Logger, sessionID, address string, ver *Verification) {
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:     time.Now(),
		SessionID:     sessionID,
		Direction:     log.DirectionLocal,
		Layer:         log.LayerHandshake,
		Category:      log.CategoryVerification,
		DeviceAddress: address,
		Verification: &log.VerificationEvent{
			Outcome: verdict(ver.Outcome),
			HashHex: ver.Expected,
			Tag:     ver.Message,
		},
	})
}

// verdict uses the same vocabulary as the Schnorr verification events.
func verdict(o handshake.Outcome) string {
	if o == handshake.OutcomeAuthenticated {
		return "ACCEPTED"
	}
	return "REJECTED"
}

func logError(logger log.Logger, sessionID, address string, err error) {
	if logger == nil {
		return
	}
	ev := log.Event{
		Timestamp:     time.Now(),
		SessionID:     sessionID,
		Direction:     log.DirectionLocal,
		Layer:         log.LayerHandshake,
		Category:      log.CategoryError,
		DeviceAddress: address,
		Error: &log.ErrorEventData{
			Layer:   log.LayerHandshake,
			Kind:    "symmetric",
			Message: err.Error(),
		},
	}
	var toErr *handshake.FrameTimeoutError
	if errors.As(err, &toErr) {
		ev.Error.Kind = "timeout"
		ev.Error.Partial = toErr.Partial
	}
	var mfErr *handshake.MalformedFrameError
	if errors.As(err, &mfErr) {
		ev.Error.Kind = "malformed"
		ev.Error.Context = fmt.Sprintf("%d byte frame", len(mfErr.Frame))
	}
	logger.Log(ev)
}
