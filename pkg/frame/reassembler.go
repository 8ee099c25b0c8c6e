package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/log"
)

// Reassembler constants.
const (
	// DefaultTerminator ends every variable-length prover frame.
	DefaultTerminator byte = ';'

	// DefaultMaxBufferSize bounds the bytes buffered without a terminator.
	DefaultMaxBufferSize = 16 * 1024

	// MaxLogFrameDataSize is the maximum frame data size included in log
	// events. Larger frames are truncated.
	MaxLogFrameDataSize = 1024
)

// Reassembler errors.
var (
	// ErrIncomplete indicates no terminator has been buffered yet.
	ErrIncomplete = errors.New("frame incomplete")

	// ErrBufferOverflow indicates the buffer grew past its limit without a
	// terminator. The buffered bytes are kept for diagnostics.
	ErrBufferOverflow = errors.New("frame buffer overflow")
)

// Reassembler accumulates chunks and extracts complete frames.
// Feed may be called from any goroutine; waits are woken on every chunk.
type Reassembler struct {
	mu      sync.Mutex
	buf     []byte
	maxSize int
	seq     uint64
	signal  chan struct{}

	// Logging support (optional)
	logger    log.Logger
	sessionID string
}

// NewReassembler creates a reassembler with DefaultMaxBufferSize.
func NewReassembler() *Reassembler {
	return NewReassemblerWithMaxSize(DefaultMaxBufferSize)
}

// NewReassemblerWithMaxSize creates a reassembler with a custom buffer limit.
// A non-positive limit disables the check.
func NewReassemblerWithMaxSize(maxSize int) *Reassembler {
	return &Reassembler{
		maxSize: maxSize,
		signal:  make(chan struct{}),
	}
}

// SetLogger configures logging of extracted frames.
// Pass nil to disable logging.
func (r *Reassembler) SetLogger(logger log.Logger, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	r.sessionID = sessionID
}

// Feed appends a chunk and wakes all waiters. Empty chunks still count as
// activity.
func (r *Reassembler) Feed(chunk []byte) {
	r.mu.Lock()
	r.buf = append(r.buf, chunk...)
	r.seq++
	close(r.signal)
	r.signal = make(chan struct{})
	r.mu.Unlock()
}

// TryExtract returns the buffered bytes up to and including the first
// terminator and removes them from the buffer. Bytes after the terminator
// stay buffered. It returns ErrIncomplete if no terminator is buffered, or
// ErrBufferOverflow if the buffer exceeded its limit first.
func (r *Reassembler) TryExtract(terminator byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extractLocked(terminator)
}

func (r *Reassembler) extractLocked(terminator byte) ([]byte, error) {
	idx := bytes.IndexByte(r.buf, terminator)
	if idx < 0 {
		if r.maxSize > 0 && len(r.buf) > r.maxSize {
			return nil, fmt.Errorf("%w: %d bytes buffered, limit %d", ErrBufferOverflow, len(r.buf), r.maxSize)
		}
		return nil, ErrIncomplete
	}

	frame := make([]byte, idx+1)
	copy(frame, r.buf[:idx+1])
	r.buf = append(r.buf[:0], r.buf[idx+1:]...)

	r.logFrame(frame)
	return frame, nil
}

// Wait blocks until a complete frame can be extracted or ctx is done. On
// context expiry it returns ctx.Err(); the partial buffer remains available
// through Pending.
func (r *Reassembler) Wait(ctx context.Context, terminator byte) ([]byte, error) {
	for {
		r.mu.Lock()
		frame, err := r.extractLocked(terminator)
		signal := r.signal
		r.mu.Unlock()

		if !errors.Is(err, ErrIncomplete) {
			return frame, err
		}

		select {
		case <-signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// WaitActivity blocks until a chunk has been fed after the Seq value since
// and the stream then stays quiet for settle, or ctx is done. It reports
// whether anything arrived after since. Callers take since before sending a
// command, so an answer delivered before the wait starts still counts.
// Acknowledgements without a terminator are awaited this way.
func (r *Reassembler) WaitActivity(ctx context.Context, settle time.Duration, since uint64) bool {
	r.mu.Lock()
	seen := r.seq != since
	signal := r.signal
	r.mu.Unlock()

	if !seen {
		select {
		case <-signal:
		case <-ctx.Done():
			return r.Seq() != since
		}
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()
	for {
		r.mu.Lock()
		signal = r.signal
		r.mu.Unlock()

		select {
		case <-signal:
			timer.Reset(settle)
		case <-timer.C:
			return true
		case <-ctx.Done():
			return true
		}
	}
}

// Pending returns a copy of the bytes buffered but not yet extracted.
func (r *Reassembler) Pending() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.buf)
}

// Seq returns the number of chunks fed so far.
func (r *Reassembler) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Reset discards buffered bytes and returns them.
func (r *Reassembler) Reset() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := r.buf
	r.buf = nil
	return dropped
}

// logFrame emits a frame event. Caller holds r.mu.
func (r *Reassembler) logFrame(frame []byte) {
	if r.logger == nil {
		return
	}

	data := frame
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		data = data[:MaxLogFrameDataSize]
		truncated = true
	}

	r.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: r.sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryFrame,
		Frame: &log.FrameEvent{
			Size:      len(frame),
			Data:      bytes.Clone(data),
			Truncated: truncated,
			Remainder: len(r.buf),
		},
	})
}
