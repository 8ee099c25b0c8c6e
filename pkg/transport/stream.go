package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ChannelState is the connection state of a StreamChannel.
type ChannelState int32

const (
	// StateDisconnected indicates no connection.
	StateDisconnected ChannelState = iota

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosing indicates Disconnect is in progress.
	StateClosing
)

// String returns the channel state name.
func (s ChannelState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Channel errors.
var (
	ErrNotConnected = errors.New("not connected")
	ErrEmptyWrite   = errors.New("empty write")
)

// StreamConfig configures a StreamChannel.
type StreamConfig struct {
	// ChunkSize is the maximum notification size (default: 20, the BLE
	// ATT default payload).
	ChunkSize int

	// WriteTimeout bounds each Send (0 = no timeout).
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns the default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ChunkSize:    20,
		WriteTimeout: 5 * time.Second,
	}
}

// StreamChannel is a Channel over a byte stream.
type StreamChannel struct {
	config StreamConfig
	conn   net.Conn

	state     atomic.Int32
	closeOnce sync.Once
	readDone  chan struct{}
	readErr   error

	writeMu sync.Mutex

	subMu  sync.RWMutex
	subs   map[uint64]func([]byte)
	nextID uint64
}

// NewStreamChannel wraps conn and starts its read loop.
func NewStreamChannel(conn net.Conn, config StreamConfig) *StreamChannel {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultStreamConfig().ChunkSize
	}

	c := &StreamChannel{
		config:   config,
		conn:     conn,
		readDone: make(chan struct{}),
		subs:     make(map[uint64]func([]byte)),
	}
	c.state.Store(int32(StateConnected))

	go c.readLoop()
	return c
}

// State returns the current channel state.
func (c *StreamChannel) State() ChannelState {
	return ChannelState(c.state.Load())
}

// RemoteAddr returns the remote network address.
func (c *StreamChannel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes one command.
func (c *StreamChannel) Send(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyWrite
	}
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// OnNotification subscribes fn to inbound chunks.
func (c *StreamChannel) OnNotification(fn func([]byte)) func() {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Subscribers returns the number of active subscriptions.
func (c *StreamChannel) Subscribers() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs)
}

// Disconnect closes the stream and waits for the read loop to exit.
func (c *StreamChannel) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		err = c.conn.Close()
		<-c.readDone
		c.state.Store(int32(StateDisconnected))
	})
	return err
}

// Done is closed when the read loop exits.
func (c *StreamChannel) Done() <-chan struct{} {
	return c.readDone
}

// Err returns the error that ended the read loop, or nil for a clean EOF or
// a local Disconnect. Valid after Done is closed.
func (c *StreamChannel) Err() error {
	<-c.readDone
	return c.readErr
}

func (c *StreamChannel) readLoop() {
	defer close(c.readDone)

	buf := make([]byte, c.config.ChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.deliver(chunk)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && c.State() == StateConnected {
				c.readErr = err
			}
			c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected))
			return
		}
	}
}

func (c *StreamChannel) deliver(chunk []byte) {
	c.subMu.RLock()
	fns := make([]func([]byte), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range fns {
		fn(chunk)
	}
}
