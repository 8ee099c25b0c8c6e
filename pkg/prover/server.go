package prover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
)

// ServeConn serves dev over conn until the peer closes it or ctx is done.
// Each read is treated as one command, which holds for the short writes a
// verifier makes.
func ServeConn(ctx context.Context, conn net.Conn, dev *Device) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	cfg := dev.Config()
	buf := make([]byte, 1+curve.PointSize+16)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			resp, rerr := dev.Respond(append([]byte(nil), buf[:n]...))
			if rerr != nil {
				return fmt.Errorf("respond: %w", rerr)
			}
			for _, chunk := range Chunk(resp, cfg.ChunkSize) {
				if cfg.ChunkDelay > 0 {
					time.Sleep(cfg.ChunkDelay)
				}
				if _, werr := conn.Write(chunk); werr != nil {
					return fmt.Errorf("write: %w", werr)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// PushConn writes frame to conn in chunks as soon as the verifier connects,
// then holds the connection until the peer closes it or ctx is done. This
// is how the pre-shared-key variants behave: the verifier sends nothing.
func PushConn(ctx context.Context, conn net.Conn, frame []byte, cfg Config) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for _, chunk := range Chunk(frame, cfg.ChunkSize) {
		if cfg.ChunkDelay > 0 {
			time.Sleep(cfg.ChunkDelay)
		}
		if _, err := conn.Write(chunk); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write: %w", err)
		}
	}

	_, err := io.Copy(io.Discard, conn)
	if err == nil || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
		return nil
	}
	return err
}

// Server accepts verifier connections for one Device.
type Server struct {
	handle func(ctx context.Context, conn net.Conn) error
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server. A nil logger uses slog.Default().
func NewServer(dev *Device, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		handle: func(ctx context.Context, conn net.Conn) error {
			return ServeConn(ctx, conn, dev)
		},
		logger: logger,
	}
}

// NewPushServer creates a server that pushes frame to every verifier that
// connects.
func NewPushServer(frame []byte, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		handle: func(ctx context.Context, conn net.Conn) error {
			return PushConn(ctx, conn, frame, cfg)
		},
		logger: logger,
	}
}

// Listen binds address ("host:port", port 0 for any).
func (s *Server) Listen(address string) (net.Addr, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", address, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return ln.Addr(), nil
}

// Serve accepts connections until ctx is done. Connections are served one
// at a time; the device holds a single session.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server not listening")
	}

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.logger.Info("verifier connected", "remote", conn.RemoteAddr().String())
		if err := s.handle(ctx, conn); err != nil {
			s.logger.Warn("session ended", "error", err)
		}
		s.logger.Info("verifier disconnected", "remote", conn.RemoteAddr().String())
	}
}

// Close stops listening.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
