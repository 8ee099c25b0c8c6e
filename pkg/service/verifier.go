package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zkble-protocol/zkble-go/pkg/discovery"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/symmetric"
	"github.com/zkble-protocol/zkble-go/pkg/transport"
)

// Finder locates a bridge by device name.
type Finder interface {
	FindByName(ctx context.Context, name string) (*discovery.Bridge, error)
}

var _ Finder = (*discovery.Browser)(nil)

// Verifier authenticates devices.
type Verifier struct {
	mu sync.RWMutex

	config    Config
	logger    *slog.Logger
	finder    Finder
	dialer    transport.Dialer
	machine   *handshake.Machine
	symmetric symmetric.Verifier

	eventHandlers []EventHandler
}

// NewVerifier creates a verifier with an mDNS finder and a TCP dialer.
func NewVerifier(config Config) (*Verifier, error) {
	if config.Scheme == "" {
		config.Scheme = SchemeSchnorr
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hs := config.Handshake
	if hs.Logger == nil {
		hs.Logger = logger
	}
	if hs.ProtocolLogger == nil {
		hs.ProtocolLogger = config.ProtocolLogger
	}
	config.Handshake = hs

	ls := config.Listen
	if ls.Logger == nil {
		ls.Logger = logger
	}
	if ls.ProtocolLogger == nil {
		ls.ProtocolLogger = config.ProtocolLogger
	}
	config.Listen = ls

	dialer := &transport.TCPDialer{Config: config.Stream, Network: "tcp"}
	v := &Verifier{
		config: config,
		logger: logger,
		finder: discovery.NewBrowser(config.Browser),
		dialer: dialer,
	}

	var err error
	switch config.Scheme {
	case SchemeSchnorr:
		v.machine, err = handshake.NewMachine(connector{v}, hs)
	case SchemeAES:
		v.symmetric, err = newAESVerifier(config)
	case SchemeHMAC:
		v.symmetric, err = newHMACVerifier(config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return v, nil
}

func newAESVerifier(config Config) (symmetric.Verifier, error) {
	key, err := symmetric.ParseKey(config.AESKeyHex)
	if err != nil {
		return nil, err
	}
	return symmetric.NewAESVerifier(key, config.AESLayout)
}

func newHMACVerifier(config Config) (symmetric.Verifier, error) {
	key, err := symmetric.ParseKey(config.HMACKeyHex)
	if err != nil {
		return nil, err
	}
	return symmetric.NewHMACVerifier(key)
}

// Config returns the verifier configuration.
func (v *Verifier) Config() Config {
	return v.config
}

// SetFinder replaces the bridge finder.
func (v *Verifier) SetFinder(finder Finder) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finder = finder
}

// SetDialer replaces the dialer.
func (v *Verifier) SetDialer(dialer transport.Dialer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dialer = dialer
}

// OnEvent registers an event handler.
func (v *Verifier) OnEvent(handler EventHandler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eventHandlers = append(v.eventHandlers, handler)
}

// AuthenticateByName locates the device whose advertised name contains
// name and authenticates it.
func (v *Verifier) AuthenticateByName(ctx context.Context, name string) *Report {
	start := time.Now()

	v.mu.RLock()
	finder := v.finder
	v.mu.RUnlock()

	bridge, err := finder.FindByName(ctx, name)
	if err != nil {
		err = fmt.Errorf("%w: %q: %v", ErrDeviceNotFound, name, err)
		v.logger.Warn("device not found", "name", name, "error", err)
		v.emitEvent(Event{Type: EventFailed, Scheme: v.config.Scheme, Error: err})
		return &Report{
			Scheme:   v.config.Scheme,
			Outcome:  handshake.OutcomeFailed,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	address := bridge.Address()
	v.logger.Info("device found", "name", bridge.Name, "address", address)
	v.emitEvent(Event{Type: EventDiscovered, Scheme: v.config.Scheme, Address: address, Bridge: bridge})

	report := v.Authenticate(ctx, address)
	report.Bridge = bridge
	report.Duration = time.Since(start)
	return report
}

// Authenticate connects to address and authenticates the device there.
func (v *Verifier) Authenticate(ctx context.Context, address string) *Report {
	start := time.Now()
	report := &Report{Scheme: v.config.Scheme, Address: address}

	switch v.config.Scheme {
	case SchemeSchnorr:
		res := v.machine.Run(ctx, address)
		report.Handshake = res
		report.Outcome = res.Outcome
		report.Err = res.Err
	default:
		ch, err := v.connect(ctx, address)
		if err != nil {
			report.Outcome = handshake.OutcomeFailed
			report.Err = &handshake.ChannelError{Op: "connect", Err: err}
			break
		}
		res := symmetric.Listen(ctx, ch, address, v.symmetric, v.config.Listen)
		report.Symmetric = res
		report.Outcome = res.Outcome
		report.Err = res.Err
	}
	report.Duration = time.Since(start)

	switch report.Outcome {
	case handshake.OutcomeAuthenticated:
		v.emitEvent(Event{Type: EventAuthenticated, Scheme: report.Scheme, Address: address})
	case handshake.OutcomeRejected:
		v.emitEvent(Event{Type: EventRejected, Scheme: report.Scheme, Address: address})
	default:
		v.emitEvent(Event{Type: EventFailed, Scheme: report.Scheme, Address: address, Error: report.Err})
	}
	return report
}

// connect dials address with the current dialer and DialTimeout.
func (v *Verifier) connect(ctx context.Context, address string) (transport.Channel, error) {
	v.mu.RLock()
	dialer := v.dialer
	v.mu.RUnlock()

	dialCtx, cancel := context.WithTimeout(ctx, v.config.DialTimeout)
	defer cancel()
	ch, err := dialer.Dial(dialCtx, address)
	if err != nil {
		v.logger.Warn("connect failed", "address", address, "error", err)
		return nil, err
	}
	v.emitEvent(Event{Type: EventConnected, Scheme: v.config.Scheme, Address: address})
	return ch, nil
}

// connector lets the handshake machine dial through the verifier, so
// SetDialer and connect events apply to Schnorr runs too.
type connector struct{ v *Verifier }

func (c connector) Dial(ctx context.Context, address string) (transport.Channel, error) {
	return c.v.connect(ctx, address)
}

// emitEvent sends an event to all handlers.
func (v *Verifier) emitEvent(event Event) {
	v.mu.RLock()
	handlers := v.eventHandlers
	v.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
