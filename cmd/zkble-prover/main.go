// Command zkble-prover simulates a ZKBLE prover behind a TCP bridge.
//
// It listens for verifier connections, answers the handshake commands the
// way the reference firmware does and optionally advertises itself over
// mDNS so verifiers can find it by name.
//
// Usage:
//
//	zkble-prover [flags]
//
// Flags:
//
//	-listen string        Listen address (default ":7000")
//	-name string          Advertised device name (default "ZKBLE-Prover")
//	-device-id int        Default device ID (default 10)
//	-tag string           Tag carried in the proof packet
//	-key string           Private key as hex (default: random)
//	-mode string          Mode: schnorr, aes, hmac (default "schnorr")
//	-message string       Message for the aes and hmac modes
//	-faults string        Comma-separated faults, e.g. "silent-acks,tamper-response"
//	-chunk-size int       Notification size in bytes (default 20)
//	-chunk-delay duration Pause between notifications
//	-advertise            Advertise over mDNS (default true)
//	-interface string     Network interface for mDNS
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Faults:
//
//	silent-acks, silent-public-key, silent-proof, tamper-response,
//	tamper-commitment, corrupt-proof-hex, partial-proof=N, truncate-proof=N
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/zkble-protocol/zkble-go/pkg/curve"
	"github.com/zkble-protocol/zkble-go/pkg/discovery"
	"github.com/zkble-protocol/zkble-go/pkg/prover"
	"github.com/zkble-protocol/zkble-go/pkg/symmetric"
)

var (
	listen     = flag.String("listen", ":7000", "Listen address")
	name       = flag.String("name", "ZKBLE-Prover", "Advertised device name")
	deviceID   = flag.Int("device-id", 10, "Default device ID")
	tag        = flag.String("tag", "Hello, verifier!", "Tag carried in the proof packet")
	keyHex     = flag.String("key", "", "Private key as hex (default: random)")
	mode       = flag.String("mode", "schnorr", "Mode: schnorr, aes, hmac")
	message    = flag.String("message", "Hello", "Message for the aes and hmac modes")
	faults     = flag.String("faults", "", "Comma-separated faults")
	chunkSize  = flag.Int("chunk-size", 20, "Notification size in bytes")
	chunkDelay = flag.Duration("chunk-delay", 0, "Pause between notifications")
	advertise  = flag.Bool("advertise", true, "Advertise over mDNS")
	iface      = flag.String("interface", "", "Network interface for mDNS")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("prover stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if *deviceID < 0 || *deviceID > 255 {
		return fmt.Errorf("device id out of range: %d", *deviceID)
	}

	cfg := prover.DefaultConfig()
	cfg.Name = *name
	cfg.DeviceID = uint8(*deviceID)
	cfg.Tag = *tag
	cfg.ChunkSize = *chunkSize
	cfg.ChunkDelay = *chunkDelay

	f, err := parseFaults(*faults)
	if err != nil {
		return err
	}
	cfg.Faults = f

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	addr, err := srv.Listen(*listen)
	if err != nil {
		return err
	}
	logger.Info("prover listening", "address", addr.String(), "name", cfg.Name, "mode", *mode)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *advertise {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Interface: *iface})
		port := 0
		if tcp, ok := addr.(*net.TCPAddr); ok {
			port = tcp.Port
		}
		err := adv.Advertise(&discovery.BridgeInfo{
			Name:     cfg.Name,
			DeviceID: strconv.Itoa(int(cfg.DeviceID)),
			Port:     uint16(port),
		})
		if err != nil {
			logger.Warn("mDNS advertising failed", "error", err)
		} else {
			logger.Info("advertising", "service", discovery.ServiceType, "instance", cfg.Name)
			defer adv.Stop()
		}
	}

	return srv.Serve(ctx)
}

func newServer(cfg prover.Config, logger *slog.Logger) (*prover.Server, error) {
	switch *mode {
	case "schnorr":
		key, err := loadKey(*keyHex)
		if err != nil {
			return nil, err
		}
		dev := prover.NewDevice(key, cfg)
		logger.Info("device key", "public_x", dev.PublicKey().XHex())
		return prover.NewServer(dev, logger), nil

	case "aes":
		key, err := symmetric.ParseKey(symmetric.DefaultAESKeyHex)
		if err != nil {
			return nil, err
		}
		frame, err := symmetric.EncodeAESFrame(key, symmetric.DefaultAESLayout, *message, "0.001", "0.002")
		if err != nil {
			return nil, err
		}
		return prover.NewPushServer(frame, cfg, logger), nil

	case "hmac":
		key, err := symmetric.ParseKey(symmetric.DefaultHMACKeyHex)
		if err != nil {
			return nil, err
		}
		frame := symmetric.EncodeHMACFrame(key, *message, "0001", "0.002")
		return prover.NewPushServer(frame, cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown mode: %s (use: schnorr, aes, hmac)", *mode)
}

// loadKey parses a hex private key, or generates one when s is empty.
func loadKey(s string) (*curve.KeyPair, error) {
	if s == "" {
		return curve.GenerateKeyPair()
	}
	d, ok := new(big.Int).SetString(strings.TrimPrefix(strings.ToLower(s), "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("invalid private key hex")
	}
	return curve.NewKeyPair(d)
}

// parseFaults parses a comma-separated fault list.
func parseFaults(s string) (prover.Faults, error) {
	var f prover.Faults
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, val, hasVal := strings.Cut(item, "=")
		n := 0
		if hasVal {
			var err error
			n, err = strconv.Atoi(val)
			if err != nil || n <= 0 {
				return f, fmt.Errorf("invalid fault value: %s", item)
			}
		}

		switch key {
		case "silent-acks":
			f.SilentAcks = true
		case "silent-public-key":
			f.SilentPublicKey = true
		case "silent-proof":
			f.SilentProof = true
		case "tamper-response":
			f.TamperResponse = true
		case "tamper-commitment":
			f.TamperCommitment = true
		case "corrupt-proof-hex":
			f.CorruptProofHex = true
		case "partial-proof":
			if !hasVal {
				return f, fmt.Errorf("partial-proof needs a byte count")
			}
			f.PartialProof = n
		case "truncate-proof":
			if !hasVal {
				return f, fmt.Errorf("truncate-proof needs a character count")
			}
			f.TruncateProof = n
		default:
			return f, fmt.Errorf("unknown fault: %s", key)
		}
	}
	return f, nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

