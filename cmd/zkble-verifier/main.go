// Command zkble-verifier authenticates ZKBLE provers.
//
// The verifier locates a prover bridge by name over mDNS (or connects to a
// given address), runs the selected authentication scheme and reports
// whether the device proved possession of its key.
//
// Usage:
//
//	zkble-verifier [flags]
//
// Flags:
//
//	-config string         YAML configuration file
//	-name string           Device name to search for (substring match)
//	-address string        Connect to host:port instead of browsing
//	-scheme string         Scheme: schnorr, aes, hmac (default "schnorr")
//	-device-id int         Device ID sent with the init command (default 10)
//	-validate-points       Reject keys and commitments not on the curve
//	-session-key           Derive a session key after a successful proof
//	-log-level string      Log level: debug, info, warn, error (default "info")
//	-log-format string     Log format: text, json (default "text")
//	-protocol-log string   File path for protocol event logging (CBOR format)
//	-trace                 Mirror protocol events into the log at debug level
//	-verbose               Print transcript values
//	-interactive           Enable interactive command mode
//
// Examples:
//
//	# Authenticate the first device whose name contains "Prover"
//	zkble-verifier -name Prover
//
//	# Authenticate a simulator on localhost with point validation
//	zkble-verifier -address 127.0.0.1:7000 -validate-points
//
//	# HMAC variant with protocol capture
//	zkble-verifier -scheme hmac -name Prover -protocol-log hmac.zlog
//
// Exit status is 0 when the device is authenticated, 1 when it is rejected
// and 2 when the attempt failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zkble-protocol/zkble-go/cmd/zkble-verifier/interactive"
	"github.com/zkble-protocol/zkble-go/pkg/handshake"
	"github.com/zkble-protocol/zkble-go/pkg/service"
)

var (
	configFile      = flag.String("config", "", "YAML configuration file")
	name            = flag.String("name", "", "Device name to search for (substring match)")
	address         = flag.String("address", "", "Connect to host:port instead of browsing")
	scheme          = flag.String("scheme", "", "Scheme: schnorr, aes, hmac (default schnorr)")
	deviceID        = flag.Int("device-id", -1, "Device ID sent with the init command (default 10)")
	validatePoints  = flag.Bool("validate-points", false, "Reject keys and commitments not on the curve")
	sessionKey      = flag.Bool("session-key", false, "Derive a session key after a successful proof")
	logLevel        = flag.String("log-level", "", "Log level: debug, info, warn, error (default info)")
	logFormat       = flag.String("log-format", "", "Log format: text, json (default text)")
	protocolLog     = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	trace           = flag.Bool("trace", false, "Mirror protocol events into the log at debug level")
	verbose         = flag.Bool("verbose", false, "Print transcript values")
	interactiveMode = flag.Bool("interactive", false, "Enable interactive command mode")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	fc := &FileConfig{}
	if *configFile != "" {
		var err error
		fc, err = LoadFileConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
	}
	applyFlags(fc)

	var out io.Writer = os.Stderr
	logger, err := newLogger(out, fc.Log.Level, fc.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	protoLogger, closer, err := protocolLogger(fc.Log, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if closer != nil {
		defer closer.Close()
		logger.Info("protocol logging enabled", "path", fc.Log.Protocol.Path)
	}

	cfg := service.DefaultConfig()
	fc.Apply(&cfg)
	cfg.Logger = logger
	cfg.ProtocolLogger = protoLogger

	factory := func(s service.Scheme) (interactive.Authenticator, error) {
		c := cfg
		c.Scheme = s
		return service.NewVerifier(c)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *interactiveMode {
		iv, err := interactive.New(factory, cfg.Scheme, cfg.DeviceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		// Route log output through readline so it does not clobber the prompt.
		logger, _ = newLogger(iv.Stdout(), fc.Log.Level, fc.Log.Format)
		cfg.Logger = logger
		slog.SetDefault(logger)
		iv.Run(ctx, cancel)
		return 0
	}

	verifier, err := factory(cfg.Scheme)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var report *service.Report
	switch {
	case fc.Address != "":
		report = verifier.Authenticate(ctx, fc.Address)
	case cfg.DeviceName != "":
		report = verifier.AuthenticateByName(ctx, cfg.DeviceName)
	default:
		fmt.Fprintln(os.Stderr, "Error: -name or -address required")
		flag.Usage()
		return 2
	}

	interactive.PrintReport(os.Stdout, report, *verbose)
	switch report.Outcome {
	case handshake.OutcomeAuthenticated:
		return 0
	case handshake.OutcomeRejected:
		return 1
	default:
		return 2
	}
}

// applyFlags overrides file settings with explicitly set flags.
func applyFlags(fc *FileConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			fc.DeviceName = *name
		case "address":
			fc.Address = *address
		case "scheme":
			fc.Scheme = *scheme
		case "device-id":
			if *deviceID >= 0 && *deviceID <= 255 {
				id := uint8(*deviceID)
				fc.DeviceID = &id
			}
		case "validate-points":
			fc.ValidatePoints = *validatePoints
		case "session-key":
			fc.DeriveSessionKey = *sessionKey
		case "log-level":
			fc.Log.Level = *logLevel
		case "log-format":
			fc.Log.Format = *logFormat
		case "protocol-log":
			fc.Log.Protocol.Path = *protocolLog
		case "trace":
			fc.Log.Trace = *trace
		}
	})
}
