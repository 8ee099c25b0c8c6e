package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/service"
)

// FileConfig is the YAML configuration file layout. Zero values keep the
// built-in defaults.
type FileConfig struct {
	Scheme           string `yaml:"scheme"`
	DeviceName       string `yaml:"device_name"`
	Address          string `yaml:"address"`
	DeviceID         *uint8 `yaml:"device_id"`
	ValidatePoints   bool   `yaml:"validate_points"`
	DeriveSessionKey bool   `yaml:"derive_session_key"`
	ChunkSize        int    `yaml:"chunk_size"`
	Interface        string `yaml:"interface"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
	Keys     KeyConfig     `yaml:"keys"`
	Log      LogConfig     `yaml:"log"`
}

// TimeoutConfig overrides protocol timeouts.
type TimeoutConfig struct {
	Ack       time.Duration `yaml:"ack"`
	PublicKey time.Duration `yaml:"public_key"`
	KeyAck    time.Duration `yaml:"key_ack"`
	Proof     time.Duration `yaml:"proof"`
	Trailer   time.Duration `yaml:"trailer"`
	Frame     time.Duration `yaml:"frame"`
	Dial      time.Duration `yaml:"dial"`
	Browse    time.Duration `yaml:"browse"`
}

// KeyConfig holds the pre-shared keys for the symmetric schemes.
type KeyConfig struct {
	AES  string `yaml:"aes"`
	HMAC string `yaml:"hmac"`
}

// LogConfig configures operational and protocol logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Trace mirrors protocol events into the operational log at debug level.
	Trace bool `yaml:"trace"`

	// Protocol writes CBOR protocol events. A zero MaxSizeMB writes a
	// single file; otherwise the file is rotated.
	Protocol log.RotationConfig `yaml:"protocol"`
}

// LoadFileConfig reads a YAML configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseFileConfig(data)
}

// ParseFileConfig parses YAML configuration bytes.
func ParseFileConfig(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := service.ParseScheme(fc.Scheme); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Apply copies the file settings onto a service configuration.
func (fc *FileConfig) Apply(cfg *service.Config) {
	if fc.Scheme != "" {
		cfg.Scheme = service.Scheme(fc.Scheme)
	}
	if fc.DeviceName != "" {
		cfg.DeviceName = fc.DeviceName
	}
	if fc.DeviceID != nil {
		cfg.Handshake.DeviceID = *fc.DeviceID
	}
	if fc.ValidatePoints {
		cfg.Handshake.ValidatePoints = true
	}
	if fc.DeriveSessionKey {
		cfg.Handshake.DeriveSessionKey = true
	}
	if fc.ChunkSize > 0 {
		cfg.Stream.ChunkSize = fc.ChunkSize
	}
	if fc.Interface != "" {
		cfg.Browser.Interface = fc.Interface
	}

	setDuration(&cfg.Handshake.AckTimeout, fc.Timeouts.Ack)
	setDuration(&cfg.Handshake.PublicKeyTimeout, fc.Timeouts.PublicKey)
	setDuration(&cfg.Handshake.KeyAckTimeout, fc.Timeouts.KeyAck)
	setDuration(&cfg.Handshake.ProofTimeout, fc.Timeouts.Proof)
	setDuration(&cfg.Handshake.TrailerTimeout, fc.Timeouts.Trailer)
	setDuration(&cfg.Listen.FrameTimeout, fc.Timeouts.Frame)
	setDuration(&cfg.DialTimeout, fc.Timeouts.Dial)
	setDuration(&cfg.Browser.BrowseTimeout, fc.Timeouts.Browse)

	if fc.Keys.AES != "" {
		cfg.AESKeyHex = fc.Keys.AES
	}
	if fc.Keys.HMAC != "" {
		cfg.HMACKeyHex = fc.Keys.HMAC
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// parseLevel maps a level name to an slog level.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}

// newLogger builds the operational logger.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s (use: text, json)", format)
	}
}

// protocolLogger assembles the protocol event sinks. The returned closer
// flushes file sinks; it is nil when nothing needs closing.
func protocolLogger(cfg LogConfig, logger *slog.Logger) (log.Logger, io.Closer, error) {
	var sinks []log.Logger
	var closer io.Closer

	if cfg.Protocol.Path != "" {
		var fl *log.FileLogger
		if cfg.Protocol.MaxSizeMB > 0 {
			fl = log.NewRotatingFileLogger(cfg.Protocol)
		} else {
			var err error
			fl, err = log.NewFileLogger(cfg.Protocol.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create protocol logger: %w", err)
			}
		}
		sinks = append(sinks, fl)
		closer = fl
	}
	if cfg.Trace {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		return nil, nil, nil
	case 1:
		return sinks[0], closer, nil
	default:
		return log.NewMultiLogger(sinks...), closer, nil
	}
}
