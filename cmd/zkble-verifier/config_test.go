package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkble-protocol/zkble-go/pkg/log"
	"github.com/zkble-protocol/zkble-go/pkg/service"
)

const sampleConfig = `
scheme: schnorr
device_name: ZKBLE-Prover
device_id: 0
validate_points: true
derive_session_key: true
chunk_size: 64
timeouts:
  ack: 500ms
  proof: 20s
  trailer: 400ms
  dial: 3s
keys:
  hmac: "AABB"
log:
  level: debug
  format: json
  trace: true
  protocol:
    path: /tmp/verifier.zlog
    max_size_mb: 2
`

func TestParseFileConfig(t *testing.T) {
	fc, err := ParseFileConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "ZKBLE-Prover", fc.DeviceName)
	require.NotNil(t, fc.DeviceID)
	assert.Equal(t, uint8(0), *fc.DeviceID)
	assert.Equal(t, 500*time.Millisecond, fc.Timeouts.Ack)
	assert.Equal(t, 20*time.Second, fc.Timeouts.Proof)
	assert.Equal(t, "json", fc.Log.Format)
	assert.Equal(t, 2, fc.Log.Protocol.MaxSizeMB)

	cfg := service.DefaultConfig()
	fc.Apply(&cfg)

	assert.Equal(t, service.SchemeSchnorr, cfg.Scheme)
	assert.Equal(t, uint8(0), cfg.Handshake.DeviceID)
	assert.True(t, cfg.Handshake.ValidatePoints)
	assert.True(t, cfg.Handshake.DeriveSessionKey)
	assert.Equal(t, 64, cfg.Stream.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Handshake.AckTimeout)
	assert.Equal(t, 20*time.Second, cfg.Handshake.ProofTimeout)
	assert.Equal(t, 400*time.Millisecond, cfg.Handshake.TrailerTimeout)
	assert.Equal(t, 3*time.Second, cfg.DialTimeout)
	assert.Equal(t, "AABB", cfg.HMACKeyHex)

	// Untouched fields keep their defaults.
	def := service.DefaultConfig()
	assert.Equal(t, def.Handshake.PublicKeyTimeout, cfg.Handshake.PublicKeyTimeout)
	assert.Equal(t, def.AESKeyHex, cfg.AESKeyHex)
	assert.NoError(t, cfg.Validate())
}

func TestParseFileConfigErrors(t *testing.T) {
	_, err := ParseFileConfig([]byte("scheme: rsa\n"))
	assert.ErrorIs(t, err, service.ErrUnknownScheme)

	_, err = ParseFileConfig([]byte("timeouts: [1, 2"))
	assert.Error(t, err)
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheme: hmac\n"), 0o600))

	fc, err := LoadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "hmac", fc.Scheme)

	_, err = LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestProtocolLoggerSinks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	pl, closer, err := protocolLogger(LogConfig{}, logger)
	require.NoError(t, err)
	assert.Nil(t, pl)
	assert.Nil(t, closer)

	pl, _, err = protocolLogger(LogConfig{Trace: true}, logger)
	require.NoError(t, err)
	assert.IsType(t, &log.SlogAdapter{}, pl)

	path := filepath.Join(t.TempDir(), "p.zlog")
	pl, closer, err = protocolLogger(LogConfig{Trace: true, Protocol: log.RotationConfig{Path: path}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &log.MultiLogger{}, pl)
	require.NotNil(t, closer)

	pl.Log(log.Event{SessionID: "s", Timestamp: time.Now()})
	require.NoError(t, closer.Close())

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	ev, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "s", ev.SessionID)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, strings.ToLower(in))
	}
}
