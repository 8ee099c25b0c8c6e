// Package log provides protocol event capture for ZKBLE handshakes.
//
// It is separate from operational logging (slog): every command written to
// the prover, every frame reassembled from notifications, every state
// transition and the final verification outcome become Event values that can
// be written to a CBOR file and inspected later with zkble-log.
//
// # Basic Usage
//
//	// Console during development
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary file, rotated by size
//	rot := log.NewRotatingFileLogger(log.RotationConfig{Path: "/var/log/zkble/verifier.zlog"})
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), rot)
//
// # Event Types
//
//   - Transport: frames extracted from the notification stream (FrameEvent)
//     and command writes (CommandEvent)
//   - Codec: decode failures (ErrorEventData)
//   - Handshake: state transitions (StateChangeEvent) and the verification
//     result (VerificationEvent)
package log
