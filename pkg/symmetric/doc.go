// Package symmetric implements the two pre-shared-key authentication
// variants that run alongside the Schnorr handshake.
//
// Both are passive: after connecting, the verifier only listens. The prover
// pushes a single frame and the verifier recomputes a value with the shared
// key and compares it to the one received.
//
// AES frame (AES-256-CBC, zero IV):
//
//	<5 timing><5 reserved><32 hex ciphertext><hex message>;<packet timing>
//
// The device is authenticated when the decrypted ciphertext, with trailing
// whitespace removed, equals the hex-decoded message.
//
// HMAC frame (HMAC-SHA256):
//
//	<4 timing>PA<64 hex mac><hex message>;<packet timing>
//
// The device is authenticated when HMAC-SHA256(key, message) equals the
// received mac. The message is hex-decoded and trimmed before hashing.
package symmetric
