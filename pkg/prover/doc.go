// Package prover simulates a prover device.
//
// Device answers the verifier's commands the way the reference firmware
// does: a register ack, a public key frame, a key-exchange ack and a proof
// frame computed with a fresh nonce. Faults can be injected to exercise the
// verifier's failure paths.
//
// Link connects a Device to a verifier in memory and implements
// transport.Channel; ServeConn serves a Device over a byte stream for demos
// over TCP.
package prover
