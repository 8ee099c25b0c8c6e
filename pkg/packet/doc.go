// Package packet decodes the prover's hex text frames into fixed-layout
// binary packets.
//
// Two frames are defined:
//
//	Public key: <35 metadata><2 separator><128 hex: X||Y>;[timing]
//	Proof:      PA<226 hex: 113 bytes>;[timing]
//
// The 113-byte proof packet is laid out as:
//
//	[0:32)    commitment X
//	[32:64)   commitment Y
//	[64:96)   challenge response
//	[96:97)   device id
//	[97:113)  plaintext tag (UTF-8, decoded leniently)
//
// Decoders are total: they return a packet or an error wrapping one of the
// package's failure kinds, and never a partially filled packet.
package packet
