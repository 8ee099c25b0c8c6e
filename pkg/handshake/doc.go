// Package handshake implements the verifier side of the zero-knowledge
// device authentication handshake.
//
// # Flow
//
//	Verifier                              Prover
//	   |  R                                  |
//	   |------------------------------------>|
//	   |                 ack (best effort)   |
//	   |<- - - - - - - - - - - - - - - - - - |
//	   |  I<device id>                       |
//	   |------------------------------------>|
//	   |        <metadata><Qx||Qy hex>;      |
//	   |<------------------------------------|
//	   |  K<ephemeral X||Y, 64 raw bytes>    |
//	   |------------------------------------>|
//	   |                 ack (best effort)   |
//	   |<- - - - - - - - - - - - - - - - - - |
//	   |  D                                  |
//	   |------------------------------------>|
//	   |        PA<113-byte proof hex>;<t>   |
//	   |<------------------------------------|
//
// The verifier then computes H = SHA-256(Gx || Qx || Rx) and accepts iff
// s*G - H*Qd equals the commitment R carried in the proof.
//
// # States
//
//	IDLE -> CONNECTED -> REGISTERED -> AWAITING_PUBLIC_KEY -> KEY_EXCHANGED
//	     -> AWAITING_PROOF -> {VERIFIED | REJECTED | FAILED} -> CLOSED
//
// Every failure short-circuits to FAILED and then CLOSED. The channel is
// always disconnected and the notification subscription released before
// Run returns.
//
// # Errors
//
// Failures carry their kind: *ChannelError for connect, send and
// disconnect problems, *FrameTimeoutError when no terminator arrives in
// time (with the partial buffer attached), *MalformedFrameError for frames
// that do not decode, or the context error on cancellation. A proof that
// decodes but fails the check is not an error; it yields OutcomeRejected.
package handshake
