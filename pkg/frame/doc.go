// Package frame reassembles delimiter-terminated frames from chunked
// notification streams.
//
// A prover answers each verifier command with a single text frame ending in
// a terminator byte (';'). The underlying channel delivers that frame in
// arbitrarily sized chunks on its own goroutine. The Reassembler buffers the
// chunks in arrival order and signals waiters whenever new data arrives, so
// the handshake can block on a complete frame with a deadline instead of
// sleeping for a fixed delay.
//
// Usage:
//
//	r := frame.NewReassembler()
//	cancel := ch.OnNotification(r.Feed)
//	defer cancel()
//
//	ctx, done := context.WithTimeout(ctx, 5*time.Second)
//	defer done()
//	f, err := r.Wait(ctx, ';')
package frame
