package transport

import "context"

// Channel is a connected, notification-based link to a prover.
// Implemented by StreamChannel.
type Channel interface {
	// Send writes one command to the prover.
	Send(data []byte) error

	// OnNotification registers fn for inbound chunks. Chunks are delivered
	// in arrival order from a single goroutine. The returned function
	// removes the subscription.
	OnNotification(fn func(chunk []byte)) (cancel func())

	// Disconnect closes the link. It is safe to call more than once.
	Disconnect() error
}

// Dialer connects to a prover by address.
// Implemented by TCPDialer.
type Dialer interface {
	Dial(ctx context.Context, address string) (Channel, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Channel = (*StreamChannel)(nil)
	_ Dialer  = (*TCPDialer)(nil)
)
