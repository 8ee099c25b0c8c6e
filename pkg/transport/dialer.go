package transport

import (
	"context"
	"fmt"
	"net"
)

// TCPDialer connects to a prover bridge over TCP.
type TCPDialer struct {
	// Config is applied to every channel.
	Config StreamConfig

	// Network defaults to "tcp".
	Network string
}

// NewTCPDialer creates a dialer with the default stream configuration.
func NewTCPDialer() *TCPDialer {
	return &TCPDialer{Config: DefaultStreamConfig()}
}

// Dial connects to address. The context bounds connection establishment
// only.
func (d *TCPDialer) Dial(ctx context.Context, address string) (Channel, error) {
	network := d.Network
	if network == "" {
		network = "tcp"
	}

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewStreamChannel(conn, d.Config), nil
}
