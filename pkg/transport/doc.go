// Package transport provides the channel abstraction the verifier talks to
// a prover through.
//
// A prover is reached over a narrow, notification-based link: the verifier
// writes short commands and the prover answers with text frames that arrive
// as one or more notifications, in order, with no framing of their own. The
// Channel interface captures exactly that:
//
//   - Send writes one command
//   - OnNotification subscribes to inbound chunks
//   - Disconnect tears the link down
//
// # Implementations
//
// StreamChannel adapts any net.Conn (a TCP bridge to a BLE UART module, a
// serial-over-TCP adapter, or net.Pipe in tests) into a Channel. Each read
// from the stream is delivered as one notification, limited to the
// configured chunk size to mirror the radio MTU.
//
// TCPDialer connects StreamChannels by address.
package transport
