package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a prover bridge.
	ServiceType = "_zkble._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the default bridge port.
	DefaultPort = 7000

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// BrowseTimeout is the default time spent looking for a bridge.
	BrowseTimeout = 5 * time.Second

	// ProtocolRevision is advertised in the proto TXT record.
	ProtocolRevision = "1"
)

// TXT record keys.
const (
	TXTKeyName     = "name"
	TXTKeyDeviceID = "id"
	TXTKeyProtocol = "proto"
)

// Discovery errors.
var (
	ErrNotFound            = errors.New("bridge not found")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrEmptyName           = errors.New("empty device name")
)

// BridgeInfo is what a bridge advertises.
type BridgeInfo struct {
	// Name is the prover's device name.
	Name string

	// DeviceID is the identifier the verifier should send (optional).
	DeviceID string

	// Port is the TCP port (0 uses DefaultPort).
	Port uint16
}

// Bridge is a discovered prover bridge.
type Bridge struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	// Name is the advertised device name, falling back to the instance
	// name when the TXT record is missing.
	Name     string
	DeviceID string
	Protocol string
}

// Address returns host:port for dialing, preferring an IPv4 address.
func (b *Bridge) Address() string {
	host := b.Host
	for _, a := range b.Addresses {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			host = a
			break
		}
		if host == b.Host {
			host = a
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(int(b.Port)))
}
