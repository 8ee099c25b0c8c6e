package discovery

import (
	"context"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// BrowseTimeout bounds FindByName when the context has no deadline.
	// Default: BrowseTimeout.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one interface. Empty means all.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// browseFunc streams service entries until ctx is done.
type browseFunc func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error

// Browser looks up bridges over mDNS.
type Browser struct {
	config BrowserConfig
	browse browseFunc
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	b := &Browser{config: config}
	b.browse = func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) error {
		return zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.clientOptions()...)
	}
	return b
}

// Browse streams bridges as they appear. Addresses from several
// interfaces are merged into one entry per instance; only the first sighting
// is emitted. The channel closes when ctx is done.
func (b *Browser) Browse(ctx context.Context) (<-chan *Bridge, error) {
	out := make(chan *Bridge)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		removedCh := removed

		bridges := make(map[string]*Bridge)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				br := entryToBridge(entry)
				if existing, found := bridges[br.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, br.Addresses)
					continue
				}
				bridges[br.InstanceName] = br
				emitted := *br
				emitted.Addresses = append([]string(nil), br.Addresses...)
				select {
				case out <- &emitted:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removedCh:
				if !ok {
					removedCh = nil
					continue
				}
				if existing, found := bridges[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(bridges, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = b.browse(ctx, entries, removed)
	}()

	return out, nil
}

// FindByName returns the first bridge whose device name contains name.
func (b *Browser) FindByName(ctx context.Context, name string) (*Bridge, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for {
		select {
		case br, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if MatchName(br.Name, name) {
				return br, nil
			}
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

func (b *Browser) clientOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// entryToBridge converts a zeroconf entry to a Bridge.
func entryToBridge(entry *zeroconf.ServiceEntry) *Bridge {
	txt := StringsToTXTRecords(entry.Text)

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	name := txt[TXTKeyName]
	if name == "" {
		name = entry.Instance
	}

	return &Bridge{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Name:         name,
		DeviceID:     txt[TXTKeyDeviceID],
		Protocol:     txt[TXTKeyProtocol],
	}
}

// mergeAddresses adds new addresses to existing, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the entry's addresses from addresses.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
