package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(instance, host string, port int, ips []string, txt ...string) *zeroconf.ServiceEntry {
	e := new(zeroconf.ServiceEntry)
	e.Instance = instance
	e.HostName = host
	e.Port = port
	e.Text = txt
	for _, s := range ips {
		ip := net.ParseIP(s)
		if ip.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, ip)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, ip)
		}
	}
	return e
}

// fakeBrowser returns a Browser that replays entries and then blocks until
// the context is done.
func fakeBrowser(entries ...*zeroconf.ServiceEntry) *Browser {
	b := NewBrowser(BrowserConfig{BrowseTimeout: 200 * time.Millisecond})
	b.browse = func(ctx context.Context, out, _ chan *zeroconf.ServiceEntry) error {
		for _, e := range entries {
			select {
			case out <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
	return b
}

func TestTXTRecordsRoundTrip(t *testing.T) {
	txt := EncodeBridgeTXT(&BridgeInfo{Name: "ZKBLE-Prover", DeviceID: "10"})
	strs := TXTRecordsToStrings(txt)
	assert.Equal(t, []string{"id=10", "name=ZKBLE-Prover", "proto=1"}, strs)
	assert.Equal(t, txt, StringsToTXTRecords(strs))
}

func TestStringsToTXTRecordsFlag(t *testing.T) {
	txt := StringsToTXTRecords([]string{"flag", "k=v=w", ""})
	assert.Equal(t, TXTRecordMap{"flag": "", "k": "v=w"}, txt)
}

func TestInstanceName(t *testing.T) {
	name, err := InstanceName("  Prover  ")
	require.NoError(t, err)
	assert.Equal(t, "Prover", name)

	_, err = InstanceName(" ")
	assert.ErrorIs(t, err, ErrEmptyName)

	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = InstanceName(string(long))
	assert.ErrorIs(t, err, ErrInstanceNameTooLong)
}

func TestMatchName(t *testing.T) {
	assert.True(t, MatchName("ZKBLE-Prover", "prover"))
	assert.True(t, MatchName("ZKBLE-Prover", "ZKBLE"))
	assert.False(t, MatchName("ZKBLE-Prover", "other"))
	assert.False(t, MatchName("", "x"))
}

func TestBridgeAddress(t *testing.T) {
	b := &Bridge{Host: "prover.local.", Port: 7000, Addresses: []string{"fe80::1", "192.168.1.20"}}
	assert.Equal(t, "192.168.1.20:7000", b.Address())

	b = &Bridge{Host: "prover.local.", Port: 7000, Addresses: []string{"fe80::1"}}
	assert.Equal(t, "[fe80::1]:7000", b.Address())

	b = &Bridge{Host: "prover.local.", Port: 7000}
	assert.Equal(t, "prover.local.:7000", b.Address())
}

func TestEntryToBridge(t *testing.T) {
	e := newEntry("ZKBLE-Prover", "prover.local.", 7000, []string{"10.0.0.5", "fe80::5"}, "name=ZKBLE-Prover", "id=10", "proto=1")
	b := entryToBridge(e)

	assert.Equal(t, "ZKBLE-Prover", b.InstanceName)
	assert.Equal(t, "ZKBLE-Prover", b.Name)
	assert.Equal(t, "10", b.DeviceID)
	assert.Equal(t, "1", b.Protocol)
	assert.Equal(t, uint16(7000), b.Port)
	assert.Equal(t, []string{"10.0.0.5", "fe80::5"}, b.Addresses)

	// Missing name record falls back to the instance.
	b = entryToBridge(newEntry("Bare", "bare.local.", 1, nil))
	assert.Equal(t, "Bare", b.Name)
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	merged := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, merged)

	left := removeAddresses(merged, newEntry("x", "", 0, []string{"10.0.0.1"}))
	assert.Equal(t, []string{"10.0.0.2"}, left)
}

func TestFindByName(t *testing.T) {
	b := fakeBrowser(
		newEntry("Thermostat", "t.local.", 7001, []string{"10.0.0.7"}, "name=Thermostat"),
		newEntry("ZKBLE-Prover", "p.local.", 7000, []string{"10.0.0.5"}, "name=ZKBLE-Prover", "id=10"),
	)

	br, err := b.FindByName(context.Background(), "prover")
	require.NoError(t, err)
	assert.Equal(t, "ZKBLE-Prover", br.Name)
	assert.Equal(t, "10.0.0.5:7000", br.Address())
}

func TestFindByNameNotFound(t *testing.T) {
	b := fakeBrowser(newEntry("Thermostat", "t.local.", 7001, nil, "name=Thermostat"))

	start := time.Now()
	_, err := b.FindByName(context.Background(), "prover")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFindByNameEmpty(t *testing.T) {
	_, err := fakeBrowser().FindByName(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestBrowseMergesDuplicates(t *testing.T) {
	b := fakeBrowser(
		newEntry("ZKBLE-Prover", "p.local.", 7000, []string{"10.0.0.5"}, "name=ZKBLE-Prover"),
		newEntry("ZKBLE-Prover", "p.local.", 7000, []string{"fe80::5"}, "name=ZKBLE-Prover"),
		newEntry("Other", "o.local.", 7000, []string{"10.0.0.6"}, "name=Other"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	results, err := b.Browse(ctx)
	require.NoError(t, err)

	var names []string
	for br := range results {
		names = append(names, br.InstanceName)
	}
	assert.Equal(t, []string{"ZKBLE-Prover", "Other"}, names)
}

func TestAdvertiserRejectsEmptyName(t *testing.T) {
	a := NewAdvertiser(AdvertiserConfig{})
	err := a.Advertise(&BridgeInfo{Name: ""})
	assert.ErrorIs(t, err, ErrEmptyName)
	a.Stop()
}
