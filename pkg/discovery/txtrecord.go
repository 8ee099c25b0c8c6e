package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeBridgeTXT creates TXT records for a bridge.
func EncodeBridgeTXT(info *BridgeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyName:     info.Name,
		TXTKeyProtocol: ProtocolRevision,
	}
	if info.DeviceID != "" {
		txt[TXTKeyDeviceID] = info.DeviceID
	}
	return txt
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// InstanceName derives an mDNS instance name from a device name.
func InstanceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxInstanceNameLen {
		return "", fmt.Errorf("%w: %d > %d", ErrInstanceNameTooLong, len(name), MaxInstanceNameLen)
	}
	return name, nil
}

// MatchName reports whether a device name contains pattern,
// case-insensitively.
func MatchName(deviceName, pattern string) bool {
	if deviceName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(deviceName), strings.ToLower(pattern))
}
