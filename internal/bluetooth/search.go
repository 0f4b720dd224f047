package bluetooth

import "strings"

// Matches reports whether the device matches a free-text query.
//
// The query is lowercased and split on whitespace into terms; the device
// matches only if every term is a subsequence of either its name or its
// type, case-insensitively. Subsequence matching (characters appear in
// order, not necessarily contiguous) tolerates abbreviations: "bq"
// matches "Bose QC35". An empty or all-whitespace query matches every
// device, since strings.Fields discards empty terms.
func (d Device) Matches(query string) bool {
	return matchesFields(query, d.Name, d.DeviceType)
}

// Matches reports whether the discovered device matches a free-text query,
// using the same term rules as Device.Matches.
func (d DiscoveredDevice) Matches(query string) bool {
	return matchesFields(query, d.Name, d.DeviceType)
}

func matchesFields(query, name, deviceType string) bool {
	name = strings.ToLower(name)
	deviceType = strings.ToLower(deviceType)

	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !isSubsequence(term, name) && !isSubsequence(term, deviceType) {
			return false
		}
	}
	return true
}

// isSubsequence reports whether every character of term appears in target
// in order. Both inputs must already be lowercased.
func isSubsequence(term, target string) bool {
	if term == "" {
		return true
	}
	chars := []rune(term)
	i := 0
	for _, c := range target {
		if chars[i] == c {
			i++
			if i == len(chars) {
				return true
			}
		}
	}
	return false
}

// FilterDevices applies the display rules for a device list: an empty
// query returns the first maxDevices entries untruncated by matching; a
// non-empty query returns every matching device with no truncation.
// The input order is preserved.
func FilterDevices(devices []Device, query string, maxDevices int) []Device {
	if strings.TrimSpace(query) == "" {
		if maxDevices > 0 && len(devices) > maxDevices {
			return devices[:maxDevices]
		}
		return devices
	}

	matched := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.Matches(query) {
			matched = append(matched, d)
		}
	}
	return matched
}
