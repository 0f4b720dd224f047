package bluetooth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Snapshot is the normalized result of one paired-device fetch.
type Snapshot struct {
	// Devices holds every normalized device, connected and disconnected.
	Devices []Device

	// Dropped counts records rejected during normalization.
	Dropped int
}

// rawSnapshot mirrors the paired-snapshot source's JSON document. Each
// array entry is a single-entry map keyed by the device's display name.
type rawSnapshot struct {
	Connected    []map[string]rawAttributes `json:"device_connected"`
	NotConnected []map[string]rawAttributes `json:"device_not_connected"`
}

// rawAttributes carries the per-device metadata from the snapshot source.
// Numeric-ish fields arrive as strings or numbers depending on the source
// version, so they are decoded leniently.
type rawAttributes struct {
	Address         string       `json:"device_address"`
	MinorType       string       `json:"device_minorType"`
	BatteryLevel    flexibleInt  `json:"device_batteryLevelMain"`
	RSSI            flexibleInt  `json:"device_rssi"`
	VendorID        flexibleText `json:"device_vendorID"`
	ProductID       flexibleText `json:"device_productID"`
	FirmwareVersion flexibleText `json:"device_firmwareVersion"`
}

// rawScanRecord mirrors one entry of the discovery-scan source's JSON array.
type rawScanRecord struct {
	Address string      `json:"address"`
	Name    string      `json:"name"`
	RSSI    flexibleInt `json:"rssi"`
}

// ParseSnapshot decodes and normalizes a paired-device snapshot.
//
// Malformed individual records (missing address) are dropped and counted;
// they never abort the batch. An undecodable document returns an error
// wrapping ErrSourceUnparsable and no snapshot.
//
// The connected flag and LastConnectedAt are derived purely from which
// group the record appeared in. LastConnectedAt is set to now for
// connected devices and absent otherwise; it is re-derived on every
// refresh, not accumulated.
func ParseSnapshot(data []byte, now time.Time) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding paired snapshot: %v", ErrSourceUnparsable, err)
	}

	snap := &Snapshot{
		Devices: make([]Device, 0, len(raw.Connected)+len(raw.NotConnected)),
	}

	// Connected group first so a duplicated address keeps its connected entry.
	seen := make(map[string]bool, cap(snap.Devices))
	for _, record := range raw.Connected {
		for name, attrs := range record {
			dev, err := normalizeRecord(name, attrs, true, now)
			if err != nil {
				snap.Dropped++
				continue
			}
			if seen[dev.Address] {
				snap.Dropped++
				continue
			}
			seen[dev.Address] = true
			snap.Devices = append(snap.Devices, dev)
		}
	}
	for _, record := range raw.NotConnected {
		for name, attrs := range record {
			dev, err := normalizeRecord(name, attrs, false, now)
			if err != nil {
				snap.Dropped++
				continue
			}
			if seen[dev.Address] {
				snap.Dropped++
				continue
			}
			seen[dev.Address] = true
			snap.Devices = append(snap.Devices, dev)
		}
	}

	SortDevices(snap.Devices)
	return snap, nil
}

// ParseScanResults decodes and normalizes discovery-scan output.
// Records without an address are dropped and counted.
func ParseScanResults(data []byte) ([]DiscoveredDevice, int, error) {
	var raw []rawScanRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: decoding scan results: %v", ErrSourceUnparsable, err)
	}

	devices := make([]DiscoveredDevice, 0, len(raw))
	dropped := 0
	for _, record := range raw {
		dev, err := normalizeScanRecord(record)
		if err != nil {
			dropped++
			continue
		}
		devices = append(devices, dev)
	}
	return devices, dropped, nil
}

// normalizeRecord converts one named snapshot entry into a Device.
// Returns an error wrapping ErrMalformedRecord when the address is missing.
func normalizeRecord(name string, attrs rawAttributes, connected bool, now time.Time) (Device, error) {
	address := strings.TrimSpace(attrs.Address)
	if address == "" {
		return Device{}, fmt.Errorf("%w: record %q has no address", ErrMalformedRecord, name)
	}

	dev := Device{
		Address:         address,
		Name:            name,
		Connected:       connected,
		DeviceType:      attrs.MinorType,
		BatteryLevel:    attrs.BatteryLevel.value,
		SignalStrength:  attrs.RSSI.value,
		VendorID:        attrs.VendorID.value,
		ProductID:       attrs.ProductID.value,
		FirmwareVersion: attrs.FirmwareVersion.value,
	}
	if connected {
		ts := now.UTC()
		dev.LastConnectedAt = &ts
	}
	return dev, nil
}

// normalizeScanRecord converts one scan entry into a DiscoveredDevice.
func normalizeScanRecord(record rawScanRecord) (DiscoveredDevice, error) {
	address := strings.TrimSpace(record.Address)
	if address == "" {
		return DiscoveredDevice{}, fmt.Errorf("%w: scan record has no address", ErrMalformedRecord)
	}

	name := record.Name
	if name == "" {
		name = address
	}
	return DiscoveredDevice{
		Address:        address,
		Name:           name,
		DeviceType:     DiscoveredDeviceType,
		SignalStrength: record.RSSI.value,
	}, nil
}

// flexibleInt decodes an integer that may arrive as a JSON number, a bare
// numeric string, or a string with a trailing unit ("75%", "-55 dBm").
// Undecodable values map to absent rather than failing the record.
type flexibleInt struct {
	value *int
}

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		v := int(num)
		f.value = &v
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	if v, err := strconv.Atoi(s); err == nil {
		f.value = &v
	}
	return nil
}

// flexibleText decodes a string that may arrive as a JSON string or number.
// Empty values map to absent.
type flexibleText struct {
	value *string
}

func (f *flexibleText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return nil
		}
		s = num.String()
	}
	if s == "" {
		return nil
	}
	f.value = &s
	return nil
}
