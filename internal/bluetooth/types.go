package bluetooth

import (
	"sort"
	"strings"
	"time"
)

// DiscoveredDeviceType is the placeholder classification assigned to devices
// found by a discovery scan before they are paired.
const DiscoveredDeviceType = "New Device"

// Device represents a known (paired) Bluetooth device.
//
// Devices are recreated from fresh source data on every refresh rather than
// mutated in place. Optional fields are pointers: absence means the source
// did not report the value, never that it is zero.
type Device struct {
	// Identity
	Address string `json:"address"`
	Name    string `json:"name"`

	// Connection state from the latest successful refresh.
	Connected       bool       `json:"connected"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`

	// Classification from the source (e.g. Headphones, Keyboard).
	DeviceType string `json:"device_type,omitempty"`

	// Optional descriptive attributes.
	BatteryLevel    *int    `json:"battery_level,omitempty"`
	SignalStrength  *int    `json:"signal_strength,omitempty"`
	VendorID        *string `json:"vendor_id,omitempty"`
	ProductID       *string `json:"product_id,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`
}

// DeepCopy creates an independent copy of the Device.
// Pointer fields are cloned so modifications to the copy do not affect
// the original. This is essential for snapshot isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.LastConnectedAt = copyTimePtr(d.LastConnectedAt)
	cpy.BatteryLevel = copyIntPtr(d.BatteryLevel)
	cpy.SignalStrength = copyIntPtr(d.SignalStrength)
	cpy.VendorID = copyStringPtr(d.VendorID)
	cpy.ProductID = copyStringPtr(d.ProductID)
	cpy.FirmwareVersion = copyStringPtr(d.FirmwareVersion)

	return &cpy
}

// DiscoveredDevice is a transient record for a device found by an active
// scan. It is never merged into the known set automatically; promotion
// happens only through an explicit pairing action.
type DiscoveredDevice struct {
	Address        string `json:"address"`
	Name           string `json:"name"`
	DeviceType     string `json:"device_type"`
	SignalStrength *int   `json:"signal_strength,omitempty"`
}

// DeepCopy creates an independent copy of the DiscoveredDevice.
func (d *DiscoveredDevice) DeepCopy() *DiscoveredDevice {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.SignalStrength = copyIntPtr(d.SignalStrength)
	return &cpy
}

// SortDevices orders devices in place: connected before disconnected,
// then case-insensitive lexicographic order by name within each group.
// The sort is stable so repeated refreshes with identical input yield
// identical order.
func SortDevices(devices []Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Connected != devices[j].Connected {
			return devices[i].Connected
		}
		return strings.ToLower(devices[i].Name) < strings.ToLower(devices[j].Name)
	})
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cpy := *v
	return &cpy
}

func copyStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cpy := *v
	return &cpy
}

func copyTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cpy := *v
	return &cpy
}
