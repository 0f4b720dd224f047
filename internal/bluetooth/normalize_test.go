package bluetooth

import (
	"errors"
	"testing"
	"time"
)

func TestParseSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	data := []byte(`{
		"device_connected": [
			{"Bose QC35": {"device_address": "AA:BB", "device_minorType": "Headphones", "device_batteryLevelMain": "75%"}}
		],
		"device_not_connected": [
			{"Keyboard": {"device_address": "CC:DD"}}
		]
	}`)

	snap, err := ParseSnapshot(data, now)
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	if snap.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", snap.Dropped)
	}
	if len(snap.Devices) != 2 {
		t.Fatalf("devices length = %d, want 2", len(snap.Devices))
	}

	// Connected devices sort before disconnected.
	bose := snap.Devices[0]
	if bose.Name != "Bose QC35" || bose.Address != "AA:BB" {
		t.Errorf("devices[0] = %q/%q, want Bose QC35/AA:BB", bose.Name, bose.Address)
	}
	if !bose.Connected {
		t.Error("Bose QC35 Connected = false, want true")
	}
	if bose.DeviceType != "Headphones" {
		t.Errorf("DeviceType = %q, want Headphones", bose.DeviceType)
	}
	if bose.BatteryLevel == nil || *bose.BatteryLevel != 75 {
		t.Errorf("BatteryLevel = %v, want 75", bose.BatteryLevel)
	}
	if bose.LastConnectedAt == nil || !bose.LastConnectedAt.Equal(now) {
		t.Errorf("LastConnectedAt = %v, want %v", bose.LastConnectedAt, now)
	}

	keyboard := snap.Devices[1]
	if keyboard.Name != "Keyboard" || keyboard.Connected {
		t.Errorf("devices[1] = %q connected=%v, want Keyboard disconnected", keyboard.Name, keyboard.Connected)
	}
	if keyboard.LastConnectedAt != nil {
		t.Error("disconnected device has LastConnectedAt, want absent")
	}
	if keyboard.BatteryLevel != nil {
		t.Error("missing battery level mapped to a value, want absent")
	}
}

func TestParseSnapshot_MalformedRecordDropped(t *testing.T) {
	data := []byte(`{
		"device_connected": [
			{"No Address": {"device_minorType": "Speaker"}}
		],
		"device_not_connected": [
			{"Keyboard": {"device_address": "CC:DD"}}
		]
	}`)

	snap, err := ParseSnapshot(data, time.Now())
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	if snap.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", snap.Dropped)
	}
	if len(snap.Devices) != 1 || snap.Devices[0].Name != "Keyboard" {
		t.Fatalf("devices = %v, want only Keyboard", snap.Devices)
	}
}

func TestParseSnapshot_Unparsable(t *testing.T) {
	_, err := ParseSnapshot([]byte("not json at all"), time.Now())
	if !errors.Is(err, ErrSourceUnparsable) {
		t.Fatalf("error = %v, want ErrSourceUnparsable", err)
	}
}

func TestParseSnapshot_FlexibleFields(t *testing.T) {
	data := []byte(`{
		"device_connected": [
			{"Buds": {
				"device_address": "AA:01",
				"device_batteryLevelMain": 60,
				"device_rssi": "-55 dBm",
				"device_vendorID": 1452,
				"device_productID": "0x2002",
				"device_firmwareVersion": "6B34"
			}}
		],
		"device_not_connected": []
	}`)

	snap, err := ParseSnapshot(data, time.Now())
	if err != nil {
		t.Fatalf("ParseSnapshot() error = %v", err)
	}
	if len(snap.Devices) != 1 {
		t.Fatalf("devices length = %d, want 1", len(snap.Devices))
	}

	d := snap.Devices[0]
	if d.BatteryLevel == nil || *d.BatteryLevel != 60 {
		t.Errorf("BatteryLevel = %v, want 60 (numeric form)", d.BatteryLevel)
	}
	if d.SignalStrength == nil || *d.SignalStrength != -55 {
		t.Errorf("SignalStrength = %v, want -55 (unit-suffixed form)", d.SignalStrength)
	}
	if d.VendorID == nil || *d.VendorID != "1452" {
		t.Errorf("VendorID = %v, want 1452", d.VendorID)
	}
	if d.ProductID == nil || *d.ProductID != "0x2002" {
		t.Errorf("ProductID = %v, want 0x2002", d.ProductID)
	}
	if d.FirmwareVersion == nil || *d.FirmwareVersion != "6B34" {
		t.Errorf("FirmwareVersion = %v, want 6B34", d.FirmwareVersion)
	}
}

func TestParseScanResults(t *testing.T) {
	data := []byte(`[
		{"address": "11:22", "name": "Nearby Speaker", "rssi": -40},
		{"address": "33:44"},
		{"name": "ghost without address"}
	]`)

	devices, dropped, err := ParseScanResults(data)
	if err != nil {
		t.Fatalf("ParseScanResults() error = %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(devices) != 2 {
		t.Fatalf("devices length = %d, want 2", len(devices))
	}

	if devices[0].Name != "Nearby Speaker" {
		t.Errorf("devices[0].Name = %q, want Nearby Speaker", devices[0].Name)
	}
	if devices[0].SignalStrength == nil || *devices[0].SignalStrength != -40 {
		t.Errorf("SignalStrength = %v, want -40", devices[0].SignalStrength)
	}
	if devices[0].DeviceType != DiscoveredDeviceType {
		t.Errorf("DeviceType = %q, want %q", devices[0].DeviceType, DiscoveredDeviceType)
	}

	// Nameless records fall back to the address for display.
	if devices[1].Name != "33:44" {
		t.Errorf("devices[1].Name = %q, want 33:44", devices[1].Name)
	}
}

func TestParseScanResults_Unparsable(t *testing.T) {
	_, _, err := ParseScanResults([]byte(`{"not": "an array"}`))
	if !errors.Is(err, ErrSourceUnparsable) {
		t.Fatalf("error = %v, want ErrSourceUnparsable", err)
	}
}

func TestSortDevices(t *testing.T) {
	devices := []Device{
		{Address: "1", Name: "zebra", Connected: false},
		{Address: "2", Name: "Alpha", Connected: false},
		{Address: "3", Name: "beta", Connected: true},
		{Address: "4", Name: "Zulu", Connected: true},
	}

	SortDevices(devices)

	wantOrder := []string{"beta", "Zulu", "Alpha", "zebra"}
	for i, want := range wantOrder {
		if devices[i].Name != want {
			t.Errorf("devices[%d].Name = %q, want %q", i, devices[i].Name, want)
		}
	}
}

func TestDeviceDeepCopy(t *testing.T) {
	battery := 80
	original := &Device{
		Address:      "AA:BB",
		Name:         "Buds",
		BatteryLevel: &battery,
	}

	cpy := original.DeepCopy()
	*cpy.BatteryLevel = 10
	cpy.Name = "Changed"

	if *original.BatteryLevel != 80 {
		t.Errorf("original BatteryLevel = %d, want 80", *original.BatteryLevel)
	}
	if original.Name != "Buds" {
		t.Errorf("original Name = %q, want Buds", original.Name)
	}
}
