package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBatteryLevel records a device's reported battery percentage.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Call this only when the source actually reported a battery level,
// absence is "unknown" and must not be written as zero.
//
// Parameters:
//   - address: Device hardware address
//   - name: Device display name (tag for dashboard labelling)
//   - percent: Battery level 0-100
func (c *Client) WriteBatteryLevel(address, name string, percent int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"battery",
		map[string]string{
			"address": address,
			"name":    name,
		},
		map[string]interface{}{
			"percent": percent,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSignalStrength records a device's reported RSSI in dBm.
//
// Parameters:
//   - address: Device hardware address
//   - name: Device display name
//   - rssi: Signal strength in dBm (typically negative)
func (c *Client) WriteSignalStrength(address, name string, rssi int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"signal",
		map[string]string{
			"address": address,
			"name":    name,
		},
		map[string]interface{}{
			"rssi": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceCounts records the size of the known and discovered sets
// after a refresh or scan.
//
// Parameters:
//   - known: Number of paired devices
//   - connected: Number of currently connected devices
//   - discovered: Number of transient scan results
func (c *Client) WriteDeviceCounts(known, connected, discovered int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"devices",
		nil,
		map[string]interface{}{
			"known":      known,
			"connected":  connected,
			"discovered": discovered,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
