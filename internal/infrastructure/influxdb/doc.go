// Package influxdb provides InfluxDB connectivity for eblu.
//
// It wraps the official influxdb-client-go v2 library with eblu-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series telemetry for Bluetooth devices:
//   - Battery levels reported by the paired-device snapshot
//   - Signal strength (RSSI) observations
//   - Known/connected/discovered device counts over time
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "eblu",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write device telemetry
//	client.WriteBatteryLevel("aa:bb:cc:dd:ee:ff", "Bose QC35", 75)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead when many devices report telemetry.
package influxdb
