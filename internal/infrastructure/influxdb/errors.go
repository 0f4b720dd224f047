package influxdb

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the config has the
	// integration switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
