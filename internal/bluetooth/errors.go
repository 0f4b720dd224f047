package bluetooth

import "errors"

// Domain errors for the bluetooth package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, bluetooth.ErrScanInProgress) {
//	    // handle concurrent scan case
//	}
var (
	// ErrToolUnavailable is returned when the control tool binary cannot be
	// found on the host. This is fatal at startup; no device fetch is
	// attempted until it is resolved externally.
	ErrToolUnavailable = errors.New("bluetooth: control tool unavailable")

	// ErrSourceUnparsable is returned when a source command produces output
	// that cannot be decoded. The previous good snapshot is retained.
	ErrSourceUnparsable = errors.New("bluetooth: source output unparsable")

	// ErrMalformedRecord is returned when a single device record is missing
	// required fields. The record is dropped; the batch continues.
	ErrMalformedRecord = errors.New("bluetooth: malformed record")

	// ErrCommandFailed is returned when a control command exits non-zero.
	ErrCommandFailed = errors.New("bluetooth: command failed")

	// ErrScanInProgress is returned when a discovery scan is requested while
	// another scan is still running.
	ErrScanInProgress = errors.New("bluetooth: scan already in progress")

	// ErrDeviceNotFound is returned when an address is not in the known set.
	ErrDeviceNotFound = errors.New("bluetooth: device not found")

	// ErrConfirmationRequired is returned when forget is called without an
	// explicit confirmation signal from the caller.
	ErrConfirmationRequired = errors.New("bluetooth: confirmation required")
)
