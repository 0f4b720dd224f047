package bluetooth

import (
	"context"
	"time"
)

// SnapshotSource produces the host's paired-device snapshot as raw bytes.
// The output shape is defined in normalize.go; the source itself is an
// opaque command and may fail or emit garbage.
type SnapshotSource interface {
	// PairedSnapshot returns the raw JSON snapshot of paired devices.
	PairedSnapshot(ctx context.Context) ([]byte, error)
}

// ScanSource runs a bounded discovery scan and returns the raw results.
type ScanSource interface {
	// Inquiry scans for nearby unpaired devices for the given duration
	// and returns the raw JSON array of discovered records.
	Inquiry(ctx context.Context, duration time.Duration) ([]byte, error)
}

// Commander issues device lifecycle commands to the external control tool.
// Success is inferred from exit status; no structured output is expected.
type Commander interface {
	Connect(ctx context.Context, address string) error
	Disconnect(ctx context.Context, address string) error
	Pair(ctx context.Context, address string) error
	Unpair(ctx context.Context, address string) error
}
