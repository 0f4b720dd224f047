package bluetooth

import (
	"context"
	"time"
)

// Connection history event values.
const (
	HistoryEventConnected    = "connected"
	HistoryEventDisconnected = "disconnected"
	HistoryEventPaired       = "paired"
	HistoryEventForgotten    = "forgotten"
)

// HistoryEntry represents a single recorded lifecycle event for a device.
//
// The canonical device set is re-derived on every refresh and keeps no
// past state, so history rows are the only durable record of when a
// device connected, disconnected, paired or was forgotten.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// Address is the device's hardware address.
	Address string `json:"address"`

	// Name is the device's display name at the time of the event.
	Name string `json:"name"`

	// Event is one of the HistoryEvent* values.
	Event string `json:"event"`

	// CreatedAt is the timestamp of the event (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves device lifecycle history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// Record persists one lifecycle event for a device.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - address: Device hardware address
	//   - name: Device display name (may be empty)
	//   - event: One of the HistoryEvent* values
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, address, name, event string) error

	// History returns recent lifecycle events for the device.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - address: Device hardware address
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []HistoryEntry: Ordered newest-first history entries (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	History(ctx context.Context, address string, limit int) ([]HistoryEntry, error)
}
