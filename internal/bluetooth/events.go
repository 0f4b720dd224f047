package bluetooth

import "sync"

// EventType identifies a device state change notification.
type EventType string

// Event types published by the Reconciler and Controller.
const (
	EventDevicesRefreshed   EventType = "devices.refreshed"
	EventDeviceConnected    EventType = "device.connected"
	EventDeviceDisconnected EventType = "device.disconnected"
	EventDevicePaired       EventType = "device.paired"
	EventDeviceForgotten    EventType = "device.forgotten"
	EventScanStarted        EventType = "scan.started"
	EventScanCompleted      EventType = "scan.completed"
)

// Event is a state change notification for subscribers (WebSocket hub,
// MQTT presence publisher, telemetry writer).
type Event struct {
	Type EventType `json:"type"`

	// Device is set for per-device events.
	Device *Device `json:"device,omitempty"`

	// Devices is set for EventDevicesRefreshed.
	Devices []Device `json:"devices,omitempty"`

	// Discovered is set for EventScanCompleted.
	Discovered []DiscoveredDevice `json:"discovered,omitempty"`
}

// Listener receives published events. Listeners are invoked synchronously
// on the publishing goroutine and must not block.
type Listener func(Event)

// Broadcaster fans events out to registered listeners.
// It is safe for concurrent use.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a listener for all future events.
func (b *Broadcaster) Subscribe(fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Publish delivers the event to every registered listener.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
