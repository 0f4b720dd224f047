package bluetooth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reconciler owns the canonical known-device set and the transient
// discovered-device set. It is the only component that mutates either;
// the Controller triggers refreshes and lets the Reconciler recompute.
//
// All public methods are thread-safe. Returned devices are deep copies.
type Reconciler struct {
	source  SnapshotSource
	scanner ScanSource
	scanDur time.Duration

	mu         sync.RWMutex
	known      []Device           // Canonical sorted set
	byAddress  map[string]*Device // Index into known
	discovered []DiscoveredDevice
	scanning   bool
	applied    uint64 // Generation of the snapshot currently held

	nextGen atomic.Uint64

	events  *Broadcaster
	history HistoryRepository
	logger  Logger
}

// NewReconciler creates a reconciler over the given sources.
// scanDuration bounds each discovery scan.
func NewReconciler(source SnapshotSource, scanner ScanSource, scanDuration time.Duration) *Reconciler {
	return &Reconciler{
		source:    source,
		scanner:   scanner,
		scanDur:   scanDuration,
		byAddress: make(map[string]*Device),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	r.logger = logger
}

// SetEvents sets the broadcaster used for change notifications.
func (r *Reconciler) SetEvents(events *Broadcaster) {
	r.events = events
}

// SetHistory sets the repository used to record connection transitions.
func (r *Reconciler) SetHistory(history HistoryRepository) {
	r.history = history
}

// Refresh fetches the paired-device snapshot, normalizes it and atomically
// replaces the known-device set.
//
// If the source fails or its output cannot be decoded, the previous good
// set is retained and the error is returned. Overlapping refreshes are
// resolved last-write-wins: a refresh that started before a newer one
// already completed discards its result instead of overwriting.
func (r *Reconciler) Refresh(ctx context.Context) error {
	gen := r.nextGen.Add(1)

	data, err := r.source.PairedSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching paired snapshot: %w", err)
	}

	snap, err := ParseSnapshot(data, time.Now())
	if err != nil {
		return err
	}
	if snap.Dropped > 0 {
		r.logger.Warn("dropped malformed device records", "count", snap.Dropped)
	}

	r.mu.Lock()
	if gen < r.applied {
		r.mu.Unlock()
		r.logger.Debug("discarding stale refresh result", "generation", gen)
		return nil
	}

	transitions := connectionTransitions(r.byAddress, snap.Devices)

	r.known = snap.Devices
	r.byAddress = make(map[string]*Device, len(snap.Devices))
	for i := range r.known {
		r.byAddress[r.known[i].Address] = &r.known[i]
	}
	r.applied = gen
	r.mu.Unlock()

	r.logger.Debug("known devices refreshed", "count", len(snap.Devices), "generation", gen)
	r.recordTransitions(ctx, transitions)

	if r.events != nil {
		r.events.Publish(Event{Type: EventDevicesRefreshed, Devices: r.KnownDevices()})
		for _, t := range transitions {
			dev := t.device
			r.events.Publish(Event{Type: t.event, Device: &dev})
		}
	}
	return nil
}

// Scan runs one bounded discovery scan and replaces the discovered set.
//
// Only one scan may be in flight; a concurrent request returns
// ErrScanInProgress without invoking the scan source. Addresses already
// present in the known set at scan start are filtered out. On scan
// failure the previous discovered set is left untouched.
func (r *Reconciler) Scan(ctx context.Context) ([]DiscoveredDevice, error) {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return nil, ErrScanInProgress
	}
	r.scanning = true
	known := make(map[string]bool, len(r.byAddress))
	for addr := range r.byAddress {
		known[addr] = true
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.scanning = false
		r.mu.Unlock()
	}()

	if r.events != nil {
		r.events.Publish(Event{Type: EventScanStarted})
	}

	data, err := r.scanner.Inquiry(ctx, r.scanDur)
	if err != nil {
		return nil, fmt.Errorf("running discovery scan: %w", err)
	}

	results, dropped, err := ParseScanResults(data)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		r.logger.Warn("dropped malformed scan records", "count", dropped)
	}

	// Exclude paired devices and de-duplicate by address.
	seen := make(map[string]bool, len(results))
	filtered := make([]DiscoveredDevice, 0, len(results))
	for _, d := range results {
		if known[d.Address] || seen[d.Address] {
			continue
		}
		seen[d.Address] = true
		filtered = append(filtered, d)
	}

	r.mu.Lock()
	r.discovered = filtered
	r.mu.Unlock()

	r.logger.Info("discovery scan completed", "found", len(filtered))
	if r.events != nil {
		r.events.Publish(Event{Type: EventScanCompleted, Discovered: r.DiscoveredDevices()})
	}
	return r.DiscoveredDevices(), nil
}

// DropDiscovered removes one entry from the discovered set.
// Used after a successful pairing promotes the device to the known set.
func (r *Reconciler) DropDiscovered(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.discovered {
		if d.Address == address {
			r.discovered = append(r.discovered[:i], r.discovered[i+1:]...)
			return
		}
	}
}

// KnownDevices returns the canonical sorted device list.
// The returned devices are deep copies; callers can safely modify them.
func (r *Reconciler) KnownDevices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.known))
	for i := range r.known {
		devices = append(devices, *r.known[i].DeepCopy())
	}
	return devices
}

// DiscoveredDevices returns the current discovered set.
// The returned devices are deep copies; callers can safely modify them.
func (r *Reconciler) DiscoveredDevices() []DiscoveredDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]DiscoveredDevice, 0, len(r.discovered))
	for i := range r.discovered {
		devices = append(devices, *r.discovered[i].DeepCopy())
	}
	return devices
}

// Device retrieves a known device by address.
// Returns ErrDeviceNotFound if the address is not in the known set.
func (r *Reconciler) Device(address string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.byAddress[address]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

// Discovered retrieves a discovered device by address.
// Returns ErrDeviceNotFound if the address is not in the discovered set.
func (r *Reconciler) Discovered(address string) (*DiscoveredDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.discovered {
		if r.discovered[i].Address == address {
			return r.discovered[i].DeepCopy(), nil
		}
	}
	return nil, ErrDeviceNotFound
}

// Scanning reports whether a discovery scan is currently in flight.
func (r *Reconciler) Scanning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scanning
}

// DeviceCount returns the number of known devices.
func (r *Reconciler) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.known)
}

// transition captures one connection state change between refreshes.
type transition struct {
	device Device
	event  EventType
}

// connectionTransitions diffs the previous known set against the incoming
// one and returns connect/disconnect transitions. New devices that arrive
// already connected count as connects; devices that vanish entirely do not
// produce a transition (forget is recorded by the Controller).
func connectionTransitions(previous map[string]*Device, incoming []Device) []transition {
	var transitions []transition
	for i := range incoming {
		next := incoming[i]
		prev, existed := previous[next.Address]
		switch {
		case !existed && next.Connected:
			transitions = append(transitions, transition{device: next, event: EventDeviceConnected})
		case existed && prev.Connected != next.Connected:
			ev := EventDeviceDisconnected
			if next.Connected {
				ev = EventDeviceConnected
			}
			transitions = append(transitions, transition{device: next, event: ev})
		}
	}
	return transitions
}

// recordTransitions persists connect/disconnect transitions to history.
// History failures are logged, never surfaced: the refresh itself succeeded.
func (r *Reconciler) recordTransitions(ctx context.Context, transitions []transition) {
	if r.history == nil {
		return
	}
	for _, t := range transitions {
		event := HistoryEventConnected
		if t.event == EventDeviceDisconnected {
			event = HistoryEventDisconnected
		}
		if err := r.history.Record(ctx, t.device.Address, t.device.Name, event); err != nil {
			r.logger.Warn("recording connection history failed",
				"address", t.device.Address, "error", err)
		}
	}
}
