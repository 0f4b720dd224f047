package bluetooth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LifecycleState classifies where a device sits in its pairing lifecycle.
type LifecycleState string

const (
	// StateUnknown: discovered but not paired.
	StateUnknown LifecycleState = "unknown"
	// StatePairing: pair command in flight.
	StatePairing LifecycleState = "pairing"
	// StatePairedDisconnected: in the known set, not connected.
	StatePairedDisconnected LifecycleState = "paired_disconnected"
	// StatePairedConnected: in the known set and connected.
	StatePairedConnected LifecycleState = "paired_connected"
	// StateForgetting: unpair command in flight.
	StateForgetting LifecycleState = "forgetting"
)

// Controller drives device lifecycle transitions through the external
// control tool and re-synchronizes the canonical state afterwards.
//
// The controller never mutates the known or discovered sets directly.
// The only source of truth for connection state is the external tool's
// effect on the OS, so every mutating action is followed by a re-read of
// the paired snapshot rather than a permanent local flag flip. Connect
// and disconnect schedule a short delayed resync to let the external
// system settle; pair and forget refresh immediately on success.
type Controller struct {
	commander  Commander
	reconciler *Reconciler
	resyncWait time.Duration

	mu          sync.Mutex
	resyncTimer *time.Timer
	pending     map[string]LifecycleState // In-flight pair/forget by address

	events  *Broadcaster
	history HistoryRepository
	logger  Logger
}

// NewController creates a lifecycle controller.
// resyncWait is the settle delay before the post-command refresh.
func NewController(commander Commander, reconciler *Reconciler, resyncWait time.Duration) *Controller {
	return &Controller{
		commander:  commander,
		reconciler: reconciler,
		resyncWait: resyncWait,
		pending:    make(map[string]LifecycleState),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetEvents sets the broadcaster used for change notifications.
func (c *Controller) SetEvents(events *Broadcaster) {
	c.events = events
}

// SetHistory sets the repository used to record pair/forget events.
func (c *Controller) SetHistory(history HistoryRepository) {
	c.history = history
}

// Connect issues a connect command for a known device, then schedules a
// delayed resync. The resync runs even when the command fails, since the
// external system may have partially acted.
func (c *Controller) Connect(ctx context.Context, address string) error {
	if _, err := c.reconciler.Device(address); err != nil {
		return err
	}

	err := c.commander.Connect(ctx, address)
	c.scheduleResync()
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ErrCommandFailed, address, err)
	}

	c.logger.Info("connect issued", "address", address)
	return nil
}

// Disconnect issues a disconnect command for a known device, then
// schedules a delayed resync.
func (c *Controller) Disconnect(ctx context.Context, address string) error {
	if _, err := c.reconciler.Device(address); err != nil {
		return err
	}

	err := c.commander.Disconnect(ctx, address)
	c.scheduleResync()
	if err != nil {
		return fmt.Errorf("%w: disconnect %s: %v", ErrCommandFailed, address, err)
	}

	c.logger.Info("disconnect issued", "address", address)
	return nil
}

// Toggle connects a disconnected device or disconnects a connected one.
// Returns ErrDeviceNotFound if the address is not in the known set.
func (c *Controller) Toggle(ctx context.Context, address string) error {
	dev, err := c.reconciler.Device(address)
	if err != nil {
		return err
	}
	if dev.Connected {
		return c.Disconnect(ctx, address)
	}
	return c.Connect(ctx, address)
}

// Pair issues a pair command for a discovered device. On success the
// known set is refreshed immediately and the address is dropped from the
// discovered set. On failure the discovered entry remains and the device
// stays unknown.
func (c *Controller) Pair(ctx context.Context, address string) error {
	dev, err := c.reconciler.Discovered(address)
	if err != nil {
		return err
	}

	c.setPending(address, StatePairing)
	defer c.clearPending(address)

	if err := c.commander.Pair(ctx, address); err != nil {
		return fmt.Errorf("%w: pair %s: %v", ErrCommandFailed, address, err)
	}

	c.reconciler.DropDiscovered(address)
	if err := c.reconciler.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after pair failed", "address", address, "error", err)
	}

	c.record(ctx, address, dev.Name, HistoryEventPaired)
	c.logger.Info("device paired", "address", address, "name", dev.Name)
	if c.events != nil {
		if known, err := c.reconciler.Device(address); err == nil {
			c.events.Publish(Event{Type: EventDevicePaired, Device: known})
		}
	}
	return nil
}

// Forget unpairs a known device. The caller must supply an explicit
// confirmation signal; without it the command is never issued and
// ErrConfirmationRequired is returned. On success the known set is
// refreshed immediately; on failure the device remains in its prior state.
func (c *Controller) Forget(ctx context.Context, address string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	dev, err := c.reconciler.Device(address)
	if err != nil {
		return err
	}

	c.setPending(address, StateForgetting)
	defer c.clearPending(address)

	if err := c.commander.Unpair(ctx, address); err != nil {
		return fmt.Errorf("%w: unpair %s: %v", ErrCommandFailed, address, err)
	}

	if err := c.reconciler.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after forget failed", "address", address, "error", err)
	}

	c.record(ctx, address, dev.Name, HistoryEventForgotten)
	c.logger.Info("device forgotten", "address", address, "name", dev.Name)
	if c.events != nil {
		c.events.Publish(Event{Type: EventDeviceForgotten, Device: dev})
	}
	return nil
}

// StateOf reports the lifecycle state for an address. In-flight pair and
// forget operations take precedence; otherwise the state is derived from
// the known and discovered sets.
func (c *Controller) StateOf(address string) LifecycleState {
	c.mu.Lock()
	if state, ok := c.pending[address]; ok {
		c.mu.Unlock()
		return state
	}
	c.mu.Unlock()

	if dev, err := c.reconciler.Device(address); err == nil {
		if dev.Connected {
			return StatePairedConnected
		}
		return StatePairedDisconnected
	}
	return StateUnknown
}

// Close cancels any pending resync timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resyncTimer != nil {
		c.resyncTimer.Stop()
		c.resyncTimer = nil
	}
}

// scheduleResync arms the delayed post-command refresh. A rapid sequence
// of actions collapses into one resync: each call cancels the previous
// timer, so only the latest action's settle window applies.
func (c *Controller) scheduleResync() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resyncTimer != nil {
		c.resyncTimer.Stop()
	}
	c.resyncTimer = time.AfterFunc(c.resyncWait, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.reconciler.Refresh(ctx); err != nil {
			c.logger.Warn("scheduled resync failed", "error", err)
		}
	})
}

func (c *Controller) setPending(address string, state LifecycleState) {
	c.mu.Lock()
	c.pending[address] = state
	c.mu.Unlock()
}

func (c *Controller) clearPending(address string) {
	c.mu.Lock()
	delete(c.pending, address)
	c.mu.Unlock()
}

// record persists a lifecycle event to history. Failures are logged only.
func (c *Controller) record(ctx context.Context, address, name, event string) {
	if c.history == nil {
		return
	}
	if err := c.history.Record(ctx, address, name, event); err != nil {
		c.logger.Warn("recording lifecycle history failed", "address", address, "error", err)
	}
}
