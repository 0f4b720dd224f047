// eblu - Bluetooth device manager
//
// This is the main entry point for the eblu daemon. It reconciles the
// host's paired-device snapshot with discovery scans into one device
// list and exposes it over HTTP/WebSocket, with optional MQTT presence
// publishing and InfluxDB telemetry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/sadesguy/eblu/migrations"

	"github.com/sadesguy/eblu/internal/api"
	"github.com/sadesguy/eblu/internal/bluetooth"
	"github.com/sadesguy/eblu/internal/blueutil"
	"github.com/sadesguy/eblu/internal/infrastructure/config"
	"github.com/sadesguy/eblu/internal/infrastructure/database"
	"github.com/sadesguy/eblu/internal/infrastructure/influxdb"
	"github.com/sadesguy/eblu/internal/infrastructure/logging"
	"github.com/sadesguy/eblu/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often the history retention sweep runs.
const pruneInterval = 24 * time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting eblu",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Verify the control tool resolves before touching anything else.
	// Without it no operation can work, so this is fatal.
	tool := blueutil.New(cfg.Tool.Binary, cfg.GetCommandTimeout())
	tool.SetLogger(log)
	if checkErr := tool.Check(); checkErr != nil {
		return fmt.Errorf("checking control tool: %w", checkErr)
	}
	log.Info("control tool resolved", "binary", cfg.Tool.Binary)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire the device layer
	history := bluetooth.NewSQLiteHistoryRepository(db.DB)
	events := bluetooth.NewBroadcaster()

	reconciler := bluetooth.NewReconciler(tool, tool, cfg.GetScanDuration())
	reconciler.SetLogger(log)
	reconciler.SetEvents(events)
	reconciler.SetHistory(history)

	controller := bluetooth.NewController(tool, reconciler, cfg.GetResyncDelay())
	controller.SetLogger(log)
	controller.SetEvents(events)
	controller.SetHistory(history)
	defer controller.Close()

	// Initial snapshot. A failure here is not fatal: the tool is present,
	// so later refreshes can recover.
	if refreshErr := reconciler.Refresh(ctx); refreshErr != nil {
		log.Warn("initial refresh failed", "error", refreshErr)
	} else {
		log.Info("device list initialised", "devices", reconciler.DeviceCount())
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		startPresencePublisher(events, mqttClient, byte(cfg.MQTT.QoS), log)

		commandTopic := mqtt.Topics{}.AllDeviceCommands()
		if subErr := mqttClient.Subscribe(commandTopic, byte(cfg.MQTT.QoS),
			deviceCommandHandler(ctx, controller, log)); subErr != nil {
			return fmt.Errorf("subscribing to device commands: %w", subErr)
		}
		log.Info("device command listener active", "topic", commandTopic)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		startTelemetryWriter(events, influxClient, reconciler)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Reconciler: reconciler,
		Controller: controller,
		History:    history,
		Events:     events,
		MaxDevices: cfg.Display.MaxDevices,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Periodic snapshot refresh
	if interval := cfg.GetRefreshInterval(); interval > 0 {
		go refreshLoop(ctx, reconciler, interval, log)
		log.Info("periodic refresh enabled", "interval", interval)
	} else {
		log.Info("periodic refresh disabled")
	}

	// Connection history retention
	if retention := cfg.GetHistoryRetention(); retention > 0 {
		go pruneLoop(ctx, history, retention, log)
		log.Info("history pruning enabled", "retention", retention)
	} else {
		log.Info("history pruning disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Controller resync timer
	// 5. Database

	log.Info("eblu stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EBLU_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EBLU_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// refreshLoop re-fetches the paired snapshot on a fixed interval until the
// context is cancelled. Failures are logged and the loop keeps going; the
// next tick may succeed.
func refreshLoop(ctx context.Context, reconciler *bluetooth.Reconciler, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reconciler.Refresh(ctx); err != nil {
				log.Warn("periodic refresh failed", "error", err)
			}
		}
	}
}

// pruneLoop deletes connection history older than the retention window,
// once at startup and then daily.
func pruneLoop(ctx context.Context, history *bluetooth.SQLiteHistoryRepository, retention time.Duration, log *logging.Logger) {
	prune := func() {
		deleted, err := history.Prune(ctx, retention)
		if err != nil {
			log.Warn("history prune failed", "error", err)
			return
		}
		if deleted > 0 {
			log.Info("history pruned", "deleted", deleted, "retention", retention)
		}
	}

	prune()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// deviceCommander is the controller surface the MQTT command listener
// drives.
type deviceCommander interface {
	Connect(ctx context.Context, address string) error
	Disconnect(ctx context.Context, address string) error
	Toggle(ctx context.Context, address string) error
}

// deviceCommandHandler routes eblu/device/{address}/command payloads to
// the controller. The payload is the bare action name.
func deviceCommandHandler(ctx context.Context, commander deviceCommander, log *logging.Logger) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		address, ok := commandAddress(topic)
		if !ok {
			return fmt.Errorf("malformed command topic %q", topic)
		}

		action := strings.ToLower(strings.TrimSpace(string(payload)))
		var err error
		switch action {
		case "connect":
			err = commander.Connect(ctx, address)
		case "disconnect":
			err = commander.Disconnect(ctx, address)
		case "toggle":
			err = commander.Toggle(ctx, address)
		default:
			return fmt.Errorf("unknown device command %q", action)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", action, address, err)
		}

		log.Info("device command applied", "action", action, "address", address)
		return nil
	}
}

// commandAddress recovers the hardware address from a command topic,
// undoing the dash form used in topic segments.
func commandAddress(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != mqtt.TopicPrefix || parts[1] != "device" || parts[3] != "command" || parts[2] == "" {
		return "", false
	}
	return strings.ReplaceAll(parts[2], "-", ":"), true
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - server: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// startPresencePublisher mirrors device events onto MQTT.
//
// Per-device state is published retained so subscribers see the current
// picture immediately after connecting; lifecycle events and scan results
// are fire-and-forget.
func startPresencePublisher(events *bluetooth.Broadcaster, client *mqtt.Client, qos byte, log *logging.Logger) {
	topics := mqtt.Topics{}

	publish := func(topic string, v any, retained bool) {
		payload, err := json.Marshal(v)
		if err != nil {
			log.Error("marshalling presence payload", "topic", topic, "error", err)
			return
		}
		if err := client.Publish(topic, payload, qos, retained); err != nil {
			log.Warn("presence publish failed", "topic", topic, "error", err)
		}
	}

	events.Subscribe(func(ev bluetooth.Event) {
		switch ev.Type {
		case bluetooth.EventDevicesRefreshed:
			for i := range ev.Devices {
				dev := &ev.Devices[i]
				publish(topics.DeviceState(dev.Address), dev, true)
			}
		case bluetooth.EventScanCompleted:
			publish(topics.Discovered(), map[string]any{
				"discovered": ev.Discovered,
				"count":      len(ev.Discovered),
			}, false)
		case bluetooth.EventDeviceConnected, bluetooth.EventDeviceDisconnected,
			bluetooth.EventDevicePaired, bluetooth.EventDeviceForgotten:
			if ev.Device == nil {
				return
			}
			publish(topics.DeviceEvent(ev.Device.Address), map[string]any{
				"event":  string(ev.Type),
				"device": ev.Device,
			}, false)
			// Keep the retained state topic current between refreshes.
			publish(topics.DeviceState(ev.Device.Address), ev.Device, true)
		}
	})
}

// startTelemetryWriter forwards refresh events to InfluxDB.
//
// Battery and signal readings are written only when the snapshot reported
// them; absence means unknown, never zero. Device counts are written on
// every refresh.
func startTelemetryWriter(events *bluetooth.Broadcaster, client *influxdb.Client, reconciler *bluetooth.Reconciler) {
	events.Subscribe(func(ev bluetooth.Event) {
		switch ev.Type {
		case bluetooth.EventDevicesRefreshed:
			connected := 0
			for i := range ev.Devices {
				dev := &ev.Devices[i]
				if dev.Connected {
					connected++
				}
				if dev.BatteryLevel != nil {
					client.WriteBatteryLevel(dev.Address, dev.Name, *dev.BatteryLevel)
				}
				if dev.SignalStrength != nil {
					client.WriteSignalStrength(dev.Address, dev.Name, *dev.SignalStrength)
				}
			}
			client.WriteDeviceCounts(len(ev.Devices), connected, len(reconciler.DiscoveredDevices()))
		case bluetooth.EventScanCompleted:
			for i := range ev.Discovered {
				dev := &ev.Discovered[i]
				if dev.SignalStrength != nil {
					client.WriteSignalStrength(dev.Address, dev.Name, *dev.SignalStrength)
				}
			}
		}
	})
}
