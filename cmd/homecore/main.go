// Home Core - home automation dashboard backend
//
// Home Core sits between the MQTT message bus (ESP sensor nodes, the
// fridge unit, external control apps) and the dashboard frontend. It
// classifies incoming bus traffic, reconciles device and inventory
// state, records face recognition events, and pushes live updates to
// dashboard clients over WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "homecore/migrations"

	"homecore/internal/api"
	"homecore/internal/device"
	"homecore/internal/dispatch"
	"homecore/internal/face"
	"homecore/internal/infrastructure/config"
	"homecore/internal/infrastructure/database"
	"homecore/internal/infrastructure/influxdb"
	"homecore/internal/infrastructure/logging"
	"homecore/internal/infrastructure/mqtt"
	"homecore/internal/inventory"
	"homecore/internal/sensor"
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
	log.Info("starting Home Core",
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

	// Build the domain layer: reconcilers and recorders backed by SQLite
	devices := device.NewReconciler(cfg.Home.Devices)
	devices.SetLogger(log)
	log.Info("device reconciler initialised", "devices", len(cfg.Home.Devices))

	inventoryRepo := inventory.NewSQLiteRepository(db.DB)
	inv := inventory.NewReconciler(inventoryRepo, cfg.Home.LowStockThreshold)
	inv.SetLogger(log)
	if loadErr := inv.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading inventory: %w", loadErr)
	}
	log.Info("inventory loaded", "items", len(inv.Snapshot()))

	faceRepo := face.NewSQLiteRepository(db.DB)
	faces := face.NewRecorder(faceRepo)
	faces.SetLogger(log)

	readings := sensor.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	// Connect to InfluxDB (optional telemetry mirror)
	var influxClient *influxdb.Client
	var metrics dispatch.Metrics
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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
		metrics = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// The hub is shared: the dispatcher broadcasts MQTT-driven events
	// through it, and the API server serves it at the WebSocket endpoint.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	cache := dispatch.NewCache()

	topics := mqtt.Topics{}
	dispatcher := dispatch.New(dispatch.Deps{
		Rules:       dispatch.NewRules(cfg.Home),
		Cache:       cache,
		Devices:     devices,
		Inventory:   inv,
		Faces:       faces,
		Readings:    readings,
		Metrics:     metrics,
		Broadcaster: hub,
		Logger:      log,
		FridgeTopic: topics.FridgeInventory(),
	})

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Home:        cfg.Home,
		Logger:      log,
		Dispatcher:  dispatcher,
		Cache:       cache,
		Devices:     devices,
		Inventory:   inv,
		Faces:       faces,
		Readings:    readings,
		Publisher:   mqttClient,
		PublishQoS:  byte(cfg.MQTT.QoS),
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Subscribe the dispatcher to the configured topic set
	qos := byte(cfg.MQTT.QoS)
	for _, topic := range cfg.Home.Topics.Subscribe {
		if subErr := mqttClient.Subscribe(topic, qos, dispatcher.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, subErr)
		}
		log.Info("subscribed", "topic", topic)
	}

	// Start the HTTP/WebSocket server
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Home Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMECORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMECORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
