// Motion Core - Sequence Execution Engine
//
// This is the main entry point for the Motion Core daemon. Motion Core
// replays stored sequences of timed hardware actions against motion
// controllers over MQTT, with live pause, resume, speed change, and
// stop control exposed through a REST and WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nberridge/motion-core/migrations"

	"github.com/nberridge/motion-core/internal/api"
	"github.com/nberridge/motion-core/internal/device"
	"github.com/nberridge/motion-core/internal/gateway"
	"github.com/nberridge/motion-core/internal/infrastructure/config"
	"github.com/nberridge/motion-core/internal/infrastructure/database"
	"github.com/nberridge/motion-core/internal/infrastructure/logging"
	"github.com/nberridge/motion-core/internal/infrastructure/mqtt"
	"github.com/nberridge/motion-core/internal/playback"
	"github.com/nberridge/motion-core/internal/sequence"
	"github.com/nberridge/motion-core/internal/telemetry"
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
	log.Info("starting Motion Core",
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

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	controllerCount, deviceCount := deviceRegistry.Counts()
	log.Info("device registry initialised",
		"controllers", controllerCount,
		"devices", deviceCount,
	)

	// Initialise sequence registry
	sequenceRepo := sequence.NewSQLiteRepository(db.DB)
	sequenceRegistry := sequence.NewRegistry(sequenceRepo)
	sequenceRegistry.SetLogger(log)

	if refreshErr := sequenceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading sequence registry: %w", refreshErr)
	}
	log.Info("sequence registry initialised", "sequences", sequenceRegistry.Count())

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
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = telemetry.Connect(cfg.InfluxDB)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Command gateway routes hardware commands to controller topics and
	// fans acknowledgments back in.
	gw := gateway.New(mqttClient, deviceRegistry, byte(cfg.MQTT.QoS))
	gw.SetLogger(log)
	if influxClient != nil {
		gw.SetLatencyRecorder(influxClient)
	}

	// Playback engine drives sequence runs through the gateway.
	engine := playback.New(gw, playback.Options{
		AckSafetyMargin: time.Duration(cfg.Playback.AckSafetyMarginMS) * time.Millisecond,
		MinAckTimeout:   time.Duration(cfg.Playback.MinAckTimeoutMS) * time.Millisecond,
		MaxAckTimeout:   time.Duration(cfg.Playback.MaxAckTimeoutMS) * time.Millisecond,
	})
	defer func() {
		log.Info("stopping playback engine")
		engine.Close()
	}()
	engine.SetLogger(log)
	if influxClient != nil {
		engine.SetMetrics(influxClient)
	}

	// Every wire ack reaches the engine; it filters by command id.
	gw.SetOnAck(engine.HandleAck)

	// Sequences cannot be edited while they are being replayed.
	sequenceRegistry.SetRunningCheck(engine.IsRunning)

	// A broker drop mid-run means command delivery is no longer
	// guaranteed, so the engine fails the active run.
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
		engine.NotifyDisconnect(err)
	})

	if startErr := gw.Start(); startErr != nil {
		return fmt.Errorf("starting command gateway: %w", startErr)
	}
	log.Info("command gateway started", "qos", cfg.MQTT.QoS)

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Sequences: sequenceRegistry,
		Devices:   deviceRegistry,
		Engine:    engine,
		Gateway:   gw,
		MQTT:      mqttClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Playback engine
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("Motion Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MOTIONCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MOTIONCORE_CONFIG"); path != "" {
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
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *telemetry.Client, apiServer *api.Server) error {
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

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
