// Weathervane - Weather Station Record Service
//
// This is the main entry point for the Weathervane backend. Weathervane
// stores sensor readings from field weather stations and serves them to
// students and teachers over a role-gated HTTP API:
//   - SQLite system of record, optional InfluxDB mirror for dashboards
//   - Optional MQTT ingest bridge for stations on flaky links
//   - Opaque API-key authentication with STUDENT/TEACHER/SENSOR roles
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/rowanveldt/weathervane/migrations"

	"github.com/rowanveldt/weathervane/internal/api"
	"github.com/rowanveldt/weathervane/internal/auth"
	"github.com/rowanveldt/weathervane/internal/infrastructure/config"
	"github.com/rowanveldt/weathervane/internal/infrastructure/database"
	"github.com/rowanveldt/weathervane/internal/infrastructure/influxdb"
	"github.com/rowanveldt/weathervane/internal/infrastructure/logging"
	"github.com/rowanveldt/weathervane/internal/infrastructure/mqtt"
	"github.com/rowanveldt/weathervane/internal/ingest"
	"github.com/rowanveldt/weathervane/internal/telemetry"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Weathervane",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Repositories
	accounts := auth.NewAccountRepository(db.DB)
	var readings telemetry.ReadingRepository = telemetry.NewReadingRepository(
		db.DB,
		cfg.Telemetry.MaxPrecipitationWindowMonths,
	)

	// Connect to InfluxDB mirror (optional)
	var influxClient *influxdb.Client
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

		// Every reading written from here on is mirrored, whichever path
		// (HTTP or MQTT) it arrived by.
		readings = telemetry.WithMirror(readings, influxClient)
	} else {
		log.Info("InfluxDB mirror disabled")
	}

	// Seed the bootstrap teacher account on an empty store. The generated
	// key is logged once; everything after that goes through the API.
	if _, seedErr := auth.SeedTeacher(ctx, accounts, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding teacher account: %w", seedErr)
	}

	authorizer := auth.NewAuthorizer(accounts)

	// Connect to MQTT and start the reading ingest bridge (optional)
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
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := ingest.New(ingest.Deps{
			MQTT:     mqttClient,
			Readings: readings,
			Logger:   log,
			QoS:      byte(cfg.MQTT.QoS),
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating ingest bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting ingest bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping ingest bridge")
			if closeErr := bridge.Close(); closeErr != nil {
				log.Error("error closing ingest bridge", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT ingest disabled")
	}

	// Start the HTTP API
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Authorizer: authorizer,
		Accounts:   accounts,
		Readings:   readings,
		Database:   db,
		Version:    version,
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
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Ingest bridge, then MQTT (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("Weathervane stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WEATHERVANE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WEATHERVANE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
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

	return nil
}
