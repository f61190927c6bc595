package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/qrauto/internal/acquisition"
	"github.com/nerrad567/qrauto/internal/audit"
	"github.com/nerrad567/qrauto/internal/automation"
	"github.com/nerrad567/qrauto/internal/infrastructure/config"
	"github.com/nerrad567/qrauto/internal/infrastructure/database"
	"github.com/nerrad567/qrauto/internal/infrastructure/influxdb"
	"github.com/nerrad567/qrauto/internal/infrastructure/logging"
	"github.com/nerrad567/qrauto/internal/infrastructure/mqtt"
	"github.com/nerrad567/qrauto/internal/platform"
	"github.com/nerrad567/qrauto/internal/runner"
	"github.com/nerrad567/qrauto/migrations"
)

// app holds the infrastructure shared by every command.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	db     *database.DB
	runs   *audit.SQLiteRepository
	mqtt   *mqtt.Client     // nil when disabled or unreachable
	influx *influxdb.Client // nil when disabled or unreachable
}

// withApp opens the database and optional sinks, runs fn, and closes
// everything in reverse order.
func withApp(ctx context.Context, cfg *config.Config, log *logging.Logger, fn func(*app) error) error {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if applied > 0 {
		log.Info("database migrations applied", "count", applied)
	}

	a := &app{cfg: cfg, log: log, db: db, runs: audit.NewSQLiteRepository(db.DB)}

	if cfg.MQTT.Enabled {
		client, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			log.Warn("MQTT unavailable, run events disabled", "error", connErr)
		} else {
			client.SetLogger(log)
			a.mqtt = client
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	}

	if cfg.InfluxDB.Enabled {
		client, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			log.Warn("InfluxDB unavailable, run metrics disabled", "error", connErr)
		} else {
			client.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			a.influx = client
			defer func() {
				if closeErr := client.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		}
	}

	return fn(a)
}

// deps wires the pipeline collaborators. The camera is added by the camera
// command, which also owns the preview window. With dryRun the engine moves
// the pointer through each step but never clicks.
func (a *app) deps(dryRun bool) runner.Deps {
	cfg := a.cfg
	desktop := platform.NewDesktop()
	qr := acquisition.NewQRDecoder()

	deps := runner.Deps{
		Serial: acquisition.NewSerialScanner(
			cfg.Acquisition.Serial.Port,
			cfg.Acquisition.Serial.Baud,
			cfg.Acquisition.Serial.Timeout,
			a.log,
		),
		Images:   acquisition.NewImageScanner(qr, a.log),
		Decoder:  automation.NewDecoder(cfg.Automation.MaxSteps, a.log),
		Bounds:   automation.NewBoundsValidator(desktop),
		Executor: automation.NewEngine(desktop, desktop, engineConfig(cfg, dryRun), a.log),
		Recorder: a.runs,
		Logger:   a.log,
	}

	// Interfaces stay nil unless the sink exists.
	if cfg.Audit.Snapshots {
		deps.Snapshots = audit.NewSnapshotWriter(cfg.Audit.SnapshotDir, desktop)
	}
	if a.mqtt != nil {
		deps.Events = a.mqtt
	}
	if a.influx != nil {
		deps.Metrics = a.influx
	}
	return deps
}

// engineConfig maps the automation section onto the engine settings.
func engineConfig(cfg *config.Config, dryRun bool) automation.EngineConfig {
	return automation.EngineConfig{
		FailSafe:       cfg.Automation.FailSafe,
		FailSafeMargin: cfg.Automation.FailSafeMargin,
		Pause:          cfg.Automation.Pause,
		MoveDuration:   cfg.Automation.MoveDuration,
		DryRun:         dryRun,
	}
}

// cameraLoop builds the capture loop for the configured webcam.
func (a *app) cameraLoop(preview *platform.Preview) *acquisition.CaptureLoop {
	return &acquisition.CaptureLoop{
		Source:   platform.NewCamera(a.cfg.Acquisition.CameraIndex),
		Decoder:  acquisition.NewQRDecoder(),
		Timeout:  a.cfg.Acquisition.CaptureTimeout,
		Interval: a.cfg.Acquisition.FrameInterval,
		Quit:     preview.Quit(),
		Preview:  preview.Show,
		Logger:   a.log,
	}
}
