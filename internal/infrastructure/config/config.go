package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for qrauto.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Automation  AutomationConfig  `yaml:"automation"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Audit       AuditConfig       `yaml:"audit"`
}

// SiteConfig identifies the workstation running the automation. The ID is
// attached to every log entry.
type SiteConfig struct {
	ID string `yaml:"id"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
// Reconnection retries indefinitely with backoff capped at MaxDelay.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AutomationConfig contains execution engine settings.
type AutomationConfig struct {
	// FailSafe enables the corner abort region. Moving the pointer into
	// any screen corner during a run aborts the remaining steps.
	FailSafe bool `yaml:"failsafe"`

	// FailSafeMargin is the size in pixels of each corner abort region.
	// Default: 2
	FailSafeMargin int `yaml:"failsafe_margin"`

	// Pause is the wait after every injected pointer primitive.
	// Default: 500ms
	Pause time.Duration `yaml:"pause"`

	// MoveDuration is how long a pointer move to the target takes.
	// Default: 300ms
	MoveDuration time.Duration `yaml:"move_duration"`

	// MaxSteps caps the number of steps accepted from one payload.
	// Default: 100
	MaxSteps int `yaml:"max_steps"`
}

// AcquisitionConfig contains payload acquisition settings.
type AcquisitionConfig struct {
	CameraIndex    int           `yaml:"camera_index"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	Serial         SerialConfig  `yaml:"serial"`
}

// SerialConfig configures a serial (USB CDC) QR scanner.
type SerialConfig struct {
	// Port is the device name (e.g. "/dev/ttyACM0", "COM3").
	// If empty, the first openable port is used.
	Port string `yaml:"port"`

	// Baud is the line speed. Default: 9600
	Baud int `yaml:"baud"`

	// Timeout bounds a single scan. Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// AuditConfig contains run audit settings.
type AuditConfig struct {
	// SnapshotDir receives before/after screenshots for every executed run.
	SnapshotDir string `yaml:"snapshot_dir"`

	// Snapshots toggles screenshot capture.
	Snapshots bool `yaml:"snapshots"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: QRAUTO_SECTION_KEY
// For example: QRAUTO_DATABASE_PATH, QRAUTO_SERIAL_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns the built-in configuration with environment overrides
// applied. Used when no configuration file exists.
func Defaults() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID: "workstation-001",
		},
		Database: DatabaseConfig{
			Path:        "./data/qrauto.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "qrauto",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Automation: AutomationConfig{
			FailSafe:       true,
			FailSafeMargin: 2,
			Pause:          500 * time.Millisecond,
			MoveDuration:   300 * time.Millisecond,
			MaxSteps:       100,
		},
		Acquisition: AcquisitionConfig{
			CameraIndex:    0,
			CaptureTimeout: 30 * time.Second,
			FrameInterval:  30 * time.Millisecond,
			Serial: SerialConfig{
				Baud:    9600,
				Timeout: 30 * time.Second,
			},
		},
		Audit: AuditConfig{
			SnapshotDir: "./data/snapshots",
			Snapshots:   true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: QRAUTO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("QRAUTO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("QRAUTO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("QRAUTO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("QRAUTO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("QRAUTO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Acquisition
	if v := os.Getenv("QRAUTO_SERIAL_PORT"); v != "" {
		cfg.Acquisition.Serial.Port = v
	}
	if v := os.Getenv("QRAUTO_CAMERA_INDEX"); v != "" {
		if idx, err := strconv.Atoi(v); err == nil {
			cfg.Acquisition.CameraIndex = idx
		}
	}

	// Audit
	if v := os.Getenv("QRAUTO_SNAPSHOT_DIR"); v != "" {
		cfg.Audit.SnapshotDir = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Automation
	if c.Automation.FailSafeMargin < 0 {
		errs = append(errs, "automation.failsafe_margin must not be negative")
	}
	if c.Automation.Pause < 0 {
		errs = append(errs, "automation.pause must not be negative")
	}
	if c.Automation.MoveDuration < 0 {
		errs = append(errs, "automation.move_duration must not be negative")
	}
	if c.Automation.MaxSteps < 1 {
		errs = append(errs, "automation.max_steps must be at least 1")
	}

	// Acquisition
	if c.Acquisition.CameraIndex < 0 {
		errs = append(errs, "acquisition.camera_index must not be negative")
	}
	if c.Acquisition.CaptureTimeout <= 0 {
		errs = append(errs, "acquisition.capture_timeout must be positive")
	}
	if c.Acquisition.FrameInterval < 0 {
		errs = append(errs, "acquisition.frame_interval must not be negative")
	}
	if c.Acquisition.Serial.Baud <= 0 {
		errs = append(errs, "acquisition.serial.baud must be positive")
	}
	if c.Acquisition.Serial.Timeout <= 0 {
		errs = append(errs, "acquisition.serial.timeout must be positive")
	}

	if c.Audit.Snapshots && c.Audit.SnapshotDir == "" {
		errs = append(errs, "audit.snapshot_dir is required when snapshots are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
