package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
	"github.com/jiaming2012/ward-market/src/worker"
)

type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

//go:embed roster.yaml
var defaultRoster []byte

type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Scheduler     SchedulerConfig         `yaml:"scheduler"`
	Storage       StorageConfig           `yaml:"storage"`
	Simulation    models.SimulationParams `yaml:"simulation"`
	Seed          SeedConfig              `yaml:"seed"`
	Notifications NotificationsConfig     `yaml:"notifications"`
	Telemetry     TelemetryConfig         `yaml:"telemetry"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

type StorageConfig struct {
	Driver   StorageDriver  `yaml:"driver"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type SeedConfig struct {
	// RosterFile replaces the built-in roster when set.
	RosterFile string `yaml:"roster_file"`
}

type NotificationsConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	JSONLogs    bool   `yaml:"json_logs"`
}

func Default() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080},
		Scheduler:  SchedulerConfig{Enabled: true, TickInterval: worker.DefaultTickInterval},
		Storage:    StorageConfig{Driver: StorageDriverMemory},
		Simulation: models.DefaultSimulationParams(),
		Telemetry:  TelemetryConfig{ServiceName: "ward-market"},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data and decodes it as YAML over the
// defaults, so keys missing from the file keep their default values.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates. An empty
// path yields the defaults.
func LoadAndValidate(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()

	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}

	if c.Scheduler.TickInterval == 0 {
		c.Scheduler.TickInterval = d.Scheduler.TickInterval
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}

	if c.Storage.Postgres.Port == "" {
		c.Storage.Postgres.Port = "5432"
	}

	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = "disable"
	}

	c.Simulation = c.Simulation.WithDefaults()

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = d.Telemetry.ServiceName
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if c.Scheduler.TickInterval < 0 {
		return fmt.Errorf("scheduler.tick_interval must not be negative")
	}

	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		pg := c.Storage.Postgres
		if pg.Host == "" || pg.User == "" || pg.Name == "" {
			return fmt.Errorf("storage.postgres requires host, user and name")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if p := c.Simulation.Discovery.Probability; p != nil && *p > 1 {
		return fmt.Errorf("simulation.discovery.probability must be at most 1, got %v", *p)
	}

	return nil
}

// LoadRoster reads the seed roster at path, or the built-in roster when path
// is empty.
func LoadRoster(path string) (*models.Roster, error) {
	data := defaultRoster
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read roster file: %w", err)
		}
	}

	var roster models.Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster yaml: %w", err)
	}

	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("validate roster: %w", err)
	}

	return &roster, nil
}
