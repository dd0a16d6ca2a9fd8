package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the energy-sim binaries.
type Config struct {
	// ServerAddress is the gRPC control address clients dial; the server listens on its port.
	ServerAddress string `yaml:"server_addr" env:"SERVER_ADDR"`
	// AdminAddress is the HTTP listen address for metrics and health; empty disables it.
	AdminAddress string `yaml:"admin_addr" env:"ADMIN_ADDR"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// Storage selects and configures the persisted state store.
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	// Simulation tunes the tick pipeline.
	Simulation SimulationConfig `yaml:"simulation" envPrefix:"SIMULATION_"`
	// Sink selects where nation totals are delivered.
	Sink SinkConfig `yaml:"sink" envPrefix:"SINK_"`
	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

// StorageConfig configures the persisted state store.
type StorageConfig struct {
	// Driver is one of memory, file, sqlite, postgres or redis.
	Driver string `yaml:"driver" env:"DRIVER"`
	// DSN is the connection string for sqlite, postgres and redis.
	DSN string `yaml:"dsn" env:"DSN"`
	// Dir is the root directory of the file driver.
	Dir string `yaml:"dir" env:"DIR"`
	// KeyPrefix namespaces keys in shared stores such as redis.
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// SimulationConfig tunes the tick pipeline.
type SimulationConfig struct {
	// TickInterval is the period of the coordinator's trigger.
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	// ChildTimeout bounds every fan-out call to a child actor.
	ChildTimeout time.Duration `yaml:"child_timeout" env:"CHILD_TIMEOUT"`
	// RetryBackoff is the initial delay before a failed child tick is retried.
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`
	// MaxRetries is the number of retries of a failed child tick.
	MaxRetries uint64 `yaml:"max_retries" env:"MAX_RETRIES"`
	// FanOutLimit caps concurrent child ticks per aggregator; zero means unlimited.
	FanOutLimit int `yaml:"fan_out_limit" env:"FAN_OUT_LIMIT"`
	// IdleAfter deactivates actors idle for this long; zero keeps them active.
	IdleAfter time.Duration `yaml:"idle_after" env:"IDLE_AFTER"`
	// DisableJitter makes entity outputs deterministic.
	DisableJitter bool `yaml:"disable_jitter" env:"DISABLE_JITTER"`
	// ScenarioFile is an optional YAML topology applied at startup.
	ScenarioFile string `yaml:"scenario_file" env:"SCENARIO_FILE"`
	// AutoStart starts the clock once the scenario is applied.
	AutoStart bool `yaml:"auto_start" env:"AUTO_START"`
}

// SinkConfig selects where nation totals are delivered.
type SinkConfig struct {
	// Driver is log or kafka.
	Driver string `yaml:"driver" env:"DRIVER"`
	// Brokers lists Kafka seed brokers.
	Brokers []string `yaml:"brokers" env:"BROKERS"`
	// Topic is the Kafka topic receiving reports.
	Topic string `yaml:"topic" env:"TOPIC"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector URL; empty disables export.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Sink drivers.
const (
	SinkLog   = "log"
	SinkKafka = "kafka"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "energy-sim-settings.yaml"

	// DefaultServerAddress is the gRPC control address used when none is configured.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the permission of directories created for state files.
	DefaultDirPermissions = 0o750

	// DefaultStateDir is the root directory of the file storage driver.
	DefaultStateDir = "energy-sim-state"

	// DefaultSQLiteDSN is the database path of the sqlite storage driver.
	DefaultSQLiteDSN = "energy-sim.db"

	// DefaultTickInterval is the period of the simulation clock.
	DefaultTickInterval = time.Second

	// DefaultChildTimeout bounds a single child tick.
	DefaultChildTimeout = 5 * time.Second

	// DefaultRetryBackoff is the delay before a failed child tick is retried.
	DefaultRetryBackoff = 100 * time.Millisecond

	// DefaultMaxRetries is the number of retries of a failed child tick.
	DefaultMaxRetries = 1

	// DefaultKafkaTopic receives nation reports.
	DefaultKafkaTopic = "energy-sim.nation-reports"

	// DefaultServiceName identifies traces.
	DefaultServiceName = "energy-sim"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ENERGY_SIM_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownStorageDriver is returned for an unsupported storage driver.
	errUnknownStorageDriver = errors.New("unknown storage driver")
	// errStorageDSNRequired is returned when a network store has no connection string.
	errStorageDSNRequired = errors.New("storage dsn must be provided")
	// errUnknownSinkDriver is returned for an unsupported sink driver.
	errUnknownSinkDriver = errors.New("unknown sink driver")
	// errKafkaBrokersRequired is returned when the kafka sink has no brokers.
	errKafkaBrokersRequired = errors.New("kafka sink requires at least one broker")
	// errNegativeDuration is returned when a simulation duration is negative.
	errNegativeDuration = errors.New("duration must not be negative")
)

// Load reads configuration from the provided path, applies environment overrides
// and validates the result. A missing file at the default path yields defaults.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseEnv applies ENERGY_SIM_* environment overrides on top of cfg.
func ParseEnv(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		settings.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if err := validateStorage(&settings.Storage); err != nil {
		return err
	}

	if err := validateSimulation(&settings.Simulation); err != nil {
		return err
	}

	if err := validateSink(&settings.Sink); err != nil {
		return err
	}

	if settings.Tracing.ServiceName == "" {
		settings.Tracing.ServiceName = DefaultServiceName
	}

	return nil
}

func validateStorage(s *StorageConfig) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = StorageMemory
	}

	switch s.Driver {
	case StorageMemory:
	case StorageFile:
		if s.Dir == "" {
			s.Dir = DefaultStateDir
		}
	case StorageSQLite:
		if s.DSN == "" {
			s.DSN = DefaultSQLiteDSN
		}
	case StoragePostgres, StorageRedis:
		if s.DSN == "" {
			return fmt.Errorf("%w for driver %q", errStorageDSNRequired, s.Driver)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownStorageDriver, s.Driver)
	}

	return nil
}

func validateSimulation(s *SimulationConfig) error {
	for name, d := range map[string]time.Duration{
		"tick_interval": s.TickInterval,
		"child_timeout": s.ChildTimeout,
		"retry_backoff": s.RetryBackoff,
		"idle_after":    s.IdleAfter,
	} {
		if d < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeDuration)
		}
	}

	if s.TickInterval == 0 {
		s.TickInterval = DefaultTickInterval
	}

	if s.ChildTimeout == 0 {
		s.ChildTimeout = DefaultChildTimeout
	}

	if s.RetryBackoff == 0 {
		s.RetryBackoff = DefaultRetryBackoff
	}

	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultMaxRetries
	}

	if s.FanOutLimit < 0 {
		s.FanOutLimit = 0
	}

	return nil
}

func validateSink(s *SinkConfig) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = SinkLog
	}

	s.Brokers = slices.DeleteFunc(s.Brokers, func(b string) bool { return strings.TrimSpace(b) == "" })

	switch s.Driver {
	case SinkLog:
	case SinkKafka:
		if len(s.Brokers) == 0 {
			return errKafkaBrokersRequired
		}

		if s.Topic == "" {
			s.Topic = DefaultKafkaTopic
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownSinkDriver, s.Driver)
	}

	return nil
}
