package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validations and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Defaults.
	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultServerAddress, settings.ServerAddress)
	require.Equal(t, StorageMemory, settings.Storage.Driver)
	require.Equal(t, SinkLog, settings.Sink.Driver)
	require.Equal(t, DefaultTickInterval, settings.Simulation.TickInterval)
	require.Equal(t, DefaultChildTimeout, settings.Simulation.ChildTimeout)
	require.EqualValues(t, DefaultMaxRetries, settings.Simulation.MaxRetries)

	// Bad socket.
	settings = &Config{ServerAddress: "bad:address"}
	require.Error(t, Validate(settings))

	// Network stores need a DSN.
	settings = &Config{Storage: StorageConfig{Driver: "Postgres"}}
	require.ErrorIs(t, Validate(settings), errStorageDSNRequired)

	settings = &Config{Storage: StorageConfig{Driver: "etcd"}}
	require.ErrorIs(t, Validate(settings), errUnknownStorageDriver)

	// Kafka needs brokers.
	settings = &Config{Sink: SinkConfig{Driver: SinkKafka, Brokers: []string{" "}}}
	require.ErrorIs(t, Validate(settings), errKafkaBrokersRequired)

	settings = &Config{Sink: SinkConfig{Driver: SinkKafka, Brokers: []string{"localhost:9092"}}}
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultKafkaTopic, settings.Sink.Topic)

	settings = &Config{Simulation: SimulationConfig{ChildTimeout: -time.Second}}
	require.ErrorIs(t, Validate(settings), errNegativeDuration)

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		Storage: StorageConfig{
			Driver: StorageSQLite,
			DSN:    filepath.Join(dir, "state.db"),
		},
		Simulation: SimulationConfig{
			TickInterval: 250 * time.Millisecond,
			FanOutLimit:  8,
		},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ServerAddress, loaded.ServerAddress)
	require.Equal(t, settings.Storage, loaded.Storage)
	require.Equal(t, 250*time.Millisecond, loaded.Simulation.TickInterval)
	require.Equal(t, 8, loaded.Simulation.FanOutLimit)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

// TestLoadEnvOverrides verifies ENERGY_SIM_* variables win over the file.
func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: memory\nsimulation:\n  tick_interval: 2s\n"), DefaultFilePermissions))

	t.Setenv("ENERGY_SIM_STORAGE_DRIVER", "redis")
	t.Setenv("ENERGY_SIM_STORAGE_DSN", "redis://localhost:6379/0")
	t.Setenv("ENERGY_SIM_SIMULATION_DISABLE_JITTER", "true")
	t.Setenv("ENERGY_SIM_SINK_BROKERS", "a:9092,b:9092")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, StorageRedis, loaded.Storage.Driver)
	require.Equal(t, "redis://localhost:6379/0", loaded.Storage.DSN)
	require.Equal(t, 2*time.Second, loaded.Simulation.TickInterval)
	require.True(t, loaded.Simulation.DisableJitter)
	require.Equal(t, []string{"a:9092", "b:9092"}, loaded.Sink.Brokers)
}
