package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.Equal(t, 5, cfg.DLQMaxRetries)
	require.Equal(t, time.Minute, cfg.DLQBaseDelay)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", " SQLite ")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("DLQ_BASE_DELAY", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 30*time.Second, cfg.DLQBaseDelay)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	require.ErrorContains(t, err, "STORE_DRIVER")

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "parse env")
}

func TestLoadClientMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fittrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: http://gym.local:9000/\ntimeout: 3s\nlog_level: debug\n"), 0o600))

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	require.Equal(t, "http://gym.local:9000", cfg.Server)
	require.Equal(t, 3*time.Second, cfg.Timeout)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)

	t.Setenv("WORKOUT_SERVER", "http://override:8080")
	cfg, err = LoadClient(path)
	require.NoError(t, err)
	require.Equal(t, "http://override:8080", cfg.Server)
	require.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoadClientErrors(t *testing.T) {
	_, err := LoadClient(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: -1s\n"), 0o600))
	_, err = LoadClient(path)
	require.ErrorContains(t, err, "timeout")
}
