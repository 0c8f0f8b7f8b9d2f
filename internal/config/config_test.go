package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, slog.LevelInfo, cfg.Level())
	require.Equal(t, StoreFile, cfg.Store.Backend)
	require.Equal(t, SinkNone, cfg.Steps.Sink)
	require.Equal(t, "localhost:6379", cfg.Steps.Redis.Addr)
	require.Equal(t, 5*time.Second, cfg.Steps.Redis.DialTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STEPGRAPH_LOG_LEVEL", "DEBUG")
	t.Setenv("STEPGRAPH_LOG_FORMAT", "json")
	t.Setenv("STEPGRAPH_STORE", "postgres")
	t.Setenv("STEPGRAPH_POSTGRES_DSN", "postgres://localhost/stepgraph")
	t.Setenv("STEPGRAPH_STEP_SINK", "redis")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("STEPGRAPH_STREAM_MAXLEN", "1000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, cfg.Level())
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, StorePostgres, cfg.Store.Backend)
	require.Equal(t, "postgres://localhost/stepgraph", cfg.Store.PostgresDSN)
	require.Equal(t, SinkRedis, cfg.Steps.Sink)
	require.Equal(t, "redis:6380", cfg.Steps.Redis.Addr)
	require.Equal(t, int64(1000), cfg.Steps.Redis.MaxLen)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"log level", map[string]string{"STEPGRAPH_LOG_LEVEL": "loud"}},
		{"log format", map[string]string{"STEPGRAPH_LOG_FORMAT": "xml"}},
		{"store", map[string]string{"STEPGRAPH_STORE": "s3"}},
		{"postgres without dsn", map[string]string{"STEPGRAPH_STORE": "postgres"}},
		{"sink", map[string]string{"STEPGRAPH_STEP_SINK": "kafka"}},
		{"max len", map[string]string{"STEPGRAPH_STREAM_MAXLEN": "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
