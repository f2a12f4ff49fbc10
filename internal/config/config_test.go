package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ListenPort)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, StorageLocal, cfg.StorageMode)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxUploadBytes)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LISTEN_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LLM_TIMEOUT_SECONDS", "5")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ListenPort)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
}

func TestLoadConfigOverrideBeatsEnv(t *testing.T) {
	t.Setenv("LISTEN_PORT", "9090")
	v := viper.New()
	v.Set(KeyListenPort, "7070")

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.ListenPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.StorageMode = "s3" }, wantErr: true},
		{name: "gcs without bucket", mutate: func(c *Config) { c.StorageMode = StorageGCS }, wantErr: true},
		{name: "gcs with bucket", mutate: func(c *Config) { c.StorageMode = StorageGCS; c.GCSBucket = "b" }},
		{name: "zero timeout", mutate: func(c *Config) { c.LLMTimeout = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				DatabaseDriver: DriverSQLite,
				StorageMode:    StorageLocal,
				LLMTimeout:     time.Second,
				MaxUploadBytes: 1,
			}
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
