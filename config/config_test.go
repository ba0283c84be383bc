package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ServerPort:           8288,
		DatabaseDriver:       DriverSQLite,
		DatabasePath:         "labventory.db",
		JWTSecret:            "secret",
		JWTExpiry:            time.Hour,
		DuplicateFailureMode: DuplicateFailOpen,
		LowStockThreshold:    1,
		ExpiryWindowDays:     30,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid sqlite", mutate: func(c *Config) {}},
		{
			name: "valid postgres",
			mutate: func(c *Config) {
				c.DatabaseDriver = DriverPostgres
				c.DatabaseHost = "localhost"
				c.DatabaseName = "labventory"
				c.DatabaseUser = "lab"
			},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.ServerPort = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "postgres without host",
			mutate:  func(c *Config) { c.DatabaseDriver = DriverPostgres },
			wantErr: "required for postgres",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.DatabasePath = "" },
			wantErr: "DB_PATH is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.DatabaseDriver = "oracle" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "bad failure mode",
			mutate:  func(c *Config) { c.DuplicateFailureMode = "sometimes" },
			wantErr: "DUPLICATE_FAILURE_MODE",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.LowStockThreshold = -1 },
			wantErr: "LOW_STOCK_THRESHOLD",
		},
		{
			name:    "zero expiry window",
			mutate:  func(c *Config) { c.ExpiryWindowDays = 0 },
			wantErr: "EXPIRY_WINDOW_DAYS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := Validate(config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DUPLICATE_FAILURE_MODE", "Closed")
	t.Setenv("JWT_EXPIRY", "2h")

	config, err := New()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, config.DatabaseDriver)
	assert.Equal(t, 8288, config.ServerPort)
	assert.Equal(t, 2*time.Hour, config.JWTExpiry)
	assert.True(t, config.FailClosed())
	assert.Equal(t, 30, config.ExpiryWindowDays)
	assert.InDelta(t, 1.0, config.LowStockThreshold, 0.0001)
	assert.False(t, config.CacheEnabled())
	assert.Equal(t, config, GetConfig())
}
