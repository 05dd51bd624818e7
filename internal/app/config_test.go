package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	return Config{
		Addr:      "0.0.0.0:8080",
		Storage:   StoragePostgres,
		Redis:     RedisConfig{Addr: "localhost:6379"},
		RateLimit: RateLimitConfig{Max: 100, Window: time.Minute},
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL": "postgres://db/ledger",
		"REDIS_URL":    "redis://cache:6379/1",
		"PORT":         "9090",
	}
	cfg := defaultConfig()
	cfg.applyPlatformDefaults(func(k string) string { return env[k] })

	assert.Equal(t, "postgres://db/ledger", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, StoragePostgres, cfg.CartBackend)
}

func TestApplyPlatformDefaults_ExplicitWins(t *testing.T) {
	env := map[string]string{"DATABASE_URL": "postgres://platform", "PORT": "9090"}
	cfg := defaultConfig()
	cfg.DatabaseURL = "postgres://explicit"
	cfg.Addr = "127.0.0.1:7000"
	cfg.CartBackend = StorageRedis
	cfg.applyPlatformDefaults(func(k string) string { return env[k] })

	assert.Equal(t, "postgres://explicit", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, StorageRedis, cfg.CartBackend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "postgres without url",
			mutate:  func(*Config) {},
			wantErr: "database URL is required",
		},
		{
			name: "postgres",
			mutate: func(c *Config) {
				c.DatabaseURL = "postgres://db"
			},
		},
		{
			name: "memory",
			mutate: func(c *Config) {
				c.Storage = StorageMemory
			},
		},
		{
			name: "memory with redis carts",
			mutate: func(c *Config) {
				c.Storage = StorageMemory
				c.CartBackend = StorageRedis
			},
		},
		{
			name: "unknown storage",
			mutate: func(c *Config) {
				c.Storage = "sqlite"
			},
			wantErr: `unknown storage "sqlite"`,
		},
		{
			name: "memory carts on postgres",
			mutate: func(c *Config) {
				c.DatabaseURL = "postgres://db"
				c.CartBackend = StorageMemory
			},
			wantErr: "cannot be used",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.DatabaseURL = "postgres://db"
				c.CartBackend = StorageRedis
				c.Redis.Addr = ""
			},
			wantErr: "redis address is required",
		},
		{
			name: "bad rate limit window",
			mutate: func(c *Config) {
				c.Storage = StorageMemory
				c.RateLimit.Window = 0
			},
			wantErr: "window must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			cfg.applyPlatformDefaults(func(string) string { return "" })

			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
