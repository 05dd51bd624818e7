package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	StorageRedis    = "redis"
)

// Config holds the complete application configuration, loadable from
// environment variables (LEDGER_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (LEDGER_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     string `default:"postgres" usage:"Primary store: postgres or memory"`
	CartBackend string `default:"" usage:"Cart store: postgres, memory or redis; defaults to Storage" flag:"cart-backend"`
	SeedCatalog bool   `default:"false" usage:"Upsert the embedded catalog on start" flag:"seed-catalog"`
	Redis       RedisConfig
	Order       OrderConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RedisConfig configures the Redis cart backend.
type RedisConfig struct {
	URL      string `default:"" usage:"Redis URL, overrides the other fields (LEDGER_REDIS_URL or REDIS_URL)"`
	Addr     string `default:"localhost:6379" usage:"Redis address"`
	Password string `default:"" usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database number"`
}

// OrderConfig controls order submission.
type OrderConfig struct {
	ClearCartOnSubmit bool `default:"false" usage:"Empty the cart after a successful submission" flag:"clear-cart-on-submit"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LEDGER",
		Files:     []string{"config.yaml", "/etc/ledger/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL, REDIS_URL and PORT
// variables set by hosting platforms onto the configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = getenv("REDIS_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	if c.CartBackend == "" {
		c.CartBackend = c.Storage
	}
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set LEDGER_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}

	switch c.CartBackend {
	case c.Storage:
	case StorageRedis:
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis cart backend")
		}
	default:
		return errors.Errorf("cart backend %q cannot be used with %s storage", c.CartBackend, c.Storage)
	}

	if c.RateLimit.Max > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}
