package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultJWTSecret is the development signing key. Validate refuses it
// outside the development environment.
const DefaultJWTSecret = "helpmap-dev-secret"

// Config holds the full application configuration.
type Config struct {
	Env    string       `yaml:"env" mapstructure:"env"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Auth   AuthConfig   `yaml:"auth" mapstructure:"auth"`
	Geo    GeoConfig    `yaml:"geo" mapstructure:"geo"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Events EventsConfig `yaml:"events" mapstructure:"events"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeoutSecs    int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs   int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RateLimitRPS       float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst     int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// AuthConfig holds the bearer-token signing key shared with the auth service.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// GeoConfig holds search radius bounds and the map's default center.
type GeoConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	MaxRadiusKm     float64 `yaml:"max_radius_km" mapstructure:"max_radius_km"`
	DefaultLat      float64 `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLng      float64 `yaml:"default_lng" mapstructure:"default_lng"`
}

// CacheConfig configures the help-location list cache. A zero TTL disables it.
type CacheConfig struct {
	LocationsTTLSecs int `yaml:"locations_ttl_secs" mapstructure:"locations_ttl_secs"`
	MaxEntries       int `yaml:"max_entries" mapstructure:"max_entries"`
}

// EventsConfig configures chat-decision publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL           string `yaml:"nats_url" mapstructure:"nats_url"`
	SubjectPrefix     string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
	MaxReconnects     int    `yaml:"max_reconnects" mapstructure:"max_reconnects"`
	ReconnectWaitSecs int    `yaml:"reconnect_wait_secs" mapstructure:"reconnect_wait_secs"`
}

// RetryConfig configures retries of transient store reads.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HELPMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "development")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "helpmap.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout_secs", 10)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.request_timeout_secs", 15)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("geo.default_radius_km", 10)
	v.SetDefault("geo.max_radius_km", 100)
	v.SetDefault("geo.default_lat", 48.8566)
	v.SetDefault("geo.default_lng", 2.3522)
	v.SetDefault("cache.locations_ttl_secs", 300)
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "helpmap")
	v.SetDefault("events.max_reconnects", 60)
	v.SetDefault("events.reconnect_wait_secs", 2)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 50)
	v.SetDefault("retry.max_backoff_ms", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding ones already
// set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return eris.Wrapf(err, "config: load %s", path)
	}
	return nil
}

// IsDevelopment reports whether the service runs in the development
// environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite", "":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}

	switch mode {
	case "migrate", "seed":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS < 0 {
			errs = append(errs, "server.rate_limit_rps must be >= 0")
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, "auth.jwt_secret is required")
		} else if c.Auth.JWTSecret == DefaultJWTSecret && !c.IsDevelopment() {
			errs = append(errs, "auth.jwt_secret must be changed outside development")
		}
		if c.Geo.DefaultRadiusKm <= 0 {
			errs = append(errs, "geo.default_radius_km must be > 0")
		}
		if c.Geo.MaxRadiusKm <= 0 {
			errs = append(errs, "geo.max_radius_km must be > 0")
		} else if c.Geo.DefaultRadiusKm > c.Geo.MaxRadiusKm {
			errs = append(errs, "geo.default_radius_km must not exceed geo.max_radius_km")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
