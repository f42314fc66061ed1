package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/identity"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTHSESSION_"

// Store backends.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendRedis     = "redis"
	BackendSQLite    = "sqlite"
	BackendMiniredis = "miniredis"
)

// Identity modes.
const (
	IdentityMock = "mock"
	IdentityHTTP = "http"
)

// Config is the file-level configuration shared by the binaries.
type Config struct {
	Manager  authsession.Config `yaml:"manager"`
	Store    StoreConfig        `yaml:"store"`
	Identity IdentityConfig     `yaml:"identity"`
	Logging  LoggingConfig      `yaml:"logging"`
	Server   ServerConfig       `yaml:"server"`
}

// StoreConfig selects and configures the session backend.
type StoreConfig struct {
	Backend string       `yaml:"backend"`
	Key     string       `yaml:"key"`
	Dir     string       `yaml:"dir"`
	Redis   RedisConfig  `yaml:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SQLiteConfig contains the SQLite database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IdentityConfig selects the identity backend.
type IdentityConfig struct {
	Mode       string                           `yaml:"mode"`
	BaseURL    string                           `yaml:"base_url"`
	Timeout    time.Duration                    `yaml:"timeout"`
	Latency    time.Duration                    `yaml:"latency"`
	TokenTTL   time.Duration                    `yaml:"token_ttl"`
	SigningKey string                           `yaml:"signing_key"`
	Social     map[string]identity.SocialConfig `yaml:"social"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ServerConfig is the listen address of the mock identity server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MetricsPath  string        `yaml:"metrics_path"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Manager: authsession.DefaultConfig(),
		Store: StoreConfig{
			Backend: BackendMemory,
			Dir:     ".authsession",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "authsession:",
			},
			SQLite: SQLiteConfig{Path: "authsession.db"},
		},
		Identity: IdentityConfig{
			Mode:     IdentityMock,
			BaseURL:  "http://localhost:8081",
			Timeout:  10 * time.Second,
			Latency:  time.Second,
			TokenTTL: identity.DefaultTokenTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8081,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			MetricsPath:  "/metrics",
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"STORE_BACKEND":        &cfg.Store.Backend,
		"STORE_KEY":            &cfg.Store.Key,
		"STORE_DIR":            &cfg.Store.Dir,
		"REDIS_ADDR":           &cfg.Store.Redis.Addr,
		"REDIS_PASSWORD":       &cfg.Store.Redis.Password,
		"SQLITE_PATH":          &cfg.Store.SQLite.Path,
		"IDENTITY_MODE":        &cfg.Identity.Mode,
		"IDENTITY_BASE_URL":    &cfg.Identity.BaseURL,
		"IDENTITY_SIGNING_KEY": &cfg.Identity.SigningKey,
		"LOG_LEVEL":            &cfg.Logging.Level,
		"LOG_FORMAT":           &cfg.Logging.Format,
		"SERVER_HOST":          &cfg.Server.Host,
	}
	for key, dst := range str {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(EnvPrefix + "SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_PORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvPrefix + "IDENTITY_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sIDENTITY_LATENCY: %w", EnvPrefix, err)
		}
		cfg.Identity.Latency = d
	}
	if v := os.Getenv(EnvPrefix + "CONCURRENCY_DEFAULT"); v != "" {
		p, err := authsession.ParseConcurrencyPolicy(v)
		if err != nil {
			return err
		}
		cfg.Manager.Concurrency.Default = p
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Manager.Validate(); err != nil {
		errs = append(errs, "manager: "+err.Error())
	}

	switch c.Store.Backend {
	case BackendMemory, BackendMiniredis:
	case BackendFile:
		if c.Store.Dir == "" {
			errs = append(errs, "store.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, "store.redis.addr is required for the redis backend")
		}
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, "store.sqlite.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q is not one of memory, file, redis, sqlite, miniredis", c.Store.Backend))
	}

	switch c.Identity.Mode {
	case IdentityMock:
		if c.Identity.Latency < 0 {
			errs = append(errs, "identity.latency must not be negative")
		}
	case IdentityHTTP:
		if c.Identity.BaseURL == "" {
			errs = append(errs, "identity.base_url is required in http mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("identity.mode %q is not one of mock, http", c.Identity.Mode))
	}
	for name := range c.Identity.Social {
		if !identity.SupportedProvider(name) {
			errs = append(errs, fmt.Sprintf("identity.social.%s is not a supported provider", name))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
