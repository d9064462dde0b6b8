package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/giannis84/character-browser/internal/auth"
	"github.com/giannis84/character-browser/internal/characters"
	"github.com/giannis84/character-browser/internal/database"
	"github.com/giannis84/character-browser/internal/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"
	defaultDotenvPath = ".env"
)

// Config holds the application configuration.
type Config struct {
	APIPort    string `yaml:"api_port"    env:"API_PORT"`
	HealthPort string `yaml:"health_port" env:"HEALTH_PORT"`

	// HTTP server timeouts (optional, defaults apply in server.go)
	ReadTimeout  time.Duration `yaml:"read_timeout"  env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env:"IDLE_TIMEOUT"`

	LogLevel  string `yaml:"log_level"  env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	// Remote character API
	CharacterAPIURL     string        `yaml:"character_api_url"     env:"CHARACTER_API_URL"`
	CharacterAPITimeout time.Duration `yaml:"character_api_timeout" env:"CHARACTER_API_TIMEOUT"`
	CharacterAPIRPS     float64       `yaml:"character_api_rps"     env:"CHARACTER_API_RPS"`
	CharacterAPIBurst   int           `yaml:"character_api_burst"   env:"CHARACTER_API_BURST"`

	// Favourites store. StoreName is the SQLite file or the PostgreSQL database.
	StoreDriver      string `yaml:"store_driver"       env:"STORE_DRIVER"`
	StoreName        string `yaml:"store_name"         env:"STORE_NAME"`
	StoreVersion     int    `yaml:"store_version"      env:"STORE_VERSION"`
	StoreObjectStore string `yaml:"store_object_store" env:"STORE_OBJECT_STORE"`

	// PostgreSQL connection (env vars only, secrets must not live in config.yaml)
	DBHost     string `yaml:"-" env:"POSTGRES_HOST"`
	DBPort     string `yaml:"-" env:"POSTGRES_PORT"`
	DBUser     string `yaml:"-" env:"POSTGRES_USER"`
	DBPassword string `yaml:"-" env:"POSTGRES_PASSWORD"`

	// JWT signing secret for identity tokens. Normally in production it should be
	// fetched from a secrets provider, and not set via config file or env var.
	JWTSecret string `yaml:"-" env:"JWT_SECRET"`

	// AllowUnsignedTokens permits unsigned JWT tokens (alg=none) when no secret
	// is set. This should ONLY be enabled for local development and testing.
	AllowUnsignedTokens bool `yaml:"-" env:"ALLOW_UNSIGNED_TOKENS"`

	SessionCookie string `yaml:"session_cookie" env:"SESSION_COOKIE"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Rate limiting configuration
	RateLimitRequests int           `yaml:"rate_limit_requests" env:"RATE_LIMIT_REQUESTS"` // Max requests per window (0 = disabled)
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"   env:"RATE_LIMIT_WINDOW"`   // Time window for rate limiting
}

func defaults() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           logging.FormatJSON,
		CharacterAPIURL:     characters.DefaultBaseURL,
		CharacterAPITimeout: characters.DefaultTimeout,
		CharacterAPIRPS:     5,
		CharacterAPIBurst:   5,
		StoreDriver:         database.DriverSQLite,
		StoreName:           "favourites.db",
		StoreVersion:        1,
		StoreObjectStore:    "users",
		SessionCookie:       auth.DefaultCookieName,
	}
}

// Load reads configuration with the following precedence (highest wins):
//  1. Environment variables, including those from a .env file (DOTENV_PATH or ".env")
//  2. YAML config file (path from CONFIG_PATH env var, or "config.yaml")
//  3. Built-in defaults
//
// PostgreSQL credentials and the JWT secret are loaded exclusively from the environment.
func Load() (*Config, error) {
	dotenv := os.Getenv("DOTENV_PATH")
	if dotenv == "" {
		dotenv = defaultDotenvPath
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file %s: %w", dotenv, err)
	}

	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Apply rate limiting defaults if partially configured
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute // Default window: 1 minute
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIPort == "" {
		return fmt.Errorf("api_port is required (set via config file or API_PORT env var)")
	}
	if c.HealthPort == "" {
		return fmt.Errorf("health_port is required (set via config file or HEALTH_PORT env var)")
	}
	if c.StoreVersion < 1 {
		return fmt.Errorf("store_version must be at least 1, got %d", c.StoreVersion)
	}
	if c.StoreName == "" {
		return fmt.Errorf("store_name is required")
	}

	switch c.StoreDriver {
	case database.DriverSQLite:
	case database.DriverPostgres:
		if c.DBHost == "" {
			return fmt.Errorf("POSTGRES_HOST env var is required")
		}
		if c.DBPort == "" {
			return fmt.Errorf("POSTGRES_PORT env var is required")
		}
		if c.DBUser == "" {
			return fmt.Errorf("POSTGRES_USER env var is required")
		}
		if c.DBPassword == "" {
			return fmt.Errorf("POSTGRES_PASSWORD env var is required")
		}
	default:
		return fmt.Errorf("store_driver must be %q or %q, got %q", database.DriverSQLite, database.DriverPostgres, c.StoreDriver)
	}
	return nil
}

// APIAddr returns the listen address for the API server.
func (c *Config) APIAddr() string {
	return ":" + c.APIPort
}

// HealthAddr returns the listen address for the health check server.
func (c *Config) HealthAddr() string {
	return ":" + c.HealthPort
}

// StoreConfig returns the favourites store configuration.
func (c *Config) StoreConfig() database.Config {
	return database.Config{
		Driver:      c.StoreDriver,
		Name:        c.StoreName,
		Version:     c.StoreVersion,
		ObjectStore: c.StoreObjectStore,
		Host:        c.DBHost,
		Port:        c.DBPort,
		User:        c.DBUser,
		Password:    c.DBPassword,
	}
}

// ClientConfig returns the character API client configuration.
func (c *Config) ClientConfig() characters.ClientConfig {
	return characters.ClientConfig{
		BaseURL:           c.CharacterAPIURL,
		Timeout:           c.CharacterAPITimeout,
		RequestsPerSecond: c.CharacterAPIRPS,
		Burst:             c.CharacterAPIBurst,
	}
}

// LoggingOptions returns the logger configuration.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, Format: c.LogFormat}
}

// AuthConfig returns the JWT authentication configuration.
func (c *Config) AuthConfig() auth.AuthConfig {
	return auth.AuthConfig{
		Secret:              c.JWTSecret,
		AllowUnsignedTokens: c.AllowUnsignedTokens,
		CookieName:          c.SessionCookie,
	}
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Requests int           // Max requests per window (0 = disabled)
	Window   time.Duration // Time window for rate limiting
}

// RateLimitConfig returns the rate limiting configuration.
func (c *Config) RateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: c.RateLimitRequests,
		Window:   c.RateLimitWindow,
	}
}
