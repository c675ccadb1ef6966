package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration shared by the server and
// the terminal client.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Match  MatchConfig  `yaml:"match"`
	Sync   SyncConfig   `yaml:"sync"`
	Words  WordsConfig  `yaml:"words"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	ClientOrigin   string        `yaml:"client_origin"`
}

// StoreConfig selects and configures the match store backend.
// Driver is one of memory, sqlite, postgres, redis, http.
type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// SQLiteConfig holds the database file path
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	URL             string        `yaml:"url"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// KeyTTL expires records on the Redis side as well; 0 leaves them to
	// the janitor.
	KeyTTL time.Duration `yaml:"key_ttl"`
}

// HTTPConfig points a client at a hosted match API.
type HTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"` // 0 means no client-side timeout
}

// AuthConfig holds the anon key signing settings
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AnonKeyTTL time.Duration `yaml:"anon_key_ttl"`
}

// MatchConfig holds match lifecycle settings
type MatchConfig struct {
	Retention       time.Duration `yaml:"retention"`
	CodeAttempts    int           `yaml:"code_attempts"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// SyncConfig holds the client sync loop settings
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// WordsConfig names optional on-disk word lists
type WordsConfig struct {
	AnswersFile string `yaml:"answers_file"`
	AllowedFile string `yaml:"allowed_file"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides (a `.env` file is loaded first when present),
// then defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = n
	}
	c.Server.ClientOrigin = getEnv("CLIENT_ORIGIN", c.Server.ClientOrigin)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.SQLite.Path = getEnv("SQLITE_PATH", c.Store.SQLite.Path)
	c.Store.Postgres.URL = getEnv("DATABASE_URL", c.Store.Postgres.URL)
	c.Store.Redis.Addr = getEnv("REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = getEnv("REDIS_PASSWORD", c.Store.Redis.Password)
	c.Store.HTTP.BaseURL = getEnv("MATCH_API_URL", c.Store.HTTP.BaseURL)
	c.Store.HTTP.APIKey = getEnv("MATCH_API_KEY", c.Store.HTTP.APIKey)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	var err error
	if c.Sync.PollInterval, err = envDuration("POLL_INTERVAL", c.Sync.PollInterval); err != nil {
		return err
	}
	if c.Match.Retention, err = envDuration("MATCH_RETENTION", c.Match.Retention); err != nil {
		return err
	}

	c.Words.AnswersFile = getEnv("WORDS_ANSWERS_FILE", c.Words.AnswersFile)
	c.Words.AllowedFile = getEnv("WORDS_ALLOWED_FILE", c.Words.AllowedFile)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 5175
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Server.HandlerTimeout == 0 {
		c.Server.HandlerTimeout = 10 * time.Second
	}
	if c.Server.ClientOrigin == "" {
		c.Server.ClientOrigin = "http://localhost:5173"
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = "./data/youme.db"
	}
	if c.Store.Postgres.MaxConnections == 0 {
		c.Store.Postgres.MaxConnections = 10
	}
	if c.Store.Postgres.MinConnections == 0 {
		c.Store.Postgres.MinConnections = 1
	}
	if c.Store.Postgres.MaxConnLifetime == 0 {
		c.Store.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Store.Postgres.MaxConnIdleTime == 0 {
		c.Store.Postgres.MaxConnIdleTime = 30 * time.Minute
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Redis.PoolSize == 0 {
		c.Store.Redis.PoolSize = 20
	}
	if c.Store.Redis.DialTimeout == 0 {
		c.Store.Redis.DialTimeout = 5 * time.Second
	}
	if c.Store.Redis.ReadTimeout == 0 {
		c.Store.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Store.Redis.WriteTimeout == 0 {
		c.Store.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Store.HTTP.BaseURL == "" {
		c.Store.HTTP.BaseURL = "http://localhost:5175"
	}

	// Auth defaults
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "dev_secret_change_me"
	}
	if c.Auth.AnonKeyTTL == 0 {
		c.Auth.AnonKeyTTL = 365 * 24 * time.Hour
	}

	// Match defaults
	if c.Match.Retention == 0 {
		c.Match.Retention = 24 * time.Hour
	}
	if c.Match.CodeAttempts == 0 {
		c.Match.CodeAttempts = 10
	}
	if c.Match.JanitorInterval == 0 {
		c.Match.JanitorInterval = 1 * time.Hour
	}

	// Sync defaults
	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = 2 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envDuration parses k as a time.Duration, keeping def when unset.
func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
