package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Audit    AuditConfig    `yaml:"audit"`
}

type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Mode          string `yaml:"mode"`
	SecureCookies bool   `yaml:"secure_cookies"`
	Timezone      string `yaml:"timezone"`

	// TrustedProxies may set X-Forwarded-For. Empty trusts none.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type DatabaseConfig struct {
	Type   string       `yaml:"type"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Charset  string `yaml:"charset"`
}

type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	Secret     string `yaml:"secret"`
	ExpiresIn  string `yaml:"expires_in"`
}

type AuditConfig struct {
	Retention string `yaml:"retention"`
}

type SecurityConfig struct {
	CSRF      CSRFConfig      `yaml:"csrf"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Login     LoginConfig     `yaml:"login"`
	Recaptcha RecaptchaConfig `yaml:"recaptcha"`
}

type CSRFConfig struct {
	Enabled bool   `yaml:"enabled"`
	Key     string `yaml:"key"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type LoginConfig struct {
	ChallengeThreshold int `yaml:"challenge_threshold"`
}

type RecaptchaConfig struct {
	SiteKey string `yaml:"site_key"`
}

const (
	DefaultBackendURL         = "http://localhost:3001/api"
	DefaultCookieName         = "acceso_session"
	DefaultChallengeThreshold = 3
)

// Load reads the configuration file and environment variables
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	if backendURL := os.Getenv("ACCESO_BACKEND_URL"); backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}

	if secret := os.Getenv("ACCESO_SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	if csrfKey := os.Getenv("ACCESO_CSRF_KEY"); csrfKey != "" {
		cfg.Security.CSRF.Key = csrfKey
	}

	if dbType := os.Getenv("ACCESO_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
	}

	if dbPath := os.Getenv("ACCESO_DB_PATH"); dbPath != "" {
		cfg.Database.SQLite.Path = dbPath
	}

	if mysqlHost := os.Getenv("ACCESO_MYSQL_HOST"); mysqlHost != "" {
		cfg.Database.MySQL.Host = mysqlHost
	}

	if mysqlUser := os.Getenv("ACCESO_MYSQL_USER"); mysqlUser != "" {
		cfg.Database.MySQL.Username = mysqlUser
	}

	if mysqlPass := os.Getenv("ACCESO_MYSQL_PASSWORD"); mysqlPass != "" {
		cfg.Database.MySQL.Password = mysqlPass
	}

	if mysqlDB := os.Getenv("ACCESO_MYSQL_DATABASE"); mysqlDB != "" {
		cfg.Database.MySQL.Database = mysqlDB
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists for SQLite
	if cfg.Database.Type == "sqlite" {
		dataDir := filepath.Dir(cfg.Database.SQLite.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyDefaults fills in every value the file left empty.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = "Local"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendURL
	}
	if c.Backend.Timeout == "" {
		c.Backend.Timeout = "10s"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "data/acceso.db"
	}
	if c.Database.MySQL.Port == 0 {
		c.Database.MySQL.Port = 3306
	}
	if c.Database.MySQL.Charset == "" {
		c.Database.MySQL.Charset = "utf8mb4"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.ExpiresIn == "" {
		c.Session.ExpiresIn = "24h"
	}
	if c.Security.Login.ChallengeThreshold <= 0 {
		c.Security.Login.ChallengeThreshold = DefaultChallengeThreshold
	}
	if c.Security.RateLimit.RequestsPerMinute <= 0 {
		c.Security.RateLimit.RequestsPerMinute = 30
	}
	if c.Audit.Retention == "" {
		c.Audit.Retention = "2160h"
	}
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
	case "mysql":
		if c.Database.MySQL.Username == "" {
			return fmt.Errorf("MySQL username is required")
		}
		if c.Database.MySQL.Database == "" {
			return fmt.Errorf("MySQL database name is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required (session.secret or ACCESO_SESSION_SECRET)")
	}

	if c.Security.CSRF.Enabled && len(c.Security.CSRF.Key) < 32 {
		return fmt.Errorf("csrf key must be at least 32 bytes")
	}

	if _, err := c.BackendTimeout(); err != nil {
		return err
	}
	if _, err := c.SessionTTL(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.AuditRetention(); err != nil {
		return err
	}

	return nil
}

// BackendTimeout returns the per-request backend timeout; zero means no
// client-side limit.
func (c *Config) BackendTimeout() (time.Duration, error) {
	if c.Backend.Timeout == "" || c.Backend.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
	}
	return d, nil
}

// SessionTTL returns how long a login session lives.
func (c *Config) SessionTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.ExpiresIn)
	if err != nil {
		return 0, fmt.Errorf("invalid session expires_in %q: %w", c.Session.ExpiresIn, err)
	}
	return d, nil
}

// Location returns the time zone used to read datetime-local form values.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid server timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// AuditRetention returns how long audit entries are kept; zero keeps them
// forever.
func (c *Config) AuditRetention() (time.Duration, error) {
	if c.Audit.Retention == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Audit.Retention)
	if err != nil {
		return 0, fmt.Errorf("invalid audit retention %q: %w", c.Audit.Retention, err)
	}
	return d, nil
}
