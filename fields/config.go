package fields

import (
	"errors"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// DefaultSessionLifetime is the local session credential lifetime in seconds (7 days).
const DefaultSessionLifetime = 604800

// Config carries huddle-gateway system-level configuration. All of it is
// derived from the environment; Defaults fills whatever was left unset.
type Config struct {
	Port            int    `json:"port"`
	ProviderURL     string `json:"provider_url"`
	ProviderKey     string `json:"provider_key"`
	DatabaseURL     string `json:"database_url"`
	DatabasePath    string `json:"database_path"`
	DatabaseDriver  string `json:"database_driver"`
	RedisAddr       string `json:"redis_addr"`
	JWTKey          string `json:"jwt_key"`
	SessionLifetime int    `json:"session_lifetime"`
	CookieDomain    string `json:"cookie_domain"`
	Cors            string `json:"cors"`
	BaseDomain      string `json:"base_domain"`
	DefaultTenantID string `json:"default_tenant_id"`
	AdminKey        string `json:"admin_key"`
	AdminUser       string `json:"admin_user"`
	AdminPassword   string `json:"admin_password"`
	Debug           bool   `json:"debug"`
}

// ConfigFromEnv populates a Config from environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		ProviderURL:     os.Getenv("HUDDLE_PROVIDER_URL"),
		ProviderKey:     os.Getenv("HUDDLE_PROVIDER_KEY"),
		DatabaseURL:     os.Getenv("HUDDLE_DATABASE_URL"),
		DatabasePath:    os.Getenv("HUDDLE_DATABASE_PATH"),
		DatabaseDriver:  os.Getenv("HUDDLE_DATABASE_DRIVER"),
		RedisAddr:       os.Getenv("HUDDLE_REDIS_ADDR"),
		JWTKey:          os.Getenv("HUDDLE_JWT_KEY"),
		CookieDomain:    os.Getenv("HUDDLE_COOKIE_DOMAIN"),
		Cors:            os.Getenv("HUDDLE_ALLOWED_ORIGIN"),
		BaseDomain:      os.Getenv("HUDDLE_BASE_DOMAIN"),
		DefaultTenantID: os.Getenv("HUDDLE_DEFAULT_TENANT"),
		AdminKey:        os.Getenv("HUDDLE_ADMIN_KEY"),
		AdminUser:       os.Getenv("HUDDLE_ADMIN_USER"),
		AdminPassword:   os.Getenv("HUDDLE_ADMIN_PASSWORD"),
	}
	if v := os.Getenv("HUDDLE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		} else {
			log.Printf("ignoring invalid HUDDLE_PORT %q: %v", v, err)
		}
	}
	if v := os.Getenv("HUDDLE_SESSION_LIFETIME"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.SessionLifetime = secs
		} else {
			log.Printf("ignoring invalid HUDDLE_SESSION_LIFETIME %q", v)
		}
	}
	cfg.Debug = os.Getenv("HUDDLE_DEBUG") == "true"
	return cfg
}

// Defaults fills zero-valued fields with sane defaults.
func (c *Config) Defaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.SessionLifetime == 0 {
		c.SessionLifetime = DefaultSessionLifetime
	}
	if c.BaseDomain == "" {
		c.BaseDomain = "alumnihuddle.com"
	}
	if c.DatabasePath == "" && c.DatabaseURL == "" {
		c.DatabasePath = "huddle.db"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
}

// Validate reports startup configuration errors. These are fatal: the process
// must not serve traffic with a missing signing secret or provider endpoint.
func (c *Config) Validate() error {
	if c.JWTKey == "" {
		return errors.New("configuration_error: HUDDLE_JWT_KEY is required")
	}
	if c.ProviderURL == "" {
		return errors.New("configuration_error: HUDDLE_PROVIDER_URL is required")
	}
	return nil
}
