package app

import (
	"errors"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"60s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	// AppscriptURL is the Apps Script web app endpoint. Empty leaves the
	// backend unconfigured: pages still render but every call fails.
	AppscriptURL      string        `envconfig:"APPSCRIPT_URL"`
	ReferenceCacheTTL time.Duration `envconfig:"REFERENCE_CACHE_TTL" default:"6h"`
	UploadMaxBytes    int64         `envconfig:"UPLOAD_MAX_BYTES" default:"26214400"`

	WarmupCron string `envconfig:"WARMUP_CRON" default:"0 */6 * * *"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if c.AppscriptURL != "" {
		u, err := url.Parse(c.AppscriptURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("APPSCRIPT_URL must be an absolute URL")
		}
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("upload limit must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// BackendConfigured reports whether an Apps Script endpoint is set.
func (c *Config) BackendConfigured() bool {
	return c != nil && c.AppscriptURL != ""
}
