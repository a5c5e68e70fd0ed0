package app

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the dashboard.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	// SessionFirstTTL is the Redis lifetime of a session until its cookie comes back.
	SessionFirstTTL time.Duration `envconfig:"SESSION_FIRST_VISIT_TTL" default:"15m"`

	// ControllerIdle and MaxControllers bound the in-memory per-session view state.
	ControllerIdle time.Duration `envconfig:"CONTROLLER_IDLE" default:"15m"`
	MaxControllers int           `envconfig:"MAX_CONTROLLERS" default:"10000"`

	// BackendBaseURL is the analytics service host every view endpoint is built on.
	BackendBaseURL string        `envconfig:"BACKEND_BASE_URL" default:"http://localhost:8000"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"0s"`

	ViewsFile   string        `envconfig:"VIEWS_FILE"`
	DefaultView string        `envconfig:"DEFAULT_VIEW" default:"ai-insights"`
	RenderWait  time.Duration `envconfig:"RENDER_WAIT" default:"10s"`

	CurrencySymbol string `envconfig:"CURRENCY_SYMBOL" default:"₹"`
	ZeroAsAbsent   bool   `envconfig:"ZERO_AS_ABSENT" default:"false"`
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
	base, err := url.Parse(c.BackendBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return errors.New("backend base url must be an absolute http(s) url")
	}
	c.BackendBaseURL = strings.TrimRight(c.BackendBaseURL, "/")
	if c.BackendTimeout < 0 {
		return errors.New("backend timeout must not be negative")
	}
	if c.ControllerIdle <= 0 {
		return errors.New("controller idle timeout must be positive")
	}
	if c.MaxControllers <= 0 {
		return errors.New("max controllers must be positive")
	}
	if c.SessionFirstTTL < 0 {
		return errors.New("first visit session ttl must not be negative")
	}
	if c.RateLimitPerMin < 0 {
		return errors.New("rate limit must not be negative")
	}
	if strings.TrimSpace(c.DefaultView) == "" {
		return errors.New("default view must be provided")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
