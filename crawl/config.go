package crawl

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Default values for Config.
const (
	DefaultBaseURL = "https://api.firecrawl.dev/v0"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the crawl service client.
type Config struct {
	// BaseURL is the crawl service API root. Requests go to BaseURL + "/scrape".
	BaseURL string

	// APIKey is the bearer credential for the crawl service.
	// An empty key is allowed at construction; every fetch then fails with
	// a MissingCredential error.
	APIKey string

	// Timeout bounds each fetch, including any rate-limiter wait.
	// Default: 30s
	Timeout time.Duration

	// RequestsPerSecond throttles fetch starts across the client.
	// Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the limiter bucket size when RequestsPerSecond is set.
	// Default: 1
	Burst int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the crawl service API root.
func WithBaseURL(baseURL string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithAPIKey sets the crawl service credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRateLimit throttles fetches to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// DefaultConfig returns a Config pointing at the hosted crawl service with no
// credential and no throttling.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Burst:   1,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize trims whitespace and the trailing slash from BaseURL and
// whitespace from APIKey.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.RequestsPerSecond > 0 && c.Burst < 1 {
		c.Burst = 1
	}
}

// Validate checks that the configuration is usable.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BaseURL == "" {
		return errors.New("crawl config: BaseURL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("crawl config: BaseURL must be an absolute http or https URL")
	}
	if c.Timeout <= 0 {
		return errors.New("crawl config: Timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("crawl config: RequestsPerSecond cannot be negative")
	}
	return nil
}
