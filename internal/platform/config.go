package platform

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the connection setup for one platform client. It is passed by
// value at construction; the client keeps its own copy.
type Config struct {
	Endpoint    string
	Token       string
	Project     string
	Environment string
	Timeout     time.Duration
	UserAgent   string
	Breaker     BreakerConfig
}

// BreakerConfig controls the client circuit breaker.
type BreakerConfig struct {
	Enabled bool
	// MaxFailures is the consecutive failure count that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the probe budget while half-open.
	HalfOpenRequests uint32
}

func DefaultConfig() Config {
	return Config{
		Endpoint:  "",
		Timeout:   10 * time.Second,
		UserAgent: "actormgr",
		Breaker:   DefaultBreakerConfig(),
	}
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	c.Token = strings.TrimSpace(c.Token)
	c.Project = strings.TrimSpace(c.Project)
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = def.UserAgent
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = def.Breaker.MaxFailures
	}
	if c.Breaker.OpenTimeout <= 0 {
		c.Breaker.OpenTimeout = def.Breaker.OpenTimeout
	}
	if c.Breaker.HalfOpenRequests == 0 {
		c.Breaker.HalfOpenRequests = def.Breaker.HalfOpenRequests
	}
	return c
}

// Validate enforces the fields required to reach the platform.
func (c Config) Validate() error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("platform config missing endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("platform config endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("platform config endpoint %q must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("platform config endpoint %q missing host", endpoint)
	}
	return nil
}
