package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/actormgr/internal/events"
	"github.com/danmuck/actormgr/internal/logging"
	"github.com/danmuck/actormgr/internal/platform"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the full runtime configuration for managerd and actorctl.
type Config struct {
	Server   ServerConfig
	Platform platform.Config
	Events   events.Config
	Tracing  TracingConfig
	Log      LogConfig
}

type ServerConfig struct {
	ListenAddr      string
	MetricsAddr     string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	// APIToken, when set, is required as a bearer token on the query API.
	APIToken string
}

type TracingConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
	JSON  bool
}

const DefaultEndpoint = "https://api.rivet.gg"

func Default() Config {
	plat := platform.DefaultConfig()
	plat.Endpoint = DefaultEndpoint
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: 10 * time.Second,
		},
		Platform: plat,
		Events:   events.DefaultConfig(),
		Log:      LogConfig{Level: "info"},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return fmt.Errorf("%w: server.listen_addr is required", ErrInvalidConfig)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", ErrInvalidConfig)
	}
	for i, origin := range c.Server.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("%w: server.cors_origins[%d] is empty", ErrInvalidConfig, i)
		}
	}
	if err := c.Platform.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Platform.Timeout < 0 {
		return fmt.Errorf("%w: platform.timeout must not be negative", ErrInvalidConfig)
	}
	if level := strings.TrimSpace(c.Log.Level); level != "" {
		if _, ok := logging.ParseLevel(level); !ok {
			return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, level)
		}
	}
	return nil
}
