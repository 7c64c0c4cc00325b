package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

const (
	EnvPlatformEndpoint    = "ACTORMGR_PLATFORM_ENDPOINT"
	EnvPlatformToken       = "ACTORMGR_PLATFORM_TOKEN"
	EnvPlatformProject     = "ACTORMGR_PLATFORM_PROJECT"
	EnvPlatformEnvironment = "ACTORMGR_PLATFORM_ENVIRONMENT"
	EnvListenAddr          = "ACTORMGR_LISTEN_ADDR"
	EnvAPIToken            = "ACTORMGR_API_TOKEN"
	EnvMetricsAddr         = "ACTORMGR_METRICS_ADDR"
	EnvNATSURL             = "ACTORMGR_NATS_URL"
	EnvTracing             = "ACTORMGR_TRACING"
)

type fileConfig struct {
	Server   fileServer   `toml:"server" yaml:"server"`
	Platform filePlatform `toml:"platform" yaml:"platform"`
	Events   fileEvents   `toml:"events" yaml:"events"`
	Tracing  fileTracing  `toml:"tracing" yaml:"tracing"`
	Log      fileLog      `toml:"log" yaml:"log"`
}

type fileServer struct {
	ListenAddr      string   `toml:"listen_addr" yaml:"listen_addr"`
	MetricsAddr     string   `toml:"metrics_addr" yaml:"metrics_addr"`
	CORSOrigins     []string `toml:"cors_origins" yaml:"cors_origins"`
	ShutdownTimeout string   `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	APIToken        string   `toml:"api_token" yaml:"api_token"`
}

type filePlatform struct {
	Endpoint    string      `toml:"endpoint" yaml:"endpoint"`
	Token       string      `toml:"token" yaml:"token"`
	Project     string      `toml:"project" yaml:"project"`
	Environment string      `toml:"environment" yaml:"environment"`
	Timeout     string      `toml:"timeout" yaml:"timeout"`
	UserAgent   string      `toml:"user_agent" yaml:"user_agent"`
	Breaker     fileBreaker `toml:"breaker" yaml:"breaker"`
}

type fileBreaker struct {
	Enabled          bool   `toml:"enabled" yaml:"enabled"`
	MaxFailures      uint32 `toml:"max_failures" yaml:"max_failures"`
	OpenTimeout      string `toml:"open_timeout" yaml:"open_timeout"`
	HalfOpenRequests uint32 `toml:"half_open_requests" yaml:"half_open_requests"`
}

type fileEvents struct {
	NATSURL       string `toml:"nats_url" yaml:"nats_url"`
	Subject       string `toml:"subject" yaml:"subject"`
	ReconnectWait string `toml:"reconnect_wait" yaml:"reconnect_wait"`
}

type fileTracing struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

type fileLog struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// definedFunc reports whether a dotted key path was present in the source file.
type definedFunc func(key ...string) bool

// FormatOf picks the decoder from the file extension; anything other than
// .yaml/.yml is read as TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load returns Default() overlaid with path (when non-empty) and the
// ACTORMGR_* environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		cfg, err = Decode(data, FormatOf(path))
		if err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays the keys present in data onto Default(). It does not
// validate.
func Decode(data []byte, format Format) (Config, error) {
	var raw fileConfig
	var defined definedFunc
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return Config{}, err
		}
		defined = func(key ...string) bool { return yamlDefined(tree, key) }
	case FormatTOML:
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return Config{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		defined = meta.IsDefined
	default:
		return Config{}, fmt.Errorf("unknown config format: %s", format)
	}
	return overlay(Default(), raw, defined)
}

func overlay(cfg Config, raw fileConfig, defined definedFunc) (Config, error) {
	var err error

	if defined("server", "listen_addr") {
		cfg.Server.ListenAddr = strings.TrimSpace(raw.Server.ListenAddr)
	}
	if defined("server", "metrics_addr") {
		cfg.Server.MetricsAddr = strings.TrimSpace(raw.Server.MetricsAddr)
	}
	if defined("server", "cors_origins") {
		cfg.Server.CORSOrigins = normalizeList(raw.Server.CORSOrigins)
	}
	if defined("server", "shutdown_timeout") {
		if cfg.Server.ShutdownTimeout, err = parseDuration("server.shutdown_timeout", raw.Server.ShutdownTimeout); err != nil {
			return Config{}, err
		}
	}

	if defined("server", "api_token") {
		cfg.Server.APIToken = strings.TrimSpace(raw.Server.APIToken)
	}

	if defined("platform", "endpoint") {
		cfg.Platform.Endpoint = strings.TrimSpace(raw.Platform.Endpoint)
	}
	if defined("platform", "token") {
		cfg.Platform.Token = strings.TrimSpace(raw.Platform.Token)
	}
	if defined("platform", "project") {
		cfg.Platform.Project = strings.TrimSpace(raw.Platform.Project)
	}
	if defined("platform", "environment") {
		cfg.Platform.Environment = strings.TrimSpace(raw.Platform.Environment)
	}
	if defined("platform", "timeout") {
		if cfg.Platform.Timeout, err = parseDuration("platform.timeout", raw.Platform.Timeout); err != nil {
			return Config{}, err
		}
	}
	if defined("platform", "user_agent") {
		cfg.Platform.UserAgent = strings.TrimSpace(raw.Platform.UserAgent)
	}
	if defined("platform", "breaker", "enabled") {
		cfg.Platform.Breaker.Enabled = raw.Platform.Breaker.Enabled
	}
	if defined("platform", "breaker", "max_failures") {
		cfg.Platform.Breaker.MaxFailures = raw.Platform.Breaker.MaxFailures
	}
	if defined("platform", "breaker", "open_timeout") {
		if cfg.Platform.Breaker.OpenTimeout, err = parseDuration("platform.breaker.open_timeout", raw.Platform.Breaker.OpenTimeout); err != nil {
			return Config{}, err
		}
	}
	if defined("platform", "breaker", "half_open_requests") {
		cfg.Platform.Breaker.HalfOpenRequests = raw.Platform.Breaker.HalfOpenRequests
	}

	if defined("events", "nats_url") {
		cfg.Events.URL = strings.TrimSpace(raw.Events.NATSURL)
	}
	if defined("events", "subject") {
		cfg.Events.Subject = strings.TrimSpace(raw.Events.Subject)
	}
	if defined("events", "reconnect_wait") {
		if cfg.Events.ReconnectWait, err = parseDuration("events.reconnect_wait", raw.Events.ReconnectWait); err != nil {
			return Config{}, err
		}
	}

	if defined("tracing", "enabled") {
		cfg.Tracing.Enabled = raw.Tracing.Enabled
	}
	if defined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if defined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvPlatformEndpoint, &cfg.Platform.Endpoint)
	str(EnvPlatformToken, &cfg.Platform.Token)
	str(EnvPlatformProject, &cfg.Platform.Project)
	str(EnvPlatformEnvironment, &cfg.Platform.Environment)
	str(EnvListenAddr, &cfg.Server.ListenAddr)
	str(EnvMetricsAddr, &cfg.Server.MetricsAddr)
	str(EnvAPIToken, &cfg.Server.APIToken)
	str(EnvNATSURL, &cfg.Events.URL)

	if v, ok := lookup(EnvTracing); ok && strings.TrimSpace(v) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvTracing, v, err)
		}
		cfg.Tracing.Enabled = enabled
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func yamlDefined(tree map[string]any, key []string) bool {
	var node any = tree
	for _, k := range key {
		m, ok := node.(map[string]any)
		if !ok {
			return false
		}
		node, ok = m[k]
		if !ok {
			return false
		}
	}
	return true
}
