package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel     = "ACTORMGR_LOG_LEVEL"
	EnvLogTimestamp = "ACTORMGR_LOG_TIMESTAMP"
	EnvLogNoColor   = "ACTORMGR_LOG_NOCOLOR"
	EnvLogJSON      = "ACTORMGR_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logger setup for one process.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	JSON      bool
	App       string
	Out       io.Writer
}

var configureOnce sync.Once

func ConfigureRuntime(app string) {
	Configure(ProfileRuntime, app)
}

func ConfigureTests() {
	Configure(ProfileTest, "test")
}

// Configure installs the process-wide zerolog logger once.
func Configure(profile Profile, app string) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		cfg.App = app
		applyEnvOverrides(&cfg)
		Apply(cfg)
	})
}

// ConfigureWith installs the runtime profile with file settings layered
// under the ACTORMGR_LOG_* environment. It may be called again on reload.
func ConfigureWith(app, level string, json bool) zerolog.Logger {
	cfg := defaultConfig(ProfileRuntime)
	cfg.App = app
	if lvl, ok := ParseLevel(level); ok {
		cfg.Level = lvl
	}
	cfg.JSON = json
	applyEnvOverrides(&cfg)
	return Apply(cfg)
}

// Apply installs cfg process-wide. Output and level are swapped atomically so
// loggers copied earlier (request-scoped ones included) follow the change; the
// global logger itself is rebuilt only when the app name or timestamp setting
// changes.
func Apply(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	output.swap(out)
	zerolog.SetGlobalLevel(cfg.Level)
	return install(strings.TrimSpace(cfg.App), cfg.Timestamp).Level(cfg.Level)
}

// SetLevel adjusts the process-wide level, e.g. after a config reload.
func SetLevel(raw string) bool {
	lvl, ok := ParseLevel(raw)
	if !ok {
		return false
	}
	zerolog.SetGlobalLevel(lvl)
	return true
}

// Level reports the level currently enforced for every logger.
func Level() zerolog.Level {
	return zerolog.GlobalLevel()
}

type shape struct {
	app       string
	timestamp bool
}

var (
	output    = &switchWriter{}
	installMu sync.Mutex
	installed *shape
)

func install(app string, timestamp bool) zerolog.Logger {
	installMu.Lock()
	defer installMu.Unlock()

	next := shape{app: app, timestamp: timestamp}
	if installed == nil || *installed != next {
		ctx := zerolog.New(output).Level(zerolog.TraceLevel).With()
		if timestamp {
			ctx = ctx.Timestamp()
		}
		if app != "" {
			ctx = ctx.Str("app", app)
		}
		log.Logger = ctx.Logger()
		zerolog.DefaultContextLogger = &log.Logger
		installed = &next
	}
	return log.Logger
}

type writerRef struct {
	w io.Writer
}

// switchWriter forwards to the writer installed by the latest Apply.
type switchWriter struct {
	ref atomic.Pointer[writerRef]
}

func (s *switchWriter) swap(w io.Writer) {
	s.ref.Store(&writerRef{w: w})
}

func (s *switchWriter) Write(p []byte) (int, error) {
	ref := s.ref.Load()
	if ref == nil {
		return len(p), nil
	}
	return ref.w.Write(p)
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

// ParseLevel accepts the level names used in config files and env vars.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
