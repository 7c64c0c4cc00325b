package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const templateHeader = "# actormgr configuration. Unset keys keep their defaults.\n"

// Template renders Default() in the requested format.
func Template(format Format) (string, error) {
	return Render(Default(), format)
}

// Render encodes cfg in the file layout Load accepts.
func Render(cfg Config, format Format) (string, error) {
	raw := fromConfig(cfg)
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatTOML:
		data, err = toml.Marshal(raw)
	case FormatYAML:
		data, err = yaml.Marshal(raw)
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
	if err != nil {
		return "", fmt.Errorf("config encode failed: %w", err)
	}
	return templateHeader + string(data), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template(FormatOf(path))
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

func fromConfig(cfg Config) fileConfig {
	return fileConfig{
		Server: fileServer{
			ListenAddr:      cfg.Server.ListenAddr,
			MetricsAddr:     cfg.Server.MetricsAddr,
			CORSOrigins:     cfg.Server.CORSOrigins,
			ShutdownTimeout: cfg.Server.ShutdownTimeout.String(),
			APIToken:        cfg.Server.APIToken,
		},
		Platform: filePlatform{
			Endpoint:    cfg.Platform.Endpoint,
			Token:       cfg.Platform.Token,
			Project:     cfg.Platform.Project,
			Environment: cfg.Platform.Environment,
			Timeout:     cfg.Platform.Timeout.String(),
			UserAgent:   cfg.Platform.UserAgent,
			Breaker: fileBreaker{
				Enabled:          cfg.Platform.Breaker.Enabled,
				MaxFailures:      cfg.Platform.Breaker.MaxFailures,
				OpenTimeout:      cfg.Platform.Breaker.OpenTimeout.String(),
				HalfOpenRequests: cfg.Platform.Breaker.HalfOpenRequests,
			},
		},
		Events: fileEvents{
			NATSURL:       cfg.Events.URL,
			Subject:       cfg.Events.Subject,
			ReconnectWait: cfg.Events.ReconnectWait.String(),
		},
		Tracing: fileTracing{Enabled: cfg.Tracing.Enabled},
		Log:     fileLog{Level: cfg.Log.Level, JSON: cfg.Log.JSON},
	}
}
