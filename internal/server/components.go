package server

import (
	"github.com/danmuck/actormgr/internal/config"
	"github.com/danmuck/actormgr/internal/events"
	"github.com/danmuck/actormgr/internal/manager"
	"github.com/danmuck/actormgr/internal/platform"
	"github.com/rs/zerolog/log"
)

// components is one generation of config-derived collaborators.
type components struct {
	client    *platform.Client
	publisher *events.Publisher
	driver    *manager.Driver
}

// buildComponents wires a driver for cfg. An unreachable NATS server does not
// fail the build; the driver runs without notifications.
func buildComponents(cfg config.Config) (*components, error) {
	client, err := platform.NewClient(cfg.Platform)
	if err != nil {
		return nil, err
	}
	out := &components{client: client}

	var opts []manager.Option
	if cfg.Events.Enabled() {
		pub, err := events.NewPublisher(cfg.Events)
		if err != nil {
			log.Warn().Err(err).Msg("actor notifications disabled")
		} else {
			out.publisher = pub
			opts = append(opts, manager.WithNotifier(pub))
		}
	}
	out.driver = manager.NewDriver(client, opts...)
	return out, nil
}

func (c *components) close() {
	if c == nil {
		return
	}
	c.publisher.Close()
}
