package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected = errors.New("events: nats not connected")
	ErrMissingURL   = errors.New("events: missing nats url")
)

const (
	TypeActorCreated = "actor.created"

	DefaultSubject = "actormgr.actors"
	DefaultName    = "actormgr"
)

// Config selects the NATS server and subject prefix. An empty URL disables
// publishing.
type Config struct {
	URL           string
	Subject       string
	Name          string
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		Subject:       DefaultSubject,
		Name:          DefaultName,
		ReconnectWait: 2 * time.Second,
	}
}

// Enabled reports whether a NATS URL is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	c.URL = strings.TrimSpace(c.URL)
	c.Subject = strings.Trim(strings.TrimSpace(c.Subject), ".")
	if c.Subject == "" {
		c.Subject = def.Subject
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = def.Name
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = def.ReconnectWait
	}
	return c
}

// Event is the JSON body of every published message.
type Event struct {
	Type    string          `json:"type"`
	ActorID string          `json:"actorId"`
	Region  string          `json:"region,omitempty"`
	Build   string          `json:"build,omitempty"`
	Tags    actors.Tags     `json:"tags,omitempty"`
	At      time.Time       `json:"at"`
	Actor   json.RawMessage `json:"actor,omitempty"`
}

type conn interface {
	Publish(subject string, data []byte) error
	IsClosed() bool
	Drain() error
	Close()
}

// Publisher sends events over one NATS connection.
type Publisher struct {
	nc      conn
	subject string
	now     func() time.Time
}

// NewPublisher connects to cfg.URL. The connection reconnects forever.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", cfg.URL, err)
	}
	return newPublisher(nc, cfg), nil
}

func newPublisher(nc conn, cfg Config) *Publisher {
	cfg = cfg.withDefaults()
	return &Publisher{nc: nc, subject: cfg.Subject, now: time.Now}
}

// Subject returns the full subject for an event type.
func (p *Publisher) Subject(eventType string) string {
	return p.subject + "." + eventType
}

// Publish encodes ev and sends it on the subject for ev.Type.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.nc == nil || p.nc.IsClosed() {
		return ErrNotConnected
	}
	if ev.At.IsZero() {
		ev.At = p.now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", ev.Type, err)
	}
	if err := p.nc.Publish(p.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("events: publish %s: %w", ev.Type, err)
	}
	return nil
}

// ActorCreated publishes an actor.created event carrying the platform record.
func (p *Publisher) ActorCreated(ctx context.Context, a actors.Actor) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("events: encode actor %q: %w", a.ID, err)
	}
	return p.Publish(ctx, Event{
		Type:    TypeActorCreated,
		ActorID: a.ID,
		Region:  a.Region,
		Build:   a.Runtime.Build,
		Tags:    a.Tags,
		Actor:   raw,
	})
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		log.Debug().Err(err).Msg("nats drain")
	}
	p.nc.Close()
}
