package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/danmuck/actormgr/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "github.com/danmuck/actormgr/internal/platform"
	maxResponseSize = 8 << 20
	maxErrorBody    = 512
)

var (
	ErrCircuitOpen       = errors.New("platform: circuit open")
	ErrMalformedResponse = errors.New("platform: malformed response")
)

// StatusError is a non-2xx platform response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("platform: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// NotFound reports a 404 response.
func (e *StatusError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsNotFound reports whether err is a platform 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.NotFound()
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client issues authenticated JSON requests against the platform API.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// NewClient validates cfg and returns a client bound to it.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tracer: otel.Tracer(tracerName),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker("platform", cfg.Breaker)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	observability.RecordBreakerState(name, int(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("platform breaker state change")
			observability.RecordBreakerState(name, int(to))
		},
	})
}

// breakerSuccess counts client-side outcomes (4xx, caller cancellation) as
// healthy; only transport failures and 5xx trip the breaker.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status < http.StatusInternalServerError
	}
	return false
}

// Request performs one JSON request. body may be nil, pre-serialized JSON
// ([]byte or json.RawMessage), or any value encoding/json accepts. When out is
// non-nil the 2xx response body is decoded into it.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, path, method, path, query, body, out)
}

func (c *Client) do(ctx context.Context, route, method, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("platform.route", route),
		),
	)
	defer span.End()

	start := time.Now()
	status := 0
	call := func() (interface{}, error) {
		var err error
		status, err = c.roundTrip(ctx, method, path, query, body, out)
		return nil, err
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(call)
	} else {
		_, err = call()
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s %s: %w", ErrCircuitOpen, method, path, err)
	}

	elapsed := time.Since(start)
	observability.RecordPlatformRequest(method, route, status, elapsed, err == nil)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	log.Ctx(ctx).Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", elapsed).
		Err(err).
		Msg("platform request")
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	target, err := c.url(path, query)
	if err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := encodeBody(body)
		if err != nil {
			return 0, fmt.Errorf("platform: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("platform: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("platform: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("platform: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   truncate(string(bytes.TrimSpace(data)), maxErrorBody),
		}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode %s %s: %w", ErrMalformedResponse, method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) url(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.cfg.Endpoint + path)
	if err != nil {
		return "", fmt.Errorf("platform: url %q: %w", path, err)
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.cfg.Project != "" {
		q.Set("project", c.cfg.Project)
	}
	if c.cfg.Environment != "" {
		q.Set("environment", c.cfg.Environment)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
