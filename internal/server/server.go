package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/actormgr/internal/auth"
	"github.com/danmuck/actormgr/internal/config"
	"github.com/danmuck/actormgr/internal/httpapi"
	"github.com/danmuck/actormgr/internal/logging"
	"github.com/danmuck/actormgr/internal/observability"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const Name = "managerd"

// Version is stamped at build time with -ldflags.
var Version = "dev"

type Service struct {
	path string
	cfg  config.Config

	api *httpapi.Server

	mu      sync.Mutex
	current *components
}

// New loads path (defaults and environment only when empty) and builds the
// first driver generation.
func New(path string) (*Service, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(path, cfg)
}

func NewWithConfig(path string, cfg config.Config) (*Service, error) {
	applyLogConfig(cfg.Log)
	comps, err := buildComponents(cfg)
	if err != nil {
		return nil, err
	}
	s := &Service{path: path, cfg: cfg, current: comps}
	s.api = httpapi.NewServer(comps.driver, httpapi.Options{
		Name:        Name,
		Version:     Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		Auth:        apiAuth(cfg.Server.APIToken),
	})
	return s, nil
}

// Handler exposes the query API handler.
func (s *Service) Handler() http.Handler {
	return s.api.Handler()
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(s.cfg.Tracing.Enabled, os.Stdout)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	apiLn, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.ListenAddr, err)
	}
	var metricsLn net.Listener
	if addr := strings.TrimSpace(s.cfg.Server.MetricsAddr); addr != "" {
		metricsLn, err = net.Listen("tcp", addr)
		if err != nil {
			closeListeners(apiLn)
			return fmt.Errorf("listen %s: %w", addr, err)
		}
	}

	if s.path != "" {
		w, err := s.watch()
		if err != nil {
			closeListeners(apiLn, metricsLn)
			return err
		}
		defer w.Stop()
	}
	return s.Serve(ctx, apiLn, metricsLn)
}

func (s *Service) watch() (*config.Watcher, error) {
	w, err := config.NewWatcher(s.path, 0)
	if err != nil {
		return nil, err
	}
	w.OnChange(s.reload)
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}

func closeListeners(lns ...net.Listener) {
	for _, ln := range lns {
		if ln != nil {
			_ = ln.Close()
		}
	}
}

// Serve runs the API on apiLn and metrics on metricsLn (optional) until ctx
// ends, then shuts both down within the configured timeout.
func (s *Service) Serve(ctx context.Context, apiLn, metricsLn net.Listener) error {
	observability.RegisterMetrics()
	servers := []*http.Server{{Handler: s.api.Handler(), ReadHeaderTimeout: 10 * time.Second}}
	listeners := []net.Listener{apiLn}
	if metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		servers = append(servers, &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		listeners = append(listeners, metricsLn)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range servers {
		srv, ln := servers[i], listeners[i]
		g.Go(func() error {
			log.Info().Str("addr", ln.Addr().String()).Msg("managerd listening")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", ln.Addr(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	s.mu.Lock()
	s.current.close()
	s.current = nil
	s.mu.Unlock()
	log.Info().Err(err).Msg("managerd stopped")
	return err
}

// reload rebuilds the driver for next and swaps it in. A build failure keeps
// the running driver.
func (s *Service) reload(old, next config.Config) {
	if old.Server.ListenAddr != next.Server.ListenAddr || old.Server.MetricsAddr != next.Server.MetricsAddr {
		log.Warn().Msg("listen address changes apply after restart")
	}
	applyLogConfig(next.Log)

	comps, err := buildComponents(next)
	if err != nil {
		log.Error().Err(err).Msg("config reload rejected")
		return
	}
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		comps.close()
		return
	}
	prev := s.current
	s.current = comps
	s.mu.Unlock()

	s.api.Swap(comps.driver)
	prev.close()
	log.Info().Str("endpoint", next.Platform.Endpoint).Msg("driver reloaded")
}

func apiAuth(token string) auth.Validator {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return auth.StaticToken{Token: strings.TrimSpace(token)}
}

func applyLogConfig(cfg config.LogConfig) {
	logging.ConfigureWith(Name, cfg.Level, cfg.JSON)
}
