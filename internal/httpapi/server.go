package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/actormgr/internal/actors"
	"github.com/danmuck/actormgr/internal/auth"
	"github.com/danmuck/actormgr/internal/manager"
	"github.com/danmuck/actormgr/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Querier resolves one actor query; *manager.Driver satisfies it.
type Querier interface {
	QueryActor(ctx context.Context, q manager.Query) (actors.Actor, error)
}

type Options struct {
	Name        string
	Version     string
	CORSOrigins []string
	// Auth, when set, guards POST /actors/query. /health stays open.
	Auth auth.Validator
	// Logger pins request logging to one logger. Nil follows the process
	// logger, including level changes made after NewServer.
	Logger *zerolog.Logger
}

type querierRef struct {
	q Querier
}

type Server struct {
	opts      Options
	engine    *gin.Engine
	querier   atomic.Pointer[querierRef]
	startedAt time.Time
}

func NewServer(q Querier, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "actormgr"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{opts: opts, startedAt: time.Now()}
	s.querier.Store(&querierRef{q: q})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID(opts.Logger))
	r.Use(observability.RequestLogger(opts.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Name))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", observability.HeaderRequestID},
			ExposeHeaders: []string{observability.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.GET("/health", s.health)
	actorsGroup := r.Group("/actors")
	if opts.Auth != nil {
		actorsGroup.Use(auth.Middleware(opts.Auth))
	}
	actorsGroup.POST("/query", s.query)
	s.engine = r
	return s
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Swap replaces the querier used by subsequent requests.
func (s *Server) Swap(q Querier) {
	s.querier.Store(&querierRef{q: q})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startedAt).String(),
		"service": s.opts.Name,
		"version": s.opts.Version,
	})
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_body", Message: err.Error()})
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		s.fail(c, err)
		return
	}

	ref := s.querier.Load()
	if ref == nil || ref.q == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: "driver not configured"})
		return
	}
	a, err := ref.q.QueryActor(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, QueryResponse{Actor: a})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Int("status", status).Msg("actor query failed")
	}
	c.JSON(status, ErrorResponse{Error: codeFor(err), Message: err.Error()})
}
