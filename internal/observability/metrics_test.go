package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/actormgr/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("managerd-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordPlatformRequest("GET", "/actors", 200, 24*time.Millisecond, true)
	RecordBreakerState("platform", 0)

	before := testutil.ToFloat64(queries.WithLabelValues("get_for_id", "ok"))
	RecordQuery("get_for_id", "ok", 3*time.Millisecond)
	if got := testutil.ToFloat64(queries.WithLabelValues("get_for_id", "ok")); got != before+1 {
		t.Fatalf("query counter=%v want %v", got, before+1)
	}

	created := testutil.ToFloat64(actorsCreated)
	RecordActorCreated()
	if got := testutil.ToFloat64(actorsCreated); got != created+1 {
		t.Fatalf("created counter=%v want %v", got, created+1)
	}
}

func TestMiddlewareAssignsRequestIDAndLogs(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestID(&logger), RequestLogger(&logger), RequestMetricsMiddleware("managerd-test"))
	r.GET("/ping", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside handler")
		c.String(http.StatusOK, "pong")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	id := rr.Header().Get(HeaderRequestID)
	if id == "" {
		t.Fatalf("expected minted request id header")
	}
	out := buf.String()
	if strings.Count(out, id) < 2 {
		t.Fatalf("request id not bound to handler and access logs: %s", out)
	}
	if !strings.Contains(out, `"message":"http_request"`) {
		t.Fatalf("missing access log line: %s", out)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-fixed")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); got != "req-fixed" {
		t.Fatalf("inbound request id not propagated: %q", got)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	testlog.Start(t)
	prev := otel.GetTracerProvider()
	shutdown, err := InitTracing(false, nil)
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Fatalf("disabled tracing replaced the global provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestRequestIDFollowsProcessLevel(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var got zerolog.Level
	r := gin.New()
	r.Use(RequestID(nil))
	r.GET("/level", func(c *gin.Context) {
		got = zerolog.Ctx(c.Request.Context()).GetLevel()
		c.Status(http.StatusNoContent)
	})

	for _, want := range []zerolog.Level{zerolog.WarnLevel, zerolog.DebugLevel} {
		zerolog.SetGlobalLevel(want)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/level", nil))
		if got != want {
			t.Fatalf("request logger level=%v want %v", got, want)
		}
	}
}
