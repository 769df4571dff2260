package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/signups/send-invite", func(c *gin.Context) {
		c.Set("batch_id", "42")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("store unavailable"))
		c.Status(http.StatusInternalServerError)
	})
	return r, recorder
}

func TestMiddlewareNamesSpanAfterRoute(t *testing.T) {
	r, recorder := newRecordingEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/signups/send-invite", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].Name(); got != "HTTP POST /api/signups/send-invite" {
		t.Fatalf("unexpected span name %q", got)
	}
	found := false
	for _, attr := range spans[0].Attributes() {
		if attr.Key == attribute.Key("outreach.batch_id") && attr.Value.AsString() == "42" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected batch id attribute on span")
	}
}

func TestMiddlewareSkipsProbes(t *testing.T) {
	r, recorder := newRecordingEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := len(recorder.Ended()); got != 0 {
		t.Fatalf("expected no spans for probes, got %d", got)
	}
}

func TestMiddlewareMarksServerErrors(t *testing.T) {
	r, recorder := newRecordingEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Fatalf("expected recorded error event")
	}
}
