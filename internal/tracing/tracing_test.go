package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddlewareRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	h := Middleware("GET /api/task-instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		SetUser(r.Context(), "alice")
		w.WriteHeader(http.StatusNotFound)
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/task-instances/x", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/task-instances/{id}", span.Name)
	assert.Equal(t, codes.Error, span.Status.Code)

	status, ok := attr(span.Attributes, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(404), status.AsInt64())

	user, ok := attr(span.Attributes, "enduser.id")
	require.True(t, ok)
	assert.Equal(t, "alice", user.AsString())
}

func TestInitDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init("workflowrest", false))
	assert.NoError(t, Shutdown(context.Background()))
}
