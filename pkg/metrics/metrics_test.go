package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/poncho-chat/pkg/events"
)

func TestMetrics_CountsToolResults(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Emit(ctx, events.Event{Type: events.EventToolResult, Data: events.ToolResultData{ToolName: "add_task", Success: true, Duration: time.Millisecond}})
	m.Emit(ctx, events.Event{Type: events.EventToolResult, Data: events.ToolResultData{ToolName: "add_task", Success: true}})
	m.Emit(ctx, events.Event{Type: events.EventToolResult, Data: events.ToolResultData{ToolName: "get_weather", Success: false}})
	m.Emit(ctx, events.Event{Type: events.EventError, Data: events.ErrorData{Err: errors.New("down")}})
	m.Emit(ctx, events.Event{Type: events.EventDone, Data: events.MessageData{Content: "ok"}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("add_task", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("get_weather", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelFailures))
}

func TestMetrics_ObserveRequestAndHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("/chat", http.StatusOK, 50*time.Millisecond)
	m.ObserveRequest("/chat", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("/chat", "400")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `poncho_chat_requests_total{endpoint="/chat",status="200"} 1`)
}
