// Package metrics - счётчики Prometheus для HTTP слоя, модели и tools.
//
// Metrics одновременно является events.Emitter: оркестратор отправляет
// в него события прохода, а он превращает их в счётчики.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ilkoid/poncho-chat/pkg/events"
)

const namespace = "poncho_chat"

type Metrics struct {
	registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ToolCalls       *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	ModelFailures   prometheus.Counter
}

// New создаёт набор метрик в собственном реестре.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool invocations by outcome",
			},
			[]string{"tool", "outcome"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ModelFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_failures_total",
				Help:      "Model requests that ended with the fallback answer",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.ToolCalls,
		m.ToolDuration,
		m.ModelFailures,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest учитывает один HTTP запрос.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	m.RequestCount.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Emit реализует events.Emitter.
func (m *Metrics) Emit(ctx context.Context, event events.Event) {
	switch event.Type {
	case events.EventToolResult:
		data, ok := event.Data.(events.ToolResultData)
		if !ok {
			return
		}
		outcome := "success"
		if !data.Success {
			outcome = "failure"
		}
		m.ToolCalls.WithLabelValues(data.ToolName, outcome).Inc()
		m.ToolDuration.WithLabelValues(data.ToolName).Observe(data.Duration.Seconds())
	case events.EventError:
		m.ModelFailures.Inc()
	}
}

var _ events.Emitter = (*Metrics)(nil)
