package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the server's Prometheus registry: transport-level
// request metrics plus the chat pipeline observations.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatRequestsTotal *prometheus.CounterVec
	chatDuration      *prometheus.HistogramVec
	chatSources       *prometheus.HistogramVec
	streamTokensTotal *prometheus.CounterVec
	rateLimitedTotal  *prometheus.CounterVec
	snapshotRefreshes *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "district",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "district",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "district",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "district",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total completed chat requests by execution mode and routed intent.",
		},
		[]string{"service", "mode", "intent"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "district",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	chatSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "district",
			Subsystem: "chat",
			Name:      "answer_sources",
			Help:      "Distribution of cited sources per answered chat request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		},
		[]string{"service", "mode"},
	)
	streamTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "district",
			Subsystem: "chat",
			Name:      "stream_tokens_total",
			Help:      "Total tokens emitted on streaming responses.",
		},
		[]string{"service"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "district",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)
	snapshotRefreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "district",
			Subsystem: "corpus",
			Name:      "snapshot_refreshes_total",
			Help:      "Total corpus snapshot refresh attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatDuration,
		chatSources,
		streamTokensTotal,
		rateLimitedTotal,
		snapshotRefreshes,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		chatRequestsTotal: chatRequestsTotal,
		chatDuration:      chatDuration,
		chatSources:       chatSources,
		streamTokensTotal: streamTokensTotal,
		rateLimitedTotal:  rateLimitedTotal,
		snapshotRefreshes: snapshotRefreshes,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordChatRequest(service, mode, intent string, sourceCount int, duration time.Duration) {
	if intent == "" {
		intent = "unknown"
	}
	m.chatRequestsTotal.WithLabelValues(service, mode, intent).Inc()
	m.chatDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
	m.chatSources.WithLabelValues(service, mode).Observe(float64(sourceCount))
}

func (m *HTTPServerMetrics) RecordStreamTokens(service string, tokens int) {
	if tokens <= 0 {
		return
	}
	m.streamTokensTotal.WithLabelValues(service).Add(float64(tokens))
}

func (m *HTTPServerMetrics) RecordRateLimited(service, path string) {
	m.rateLimitedTotal.WithLabelValues(service, path).Inc()
}

func (m *HTTPServerMetrics) RecordSnapshotRefresh(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.snapshotRefreshes.WithLabelValues(service, outcome).Inc()
}

// statusRecorder keeps the wrapped writer usable for SSE: Flush must pass
// through or streamed events sit in the buffer until the request ends.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
