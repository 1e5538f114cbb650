package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/valleyair/district-assistant/internal/core/domain"
	"github.com/valleyair/district-assistant/internal/core/ports"
	"github.com/valleyair/district-assistant/internal/observability/metrics"
)

type Router struct {
	assistant ports.Assistant
	metrics   *metrics.HTTPServerMetrics
	service   string
	limiter   *rate.Limiter
}

func NewRouter(assistant ports.Assistant, m *metrics.HTTPServerMetrics, service string, limiter *rate.Limiter) *Router {
	return &Router{
		assistant: assistant,
		metrics:   m,
		service:   service,
		limiter:   limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat/query", rt.chatQuery)
	mux.HandleFunc("/v1/chat/stream", rt.chatStream)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.rateLimitMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Query string `json:"query"`
}

func (rt *Router) chatQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	answer, err := rt.assistant.Answer(r.Context(), req.Query)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordChatRequest(rt.service, "blocking", string(answer.Intent), len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) chatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	events, err := rt.assistant.Stream(r.Context(), req.Query)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	intent := domain.IntentGeneral
	tokens := 0
	sources := 0
	for ev := range events {
		switch ev.Type {
		case domain.EventToken:
			tokens++
		case domain.EventAirQuality, domain.EventLocationNeeded:
			intent = domain.IntentAirQuality
		case domain.EventAnswer:
			sources = len(ev.Sources)
		}
		if err := stream.writeEvent(ev); err != nil {
			// The client went away; the workflow notices via context.
			return
		}
	}
	_ = stream.writeDone()

	if rt.metrics != nil {
		rt.metrics.RecordChatRequest(rt.service, "streaming", string(intent), sources, time.Since(start))
		rt.metrics.RecordStreamTokens(rt.service, tokens)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
