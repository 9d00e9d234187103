// Package server - HTTP слой чата.
//
//	POST /chat     {"message": "..."} → {response, toolsUsed, timestamp}
//	GET  /healthz  → {"status": "ok"}
//	GET  /metrics  → Prometheus (если метрики подключены)
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ilkoid/poncho-chat/internal/agent"
	"github.com/ilkoid/poncho-chat/pkg/config"
	"github.com/ilkoid/poncho-chat/pkg/metrics"
	"github.com/ilkoid/poncho-chat/pkg/tools"
	"github.com/ilkoid/poncho-chat/pkg/utils"
)

// maxBodyBytes - предел размера тела запроса /chat.
const maxBodyBytes = 1 << 20

// timestampLayout - ISO-8601 в UTC с миллисекундами.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Chatter - то, что умеет обработать одно сообщение.
// *agent.Orchestrator реализует этот интерфейс.
type Chatter interface {
	Run(ctx context.Context, message string) agent.Exchange
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string             `json:"response"`
	ToolsUsed []tools.CallResult `json:"toolsUsed"`
	Timestamp string             `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Server struct {
	chat       Chatter
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// New создаёт сервер. metrics может быть nil.
func New(cfg config.ServerConfig, chat Chatter, m *metrics.Metrics) *Server {
	cfg = cfg.GetDefaults()

	s := &Server{chat: chat, metrics: m}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler возвращает корневой http.Handler со всеми маршрутами.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/chat", s.instrument("/chat", http.HandlerFunc(s.chatHandler)))
	mux.Handle("/healthz", s.instrument("/healthz", http.HandlerFunc(s.healthHandler)))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Addr - адрес, на котором слушает сервер.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start блокирует до остановки сервера. Штатный Shutdown не считается ошибкой.
func (s *Server) Start() error {
	utils.Info("HTTP server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown дожидается завершения активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	utils.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	var req chatRequest
	// Пустое тело - это тот же запрос без message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Debug("Invalid chat request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
		return
	}

	ex := s.chat.Run(r.Context(), message)

	used := ex.ToolsUsed
	if used == nil {
		used = []tools.CallResult{}
	}
	ts := ex.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	utils.Info("Chat request served",
		"request_id", ex.RequestID,
		"tools_used", len(used))

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  ex.Response,
		ToolsUsed: used,
		Timestamp: ts.UTC().Format(timestampLayout),
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument перехватывает панику (→ 500) и учитывает запрос в метриках.
func (s *Server) instrument(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				utils.Error("Handler panicked", "endpoint", endpoint, "panic", p)
				if !rec.wroteHeader {
					writeJSON(rec, http.StatusInternalServerError, errorResponse{
						Error:   "Internal server error",
						Message: fmt.Sprint(p),
					})
				}
			}
			if s.metrics != nil {
				s.metrics.ObserveRequest(endpoint, rec.status, time.Since(start))
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// writeJSON сериализует тело целиком до записи заголовков, чтобы ошибка
// кодирования превратилась в 500, а не в обрезанный ответ.
func writeJSON(w http.ResponseWriter, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		utils.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(errorResponse{Error: "Internal server error", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}
