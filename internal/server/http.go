package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/happykoalaa/koala-counseling-server/internal/audio"
	"github.com/happykoalaa/koala-counseling-server/internal/metrics"
	"github.com/happykoalaa/koala-counseling-server/internal/pipeline"
	"github.com/happykoalaa/koala-counseling-server/internal/quota"
	"github.com/happykoalaa/koala-counseling-server/internal/store"
)

const (
	serviceName    = "koala-counseling-server"
	serviceVersion = "1.0.0"
)

// availableRoutes is reported in 404 bodies so the intake form can
// self-diagnose misconfigured URLs.
var availableRoutes = []string{
	"GET /",
	"GET /api/health",
	"GET /api/usage",
	"GET /api/records",
	"GET /metrics",
	"POST /api/test-audio",
	"POST /api/process-audio",
}

// RecordLister is the read side of the record store consumed by the API.
type RecordLister interface {
	List(ctx context.Context, page int) ([]store.Record, error)
	Count(ctx context.Context) (int, error)
}

// HTTPServerConfig contains HTTP server configuration
type HTTPServerConfig struct {
	Port    int
	Address string
}

// HTTPServer provides the counseling intake HTTP API
type HTTPServer struct {
	server       *http.Server
	logger       *slog.Logger
	orchestrator *pipeline.Orchestrator
	records      RecordLister
	usage        *quota.Tracker
	metrics      *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates the API server with all routes configured
func NewHTTPServer(cfg HTTPServerConfig, logger *slog.Logger,
	orchestrator *pipeline.Orchestrator, records RecordLister,
	usage *quota.Tracker, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:       logger,
		orchestrator: orchestrator,
		records:      records,
		usage:        usage,
		metrics:      m,
		startTime:    time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      h.withCORS(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/process-audio", h.withMetrics("/api/process-audio", h.handleProcessAudio))
	mux.HandleFunc("/api/test-audio", h.withMetrics("/api/test-audio", h.handleTestAudio))
	mux.HandleFunc("/api/records", h.withMetrics("/api/records", h.handleRecords))
	mux.HandleFunc("/api/usage", h.withMetrics("/api/usage", h.handleUsage))
	mux.HandleFunc("/api/health", h.withMetrics("/api/health", h.handleHealth))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint doubles as the 404 handler for unknown paths
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withCORS allows the browser intake form to call the API from any origin.
// Preflight requests are answered with 200 immediately.
func (h *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := strconv.Itoa(ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// Handler returns the root handler, used by tests.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response encode failed", slog.String("error", err.Error()))
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// handleProcessAudio implements POST /api/process-audio
func (h *HTTPServer) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Bound the whole request body; 1 MB of headroom over the audio limit
	// covers the multipart framing and text fields.
	r.Body = http.MaxBytesReader(w, r.Body, audio.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(audio.MaxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "잘못된 업로드 형식입니다")
		return
	}

	student := r.FormValue("student")
	mood := r.FormValue("mood")
	language := r.FormValue("language")

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "음성 파일이 필요합니다")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "음성 파일을 읽을 수 없습니다")
		return
	}

	input := &audio.Input{
		Data:     data,
		MIMEType: header.Header.Get("Content-Type"),
		Language: language,
	}
	if err := input.Validate(); err != nil {
		h.logger.Warn("upload rejected",
			slog.String("student", student),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusBadRequest, "지원하지 않는 파일 형식입니다")
		return
	}

	result, err := h.orchestrator.Process(r.Context(), pipeline.Request{
		Student:  student,
		Mood:     mood,
		Language: language,
		Audio:    input,
	})
	if err != nil {
		h.respondProcessError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "음성 처리 완료",
		"data": map[string]any{
			"originalText":   result.OriginalText,
			"translatedText": result.TranslatedText,
			"language":       language,
			"priority":       result.Priority,
			"mode":           result.Mode,
			"timestamp":      result.Timestamp.Format(time.RFC3339),
			"usage":          result.Usage,
		},
	})
}

// respondProcessError maps pipeline errors to HTTP status codes.
func (h *HTTPServer) respondProcessError(w http.ResponseWriter, err error) {
	var quotaErr *pipeline.QuotaExceededError
	switch {
	case errors.Is(err, pipeline.ErrMissingAudio):
		h.writeError(w, http.StatusBadRequest, "음성 파일이 필요합니다")
	case errors.As(err, &quotaErr):
		h.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success": false,
			"error":   "오늘의 음성 처리 한도를 초과했습니다",
			"usage":   quotaErr.Usage,
		})
	default:
		h.logger.Error("audio processing failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "서버 내부 오류가 발생했습니다")
	}
}

// handleTestAudio implements POST /api/test-audio, a connectivity check for
// the intake form that returns a canned simulation response.
func (h *HTTPServer) handleTestAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "연결 테스트 완료",
		"data": map[string]any{
			"originalText":   "테스트 음성입니다",
			"translatedText": "테스트 음성입니다",
			"language":       "korean",
			"mode":           pipeline.ModeSimulation,
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// recordResponse renames the compact storage fields to full names.
type recordResponse struct {
	Student        string `json:"student"`
	Mood           string `json:"mood"`
	Language       string `json:"language"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	Date           string `json:"date"`
	Priority       string `json:"priority"`
}

// handleRecords implements GET /api/records?page=N
func (h *HTTPServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	records, err := h.records.List(r.Context(), page)
	if err != nil {
		h.logger.Error("record listing failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "기록을 불러올 수 없습니다")
		return
	}

	total, err := h.records.Count(r.Context())
	if err != nil {
		h.logger.Error("record count failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "기록을 불러올 수 없습니다")
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			Student:        rec.Student,
			Mood:           rec.Mood,
			Language:       rec.Language,
			OriginalText:   rec.OriginalText,
			TranslatedText: rec.TranslatedText,
			Date:           rec.CreatedAt.UTC().Format(time.RFC3339),
			Priority:       rec.Priority,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"page":    page,
		"count":   len(out),
		"total":   total,
		"records": out,
	})
}

// handleUsage implements GET /api/usage
func (h *HTTPServer) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.usage.CheckAndReset()
	snap := h.usage.Snapshot()
	h.metrics.RecordUsage(snap.SpeechMinutesUsed, snap.TranslateCharsUsed)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"usage":   snap,
	})
}

// handleHealth implements GET /api/health
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	mode := "SIMULATION"
	if h.orchestrator.AIReady() {
		mode = "AI_READY"
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"message":   "서버가 정상 작동 중입니다",
		"mode":      mode,
		"uptime":    time.Since(h.startTime).String(),
		"usage":     h.usage.Snapshot(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service": map[string]any{
			"name":    serviceName,
			"version": serviceVersion,
		},
	})
}

// handleRoot implements GET / and the JSON 404 for unknown paths
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeJSON(w, http.StatusNotFound, map[string]any{
			"error":           "요청하신 API를 찾을 수 없습니다",
			"availableRoutes": availableRoutes,
		})
		return
	}

	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "🐨 안녕하세요! 코알라 다문화 상담 서버입니다!",
		"version":   serviceVersion,
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
