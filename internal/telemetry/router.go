package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/wavekeeper/internal/admin"
	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
)

// maxBodyBytes caps admin request bodies.
const maxBodyBytes = 4 << 10

// RouterConfig holds the dependencies of the HTTP surface.
type RouterConfig struct {
	Runtime   admin.Runtime
	Commands  *admin.Handler // nil disables POST /admin/command
	Collector *Collector     // nil disables /metrics
	Gatherer  prometheus.Gatherer

	// Admin mounts the mutating /admin routes.
	Admin          bool
	RateLimit      RateLimitConfig
	CORSOrigins    []string
	DisableLogging bool
}

// NewRouter builds the HTTP handler for cfg.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(requestLogger)
	}
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{rt: cfg.Runtime, cmds: cfg.Commands}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/snapshot", h.handleSnapshot)

	if cfg.Collector != nil {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		collector := cfg.Collector
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			collector.Observe(cfg.Runtime.Snapshot())
			metrics.ServeHTTP(w, req)
		})
	}

	if cfg.Admin {
		limiter := newIPRateLimiter(cfg.RateLimit)
		r.Route("/admin", func(r chi.Router) {
			r.Use(limiter.middleware)

			r.Post("/waves/force", h.handleForce)
			r.Post("/waves/jump", h.handleJump)
			for _, action := range []string{"pause", "resume", "restart", "stop", "start"} {
				r.Post("/waves/"+action, h.handleLifecycle(action))
			}
			r.Post("/units/clear", h.handleClear)
			r.Post("/strategy", h.handleStrategy)
			r.Post("/points/{id}/enable", h.handlePoint(true))
			r.Post("/points/{id}/disable", h.handlePoint(false))
			if cfg.Commands != nil {
				r.Post("/command", h.handleCommand)
			}
		})
	}

	return r
}

type handlers struct {
	rt   admin.Runtime
	cmds *admin.Handler
}

func (h *handlers) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newSnapshotView(h.rt.Snapshot()))
}

type forceRequest struct {
	Count    int32  `json:"count"`
	Interval string `json:"interval"`
}

func (h *handlers) handleForce(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Count < 1 || req.Count > admin.MaxForcedCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", admin.MaxForcedCount))
		return
	}
	var interval time.Duration
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid interval")
			return
		}
		interval = d
	}

	id, err := h.rt.ForceSpawnWave(req.Count, interval)
	if err != nil {
		writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job": uint64(id), "count": req.Count})
}

func (h *handlers) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wave int32 `json:"wave"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.rt.JumpToWave(req.Wave); err != nil {
		writeRuntimeError(w, err)
		return
	}
	h.writeWave(w)
}

func (h *handlers) handleLifecycle(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var err error
		switch action {
		case "pause":
			err = h.rt.PauseWave()
		case "resume":
			err = h.rt.ResumeWave()
		case "restart":
			err = h.rt.RestartWave()
		case "stop":
			h.rt.StopWaves()
		case "start":
			err = h.rt.StartWaves()
		}
		if err != nil {
			writeRuntimeError(w, err)
			return
		}
		h.writeWave(w)
	}
}

func (h *handlers) handleClear(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"cleared": h.rt.ClearAllManagedUnits()})
}

func (h *handlers) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := spawn.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.rt.SetStrategy(kind)
	writeJSON(w, http.StatusOK, map[string]string{"strategy": kind.String()})
}

func (h *handlers) handlePoint(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid point id")
			return
		}
		if err := h.rt.SetPointEnabled(id, enabled); err != nil {
			writeRuntimeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"point": id, "enabled": enabled})
	}
}

func (h *handlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Line string `json:"line"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	reply, err := h.cmds.Handle(req.Line)
	if err != nil {
		writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *handlers) writeWave(w http.ResponseWriter) {
	s := h.rt.Snapshot().Wave
	writeJSON(w, http.StatusOK, map[string]any{
		"wave":  s.Number,
		"name":  s.Name,
		"state": s.State.String(),
	})
}

// statusFor maps runtime errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, admin.ErrUsage),
		errors.Is(err, admin.ErrEmptyCommand),
		errors.Is(err, admin.ErrUnknownCommand),
		errors.Is(err, wave.ErrInvalidWave):
		return http.StatusBadRequest
	case errors.Is(err, spawn.ErrPointUnavailable),
		errors.Is(err, admin.ErrNoSuchUnit):
		return http.StatusNotFound
	case errors.Is(err, wave.ErrInvalidState),
		errors.Is(err, wave.ErrNoWaveData),
		errors.Is(err, spawn.ErrNotActive):
		return http.StatusConflict
	case errors.Is(err, horde.ErrNoTemplate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeRuntimeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("admin request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "error", err)
	}
}

// requestLogger logs each request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
