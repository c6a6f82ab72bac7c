package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"confessionrelay/internal/config"
	"confessionrelay/internal/logger"
	"confessionrelay/internal/middleware"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatusHandler serves the liveness and statistics pages.
type StatusHandler struct {
	stats           StatsProvider
	db              Pinger
	botUsername     string
	supportUsername string
	log             *logger.Logger
}

func NewStatusHandler(stats StatsProvider, db Pinger, botUsername, supportUsername string, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		stats:           stats,
		db:              db,
		botUsername:     botUsername,
		supportUsername: supportUsername,
		log:             log,
	}
}

// NewRouter builds the HTTP surface with its middleware stack.
func NewRouter(h *StatusHandler, limiter *middleware.RateLimiter, metricsCfg config.MetricsConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))
	r.Use(middleware.MonitorMiddleware)
	r.Use(limiter.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/", h.Home)
	r.Get("/health", h.Health)
	r.Get("/stats", h.StatsPage)
	r.Get("/api/stats", h.StatsJSON)
	r.With(middleware.BasicAuthMiddleware(metricsCfg.User, metricsCfg.Password)).Handle("/metrics", promhttp.Handler())

	return r
}

func (h *StatusHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<h1>✅ Bot de Confesiones Anónimas - ONLINE</h1>
<p>🤖 Bot: @%s</p>
<p>👤 Admin: @%s</p>
<p>📊 Estado: Funcionando 24/7</p>
`, html.EscapeString(h.botUsername), html.EscapeString(h.supportUsername))
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (h *StatusHandler) StatsPage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.log.Error("failed to load stats", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<h1>📊 Estadísticas del Bot</h1>
<p>Total confesiones: %d</p>
<p>Confesiones hoy: %d</p>
`, stats.Total, stats.Today)
}

func (h *StatusHandler) StatsJSON(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.log.Error("failed to load stats", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
