package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotodobbs/assistant/internal/appointment"
	"github.com/gotodobbs/assistant/internal/metrics"
	"github.com/gotodobbs/assistant/internal/router"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DefaultOrigins are the browser origins always allowed to call the API.
var DefaultOrigins = []string{"http://localhost", "http://localhost:5173", "http://127.0.0.1:5173"}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

// Deps holds everything the HTTP surface needs. Speech and Health may be nil.
type Deps struct {
	Router       *router.Router
	Appointments *appointment.Service
	Speech       Synthesizer
	SpeechLimit  *IPLimiter
	Health       Pinger
	// AdminToken protects the appointment read endpoints when non-empty.
	AdminToken string
	Origins    []string
	StaticDir  string
	Logger     *slog.Logger
}

// NewHandler returns the full HTTP API: chat, appointments, speech, health,
// metrics and the single-page app.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(CORS(deps.Origins))

	r.Get("/health", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	api := func(r chi.Router) {
		r.Post("/chat", handleChat(deps))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Recoverer)
			r.Post("/appointments", handleCreateAppointment(deps))
			r.Group(func(r chi.Router) {
				if deps.AdminToken != "" {
					r.Use(BearerAuth(deps.AdminToken))
				}
				r.Get("/appointments", handleListAppointments(deps))
				r.Get("/appointments/{id}", handleGetAppointment(deps))
			})
		})
	}
	r.Route("/api", func(r chi.Router) {
		api(r)
		r.Route("/v1", func(r chi.Router) {
			api(r)
			r.With(middleware.Recoverer).Post("/tts", handleSpeech(deps))
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpError(w, http.StatusNotFound, "not_found", "no route for %s %s", r.Method, r.URL.Path)
		})
	})
	r.With(middleware.Recoverer).Post("/tts", handleSpeech(deps))

	r.Get("/*", handleStatic(deps.StaticDir))

	return r
}

func handleHealth(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.Ping(); err != nil {
				httpError(w, http.StatusServiceUnavailable, "unavailable", "storage unreachable: %v", err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ok":     true,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// httpFieldError is httpError with per-field validation detail.
func httpFieldError(w http.ResponseWriter, fields []appointment.FieldError, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    "invalid_request_error",
			"fields":  fields,
		},
	})
}
