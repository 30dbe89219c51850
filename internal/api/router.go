package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the bridge endpoints. The token endpoint only exists when
// authentication is enabled.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HandleHealthz)
	r.Get("/stats", h.HandleStats)
	r.Get("/ws", h.RequireAuth(h.HandleWebSocket))
	if h.auth.Enabled() {
		r.Post("/auth/token", h.HandleToken)
	}

	return r
}

// requestLogger logs requests through the shared logger instead of chi's
// stdout logger, keeping stdout clean for data.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": ww.Status(),
				"took":   time.Since(start).String(),
			}).Debug("http request")
		})
	}
}
