package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{
		ctrl:     d.Controller,
		events:   d.Events,
		schedule: d.Schedule,
		info:     d.Info,
		card:     d.Card,
		backups:  d.Backups,
	}
	requireKey := d.Auth
	if requireKey == nil {
		requireKey = func(next http.Handler) http.Handler { return next }
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, models.ErrNotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, &models.AppError{
			Code:    "METHOD_NOT_ALLOWED",
			Message: r.Method + " not allowed on " + r.URL.Path,
			Status:  http.StatusMethodNotAllowed,
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Player
		r.Get("/player", h.getPlayer)
		r.Get("/player/card.png", h.getPlayerCard)

		// Control routes (access key required unless in open mode)
		r.Group(func(r chi.Router) {
			r.Use(requireKey)
			r.Post("/player/toggle", h.togglePlayer)
			r.Post("/player/pause", h.pausePlayer)
			r.Post("/backup", h.createBackup)
		})

		// Schedule
		r.Get("/schedule/live", h.getLiveShow)

		// System
		r.Get("/info", h.getInfo)
		r.Get("/backups", h.listBackups)

		// SSE
		r.Get("/subscribe", h.sseEvents)
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
