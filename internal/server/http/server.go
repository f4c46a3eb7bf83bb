// Package httpserver exposes the catalog, auth and chat services over HTTP
// and hosts the single-page front end.
package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/grader-market/internal/edgecache"
	"github.com/and161185/grader-market/internal/metrics"
	"github.com/and161185/grader-market/internal/model"
	"github.com/and161185/grader-market/internal/service"
)

const defaultMaxUpload = 8 << 20

// ChatResponder answers chat widget messages.
type ChatResponder interface {
	Reply(ctx context.Context, clientID, input string, consent bool) model.ChatReply
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Auth     service.AuthService
	Listings service.ListingService
	Chat     ChatResponder
	Metrics  *metrics.Metrics // optional
	Log      *zap.Logger

	StaticDir      string
	MaxUploadBytes int64
}

// Server routes HTTP requests to services.
type Server struct {
	auth     service.AuthService
	listings service.ListingService
	chat     ChatResponder
	metrics  *metrics.Metrics
	log      *zap.Logger
	spa      *spa

	maxUpload int64
}

// New builds a Server from deps.
func New(d Deps) *Server {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = defaultMaxUpload
	}
	return &Server{
		auth:      d.Auth,
		listings:  d.Listings,
		chat:      d.Chat,
		metrics:   d.Metrics,
		log:       d.Log.Named("http"),
		spa:       newSPA(d.StaticDir),
		maxUpload: d.MaxUploadBytes,
	}
}

// clientRoutes are the front-end paths answered with index.html.
var clientRoutes = []string{
	"/", "/gallery", "/car/{id}", "/grader/{id}", "/favorites",
	"/admin", "/admin/add", "/admin/edit/{id}",
	"/login", "/admin-login", "/register", "/about", "/contact", "/faq",
}

// Router returns the full handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(s.recoverer)
	r.Use(edgecache.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/listings", s.queryListings)
		r.Get("/listings/search", s.searchListings)
		r.Get("/listings/{id}", s.getListing)

		r.Get("/favorites", s.favorites)
		r.Post("/favorites/{id}/toggle", s.toggleFavorite)

		r.Post("/auth/login", s.login)
		r.Post("/auth/verify", s.verify)
		r.Post("/auth/resend", s.resend)

		r.Post("/chat", s.chatReply)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/admin/listings", s.createListing)
			r.Put("/admin/listings/{id}", s.updateListing)
			r.Delete("/admin/listings/{id}", s.deleteListing)
			r.Post("/admin/listings/{id}/images", s.uploadImage)
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeJSONError(w, http.StatusNotFound, "not found", "")
		})
	})

	for _, p := range clientRoutes {
		r.Get(p, s.spa.index(http.StatusOK))
	}
	r.NotFound(s.spa.fallback)
	return r
}
