// Package server is the HTTP face of the access layer: thin JSON handlers
// that resolve a principal, evaluate one guard and shape a response. All
// policy lives in the access engine; handlers only pick the guard and
// supply the target descriptor.
package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/authgate/authgate/internal/access"
	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/logger"
	"github.com/authgate/authgate/internal/store"
)

// Server wires the resolver, engine and stores behind the HTTP API.
type Server struct {
	resolver *identity.Resolver
	profiles *identity.ProfileService
	engine   *access.Engine
	items    store.ItemStore
	users    store.ProfileStore
}

// Config carries the collaborators for a Server.
type Config struct {
	Resolver *identity.Resolver
	Profiles *identity.ProfileService
	Engine   *access.Engine
	Items    store.ItemStore
	Users    store.ProfileStore
}

// NewServer creates a server from its collaborators.
func NewServer(cfg Config) *Server {
	return &Server{
		resolver: cfg.Resolver,
		profiles: cfg.Profiles,
		engine:   cfg.Engine,
		items:    cfg.Items,
		users:    cfg.Users,
	}
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Current user
	mux.HandleFunc("GET /v1/users/me", s.handleGetMe)
	mux.HandleFunc("PUT /v1/users/me", s.handleUpdateMe)

	// Admin user management
	mux.HandleFunc("GET /v1/admin/users", s.handleListUsers)
	mux.HandleFunc("PUT /v1/admin/users/{id}/roles", s.handleSetRoles)
	mux.HandleFunc("PUT /v1/admin/users/{id}/claims", s.handleSetClaims)
	mux.HandleFunc("DELETE /v1/admin/users/{id}", s.handleDeleteUser)

	// Items
	mux.HandleFunc("GET /v1/items", s.handleListItems)
	mux.HandleFunc("POST /v1/items", s.handleCreateItem)
	mux.HandleFunc("GET /v1/items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /v1/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /v1/items/{id}", s.handleDeleteItem)
	mux.HandleFunc("POST /v1/items/{id}/like", s.handleLikeItem)
	mux.HandleFunc("POST /v1/items/{id}/share", s.handleShareItem)

	// Beta surface behind a feature flag
	mux.HandleFunc("GET /v1/beta/preview", s.handleBetaPreview)

	handler := s.authenticate(mux)
	handler = cors.Default().Handler(handler)
	handler = logger.Requests(log)(handler)

	return handler
}
