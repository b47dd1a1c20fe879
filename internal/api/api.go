// Package api exposes the PACT REST surface: cookie-token auth,
// friendship management, groups with role-carrying memberships, and the
// three task visibility classes. Handlers decode JSON, call the store,
// and translate its sentinel errors into HTTP statuses; every failure is
// a JSON error body.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/pactapp/pact/internal/config"
	"github.com/pactapp/pact/internal/db"
)

// Server holds the API dependencies.
type Server struct {
	store  *db.Store
	cfg    config.Config
	logger *slog.Logger
	secret []byte
	oauth  *oauth2.Config // nil when Google login is not configured
}

// New assembles the API server. The secret signs auth tokens.
func New(store *db.Store, cfg config.Config, logger *slog.Logger, secret []byte) *Server {
	s := &Server{
		store:  store,
		cfg:    cfg,
		logger: logger,
		secret: secret,
	}

	if g := cfg.Auth.Google; g.ClientID != "" {
		s.oauth = &oauth2.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	return s
}

// Handler returns the routed API handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Auth (public)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/google", s.handleGoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", s.handleGoogleCallback)

	mux.HandleFunc("GET /me", s.requireAuth(s.handleMe))

	// Friends
	mux.HandleFunc("POST /friends/request/{userId}", s.requireAuth(s.handleSendRequest))
	mux.HandleFunc("GET /friends/requests", s.requireAuth(s.handleIncomingRequests))
	mux.HandleFunc("POST /friends/accept/{requestId}", s.requireAuth(s.handleAcceptRequest))
	mux.HandleFunc("POST /friends/block/{requestId}", s.requireAuth(s.handleBlockRequest))
	mux.HandleFunc("GET /friends/list", s.requireAuth(s.handleListFriends))

	// Groups
	mux.HandleFunc("POST /groups", s.requireAuth(s.handleCreateGroup))
	mux.HandleFunc("GET /groups", s.requireAuth(s.handleListGroups))
	mux.HandleFunc("GET /groups/{id}", s.requireAuth(s.handleGetGroup))
	mux.HandleFunc("POST /groups/{id}/invite", s.requireAuth(s.handleInvite))

	// Tasks
	mux.HandleFunc("POST /tasks/personal", s.requireAuth(s.handleCreatePersonal))
	mux.HandleFunc("GET /tasks/personal", s.requireAuth(s.handleListPersonal))
	mux.HandleFunc("PATCH /tasks/{id}", s.requireAuth(s.handleUpdateTask))
	mux.HandleFunc("DELETE /tasks/{id}", s.requireAuth(s.handleDeleteTask))
	mux.HandleFunc("POST /tasks/private", s.requireAuth(s.handleCreatePrivate))
	mux.HandleFunc("GET /tasks/private", s.requireAuth(s.handleListPrivate))
	mux.HandleFunc("PATCH /tasks/private/{id}", s.requireAuth(s.handleUpdatePrivate))
	mux.HandleFunc("DELETE /tasks/private/{id}", s.requireAuth(s.handleDeletePrivate))
	mux.HandleFunc("GET /tasks/group/{id}/tasks", s.requireAuth(s.handleListGroupTasks))
	mux.HandleFunc("POST /tasks/group/{id}/tasks", s.requireAuth(s.handleCreateGroupTask))
	mux.HandleFunc("PATCH /tasks/group/{id}/tasks/{taskId}", s.requireAuth(s.handleUpdateGroupTask))

	return s.logRequests(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinel errors onto HTTP statuses:
// unknown rows are 404, failed ownership/role/friendship predicates are
// 403, and validation or invalid state transitions are 400.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, db.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, db.ErrEmailTaken),
		errors.Is(err, db.ErrSelfRequest),
		errors.Is(err, db.ErrDuplicateEdge),
		errors.Is(err, db.ErrAlreadyHandled),
		errors.Is(err, db.ErrAlreadyMember):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
