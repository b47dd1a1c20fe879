package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pactapp/pact/internal/db"
	"github.com/pactapp/pact/internal/token"
)

type contextKey string

const userKey contextKey = "user"

// currentUser returns the authenticated user attached by requireAuth.
func currentUser(r *http.Request) *db.User {
	if u, ok := r.Context().Value(userKey).(*db.User); ok {
		return u
	}
	return nil
}

// requireAuth verifies the token cookie and attaches the user to the
// request context. Missing, invalid, or expired tokens get 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(tokenCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		claims, err := token.Verify(s.secret, cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := s.store.GetUserByID(r.Context(), claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, &user)
		next(w, r.WithContext(ctx))
	}
}

// requireFriendship gates endpoints that act on another user: it fails
// with 403 unless an ACCEPTED edge exists between the caller and the
// target in either direction. Returns false after writing the response.
func (s *Server) requireFriendship(w http.ResponseWriter, r *http.Request, targetID string) bool {
	if targetID == "" {
		writeError(w, http.StatusForbidden, "target user not specified")
		return false
	}

	caller := currentUser(r)
	ok, err := s.store.AreFriends(r.Context(), caller.ID, targetID)
	if err != nil {
		s.writeStoreError(w, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "you are not friends")
		return false
	}
	return true
}

// requireMember resolves the caller's membership in the group referenced
// by the request, failing with 403 when absent. The resolved role is
// returned for downstream authorization.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, groupID string) (db.Role, bool) {
	caller := currentUser(r)
	role, err := s.store.MemberRole(r.Context(), groupID, caller.ID)
	if err != nil {
		writeError(w, http.StatusForbidden, "not a group member")
		return "", false
	}
	return role, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
