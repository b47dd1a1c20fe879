package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pactapp/pact/internal/config"
	"github.com/pactapp/pact/internal/db"
	"github.com/pactapp/pact/internal/token"
)

const (
	tokenCookie = "token"
	stateCookie = "oauth_state"

	bcryptCost = 10
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), email, username, string(hash))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	if !s.issueToken(w, user.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeStoreError(w, err)
		return
	}

	// Accounts created via Google have no password to compare.
	if user.PasswordHash == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.issueToken(w, user.ID) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeError(w, http.StatusBadRequest, "google login not configured")
		return
	}

	state := randomState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.Environment == config.Production,
	})

	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeError(w, http.StatusBadRequest, "google login not configured")
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	tok, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("oauth code exchange", "error", err)
		writeError(w, http.StatusBadRequest, "authorization failed")
		return
	}

	resp, err := s.oauth.Client(r.Context(), tok).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		s.logger.Error("fetching userinfo", "error", err)
		writeError(w, http.StatusBadGateway, "fetching profile failed")
		return
	}
	defer resp.Body.Close()

	var profile struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil || profile.Email == "" {
		writeError(w, http.StatusBadGateway, "invalid profile response")
		return
	}

	email := strings.TrimSpace(strings.ToLower(profile.Email))
	username := profile.Name
	if username == "" {
		username = strings.Split(email, "@")[0]
	}

	user, err := s.store.GetOrCreateGoogleUser(r.Context(), email, username, profile.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	if !s.issueToken(w, user.ID) {
		return
	}
	http.Redirect(w, r, s.cfg.Web.BaseURL, http.StatusFound)
}

// issueToken mints a token for userID and sets the auth cookie. Returns
// false after writing an error response.
func (s *Server) issueToken(w http.ResponseWriter, userID string) bool {
	ttl := time.Duration(s.cfg.Auth.TokenTTL)
	value, err := token.Mint(s.secret, userID, ttl)
	if err != nil {
		s.logger.Error("minting token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.Environment == config.Production,
	})
	return true
}

func randomState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
