package api

import (
	"net/http"
	"strings"

	"github.com/pactapp/pact/internal/db"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	group, err := s.store.CreateGroup(r.Context(), name, caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	groups, err := s.store.ListUserGroups(r.Context(), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if groups == nil {
		groups = []db.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, ok := s.requireMember(w, r, groupID); !ok {
		return
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	role, ok := s.requireMember(w, r, groupID)
	if !ok {
		return
	}
	// Membership management is an admin concern.
	if role != db.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	var req struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	memberRole, valid := db.ParseRole(req.Role)
	if !valid {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	member, err := s.store.AddMember(r.Context(), groupID, req.UserID, memberRole)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}
