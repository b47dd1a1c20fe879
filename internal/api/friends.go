package api

import (
	"net/http"

	"github.com/pactapp/pact/internal/db"
)

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)
	targetID := r.PathValue("userId")

	friendship, err := s.store.SendFriendRequest(r.Context(), caller.ID, targetID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, friendship)
}

func (s *Server) handleIncomingRequests(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	requests, err := s.store.IncomingRequests(r.Context(), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if requests == nil {
		requests = []db.Friendship{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	friendship, err := s.store.AcceptRequest(r.Context(), r.PathValue("requestId"), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friendship)
}

func (s *Server) handleBlockRequest(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	friendship, err := s.store.BlockRequest(r.Context(), r.PathValue("requestId"), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friendship)
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	friends, err := s.store.ListFriends(r.Context(), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if friends == nil {
		friends = []db.Friendship{}
	}
	writeJSON(w, http.StatusOK, friends)
}
