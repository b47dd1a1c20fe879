package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/pactapp/pact/internal/db"
)

// taskRequest is the creation body shared by all three task classes.
// PRIVATE tasks additionally carry the assignee.
type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	AssigneeID  string     `json:"assigneeId"`
}

func (req *taskRequest) input(w http.ResponseWriter) (db.TaskInput, bool) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return db.TaskInput{}, false
	}
	priority, ok := db.ParsePriority(req.Priority)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid priority")
		return db.TaskInput{}, false
	}
	return db.TaskInput{
		Title:       title,
		Description: req.Description,
		Priority:    priority,
		Deadline:    req.Deadline,
	}, true
}

// taskPatchRequest is a partial update; absent fields stay untouched.
type taskPatchRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Completed   *bool      `json:"completed"`
}

func (req *taskPatchRequest) patch(w http.ResponseWriter) (db.TaskPatch, bool) {
	patch := db.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Completed:   req.Completed,
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return db.TaskPatch{}, false
	}
	if req.Priority != nil {
		priority, ok := db.ParsePriority(*req.Priority)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return db.TaskPatch{}, false
		}
		patch.Priority = &priority
	}
	return patch, true
}

func (s *Server) handleCreatePersonal(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, ok := req.input(w)
	if !ok {
		return
	}

	task, err := s.store.CreatePersonalTask(r.Context(), caller.ID, input)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListPersonal(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	tasks, err := s.store.ListPersonalTasks(r.Context(), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	var req taskPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, ok := req.patch(w)
	if !ok {
		return
	}

	task, err := s.store.UpdateTask(r.Context(), r.PathValue("id"), caller.ID, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	if err := s.store.DeleteTask(r.Context(), r.PathValue("id"), caller.ID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreatePrivate(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, ok := req.input(w)
	if !ok {
		return
	}
	if !s.requireFriendship(w, r, req.AssigneeID) {
		return
	}

	task, err := s.store.CreatePrivateTask(r.Context(), caller.ID, req.AssigneeID, input)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListPrivate(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	tasks, err := s.store.ListPrivateTasks(r.Context(), caller.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleUpdatePrivate(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	var req taskPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, ok := req.patch(w)
	if !ok {
		return
	}

	task, err := s.store.UpdatePrivateTask(r.Context(), r.PathValue("id"), caller.ID, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeletePrivate(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)

	if err := s.store.DeleteTask(r.Context(), r.PathValue("id"), caller.ID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListGroupTasks(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, ok := s.requireMember(w, r, groupID); !ok {
		return
	}

	tasks, err := s.store.ListGroupTasks(r.Context(), groupID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateGroupTask(w http.ResponseWriter, r *http.Request) {
	caller := currentUser(r)
	groupID := r.PathValue("id")
	role, ok := s.requireMember(w, r, groupID)
	if !ok {
		return
	}
	if role == db.RoleViewer {
		writeError(w, http.StatusForbidden, "editor role required")
		return
	}

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, valid := req.input(w)
	if !valid {
		return
	}

	task, err := s.store.CreateGroupTask(r.Context(), caller.ID, groupID, input)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateGroupTask(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	role, ok := s.requireMember(w, r, groupID)
	if !ok {
		return
	}
	if role == db.RoleViewer {
		writeError(w, http.StatusForbidden, "editor role required")
		return
	}

	var req taskPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, valid := req.patch(w)
	if !valid {
		return
	}

	task, err := s.store.UpdateGroupTask(r.Context(), r.PathValue("taskId"), groupID, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
