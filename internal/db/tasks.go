package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskInput carries the caller-supplied fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	Priority    Priority
	Deadline    *time.Time
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Deadline    *time.Time
	Completed   *bool
}

const taskColumns = "id, title, description, priority, deadline, completed, type, owner_id, assignee_id, group_id, created_at"

// taskOrder sorts listings by priority descending (HIGH first), then
// deadline ascending with undated tasks last, then creation time.
const taskOrder = `ORDER BY
	CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END,
	deadline IS NULL, deadline, created_at`

// CreatePersonalTask creates a PERSONAL task owned by ownerID.
func (s *Store) CreatePersonalTask(ctx context.Context, ownerID string, input TaskInput) (Task, error) {
	return s.insertTask(ctx, TaskPersonal, ownerID, nil, nil, input)
}

// CreatePrivateTask creates a PRIVATE task owned by ownerID and assigned
// to assigneeID. The friendship check is the caller's responsibility.
func (s *Store) CreatePrivateTask(ctx context.Context, ownerID, assigneeID string, input TaskInput) (Task, error) {
	if _, err := s.GetUserByID(ctx, assigneeID); err != nil {
		return Task{}, err
	}
	return s.insertTask(ctx, TaskPrivate, ownerID, &assigneeID, nil, input)
}

// CreateGroupTask creates a SHARED task in a group. The membership and
// role checks are the caller's responsibility.
func (s *Store) CreateGroupTask(ctx context.Context, ownerID, groupID string, input TaskInput) (Task, error) {
	return s.insertTask(ctx, TaskShared, ownerID, nil, &groupID, input)
}

func (s *Store) insertTask(ctx context.Context, typ TaskType, ownerID string, assigneeID, groupID *string, input TaskInput) (Task, error) {
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, priority, deadline, type, owner_id, assignee_id, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.Title, input.Description, priority, nullTime(input.Deadline), typ, ownerID, assigneeID, groupID)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.getTask(ctx, id)
}

// ListPersonalTasks returns ownerID's PERSONAL tasks.
func (s *Store) ListPersonalTasks(ctx context.Context, ownerID string) ([]Task, error) {
	return s.listTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id = ? AND type = 'PERSONAL' "+taskOrder,
		ownerID)
}

// ListPrivateTasks returns PRIVATE tasks where userID is owner or
// assignee.
func (s *Store) ListPrivateTasks(ctx context.Context, userID string) ([]Task, error) {
	return s.listTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE type = 'PRIVATE' AND (owner_id = ? OR assignee_id = ?) "+taskOrder,
		userID, userID)
}

// ListGroupTasks returns a group's SHARED tasks. The membership check is
// the caller's responsibility.
func (s *Store) ListGroupTasks(ctx context.Context, groupID string) ([]Task, error) {
	return s.listTasks(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE type = 'SHARED' AND group_id = ? "+taskOrder,
		groupID)
}

// UpdateTask applies a patch to a task owned by userID. Non-owners get
// ErrForbidden.
func (s *Store) UpdateTask(ctx context.Context, taskID, userID string, patch TaskPatch) (Task, error) {
	return s.patchTask(ctx, taskID, patch, func(t Task) bool {
		return t.OwnerID == userID
	})
}

// UpdatePrivateTask applies a patch to a PRIVATE task; both the owner
// and the assignee may update it.
func (s *Store) UpdatePrivateTask(ctx context.Context, taskID, userID string, patch TaskPatch) (Task, error) {
	return s.patchTask(ctx, taskID, patch, func(t Task) bool {
		if t.Type != TaskPrivate {
			return false
		}
		return t.OwnerID == userID || (t.AssigneeID != nil && *t.AssigneeID == userID)
	})
}

// UpdateGroupTask applies a patch to a SHARED task belonging to groupID.
// The role check is the caller's responsibility.
func (s *Store) UpdateGroupTask(ctx context.Context, taskID, groupID string, patch TaskPatch) (Task, error) {
	return s.patchTask(ctx, taskID, patch, func(t Task) bool {
		return t.Type == TaskShared && t.GroupID != nil && *t.GroupID == groupID
	})
}

func (s *Store) patchTask(ctx context.Context, taskID string, patch TaskPatch, allowed func(Task) bool) (Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !allowed(task) {
		return Task{}, ErrForbidden
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		task.Deadline = patch.Deadline
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, priority = ?, deadline = ?, completed = ?
		WHERE id = ?`,
		task.Title, task.Description, task.Priority, nullTime(task.Deadline), task.Completed, task.ID)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// DeleteTask deletes a task owned by userID. Non-owners get
// ErrForbidden; for PRIVATE tasks this means the assignee cannot delete.
func (s *Store) DeleteTask(ctx context.Context, taskID, userID string) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.OwnerID != userID {
		return ErrForbidden
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *Store) getTask(ctx context.Context, id string) (Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return task, err
}

func (s *Store) listTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(scan func(...any) error) (Task, error) {
	var t Task
	var deadline sql.NullTime
	var assigneeID, groupID sql.NullString
	err := scan(&t.ID, &t.Title, &t.Description, &t.Priority, &deadline, &t.Completed,
		&t.Type, &t.OwnerID, &assigneeID, &groupID, &t.CreatedAt)
	if err != nil {
		return Task{}, err
	}
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if groupID.Valid {
		t.GroupID = &groupID.String
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
