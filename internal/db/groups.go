package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateGroup creates a group and grants the creator ADMIN membership.
func (s *Store) CreateGroup(ctx context.Context, name, creatorID string) (Group, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, "INSERT INTO groups (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		return Group{}, fmt.Errorf("insert group: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO group_members (id, group_id, user_id, role) VALUES (?, ?, ?, ?)",
		uuid.NewString(), id, creatorID, RoleAdmin)
	if err != nil {
		return Group{}, fmt.Errorf("insert creator membership: %w", err)
	}

	return s.GetGroup(ctx, id)
}

// AddMember adds a user to a group with the given role. Returns
// ErrNotFound for an unknown user and ErrAlreadyMember for a duplicate.
func (s *Store) AddMember(ctx context.Context, groupID, userID string, role Role) (GroupMember, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return GroupMember{}, err
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO group_members (id, group_id, user_id, role) VALUES (?, ?, ?, ?)",
		id, groupID, userID, role)
	if err != nil {
		if isUniqueViolation(err) {
			return GroupMember{}, ErrAlreadyMember
		}
		return GroupMember{}, fmt.Errorf("insert membership: %w", err)
	}

	return GroupMember{ID: id, GroupID: groupID, UserID: userID, Role: role}, nil
}

// MemberRole resolves userID's role in a group, or ErrNotFound when the
// user is not a member.
func (s *Store) MemberRole(ctx context.Context, groupID, userID string) (Role, error) {
	var role Role
	err := s.db.QueryRowContext(ctx,
		"SELECT role FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query member role: %w", err)
	}
	return role, nil
}

// ListUserGroups returns the groups userID belongs to.
func (s *Store) ListUserGroups(ctx context.Context, userID string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.created_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = ?
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroup returns a group with its members and their user summaries.
func (s *Store) GetGroup(ctx context.Context, id string) (Group, error) {
	var g Group
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, ErrNotFound
	}
	if err != nil {
		return Group{}, fmt.Errorf("scan group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT gm.id, gm.group_id, gm.user_id, gm.role, u.id, u.email, u.username
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY gm.role, u.username`, id)
	if err != nil {
		return Group{}, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m GroupMember
		var u User
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &u.ID, &u.Email, &u.Username); err != nil {
			return Group{}, fmt.Errorf("scan member: %w", err)
		}
		m.User = &u
		g.Members = append(g.Members, m)
	}
	return g, rows.Err()
}
