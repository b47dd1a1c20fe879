package db

import (
	"errors"
	"time"
)

// Priority orders tasks in listings: HIGH sorts before MEDIUM before LOW.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority validates a wire value. The empty string maps to MEDIUM.
func ParsePriority(value string) (Priority, bool) {
	switch Priority(value) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(value), true
	case "":
		return PriorityMedium, true
	}
	return "", false
}

// TaskType is the visibility class of a task. It determines which
// identity fields are required and who may act on the task.
type TaskType string

const (
	TaskPersonal TaskType = "PERSONAL"
	TaskPrivate  TaskType = "PRIVATE"
	TaskShared   TaskType = "SHARED"
)

// FriendshipStatus is the state of a friendship edge.
type FriendshipStatus string

const (
	StatusPending  FriendshipStatus = "PENDING"
	StatusAccepted FriendshipStatus = "ACCEPTED"
	StatusBlocked  FriendshipStatus = "BLOCKED"
)

// Role is the per-group permission level of a membership.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ParseRole validates a wire value. The empty string maps to VIEWER.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(value), true
	case "":
		return RoleViewer, true
	}
	return "", false
}

// Sentinel errors returned by store operations. The API layer maps these
// to HTTP statuses in one place.
var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("not allowed")
	ErrEmailTaken     = errors.New("email already registered")
	ErrSelfRequest    = errors.New("cannot friend yourself")
	ErrDuplicateEdge  = errors.New("request already exists")
	ErrAlreadyHandled = errors.New("request already handled")
	ErrAlreadyMember  = errors.New("user is already a member")
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`

	// Credential fields never leave the API.
	PasswordHash *string `json:"-"`
	GoogleID     *string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

type Friendship struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requesterId"`
	ReceiverID  string           `json:"receiverId"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`

	// Joined user summaries, populated by list queries.
	Requester *User `json:"requester,omitempty"`
	Receiver  *User `json:"receiver,omitempty"`
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	Members []GroupMember `json:"members,omitempty"`
}

type GroupMember struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
	Role    Role   `json:"role"`

	User *User `json:"user,omitempty"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
	Type        TaskType   `json:"type"`
	OwnerID     string     `json:"ownerId"`
	AssigneeID  *string    `json:"assigneeId,omitempty"`
	GroupID     *string    `json:"groupId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
