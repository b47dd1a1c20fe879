package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SendFriendRequest creates a PENDING edge from one user to another.
// Self-requests and duplicate edges (in either stored direction,
// regardless of status) are rejected.
func (s *Store) SendFriendRequest(ctx context.Context, fromID, toID string) (Friendship, error) {
	if fromID == toID {
		return Friendship{}, ErrSelfRequest
	}

	if _, err := s.GetUserByID(ctx, toID); err != nil {
		return Friendship{}, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (requester_id = ? AND receiver_id = ?)
			   OR (requester_id = ? AND receiver_id = ?)
		)`, fromID, toID, toID, fromID).Scan(&exists)
	if err != nil {
		return Friendship{}, fmt.Errorf("check existing edge: %w", err)
	}
	if exists {
		return Friendship{}, ErrDuplicateEdge
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO friendships (id, requester_id, receiver_id) VALUES (?, ?, ?)",
		id, fromID, toID)
	if err != nil {
		return Friendship{}, fmt.Errorf("insert friendship: %w", err)
	}

	return s.getFriendship(ctx, id)
}

// IncomingRequests returns PENDING edges addressed to userID, with the
// requester's summary joined in.
func (s *Store) IncomingRequests(ctx context.Context, userID string) ([]Friendship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.requester_id, f.receiver_id, f.status, f.created_at,
			u.id, u.email, u.username
		FROM friendships f
		JOIN users u ON u.id = f.requester_id
		WHERE f.receiver_id = ? AND f.status = 'PENDING'
		ORDER BY f.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query incoming requests: %w", err)
	}
	defer rows.Close()

	var requests []Friendship
	for rows.Next() {
		var f Friendship
		var u User
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt,
			&u.ID, &u.Email, &u.Username); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		f.Requester = &u
		requests = append(requests, f)
	}
	return requests, rows.Err()
}

// AcceptRequest transitions a PENDING edge to ACCEPTED. Only the
// receiver may accept; a non-PENDING edge cannot be accepted.
func (s *Store) AcceptRequest(ctx context.Context, requestID, userID string) (Friendship, error) {
	return s.resolveRequest(ctx, requestID, userID, StatusAccepted)
}

// BlockRequest transitions a PENDING edge to BLOCKED, with the same
// receiver-only rule as AcceptRequest.
func (s *Store) BlockRequest(ctx context.Context, requestID, userID string) (Friendship, error) {
	return s.resolveRequest(ctx, requestID, userID, StatusBlocked)
}

func (s *Store) resolveRequest(ctx context.Context, requestID, userID string, to FriendshipStatus) (Friendship, error) {
	request, err := s.getFriendship(ctx, requestID)
	if err != nil {
		return Friendship{}, err
	}
	if request.ReceiverID != userID {
		return Friendship{}, ErrForbidden
	}
	if request.Status != StatusPending {
		return Friendship{}, ErrAlreadyHandled
	}

	_, err = s.db.ExecContext(ctx, "UPDATE friendships SET status = ? WHERE id = ?", to, requestID)
	if err != nil {
		return Friendship{}, fmt.Errorf("update friendship: %w", err)
	}
	request.Status = to
	return request, nil
}

// ListFriends returns ACCEPTED edges where userID is either party, with
// both user summaries joined in.
func (s *Store) ListFriends(ctx context.Context, userID string) ([]Friendship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.requester_id, f.receiver_id, f.status, f.created_at,
			req.id, req.email, req.username,
			rec.id, rec.email, rec.username
		FROM friendships f
		JOIN users req ON req.id = f.requester_id
		JOIN users rec ON rec.id = f.receiver_id
		WHERE f.status = 'ACCEPTED' AND (f.requester_id = ? OR f.receiver_id = ?)
		ORDER BY f.created_at`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer rows.Close()

	var friends []Friendship
	for rows.Next() {
		var f Friendship
		var req, rec User
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt,
			&req.ID, &req.Email, &req.Username,
			&rec.ID, &rec.Email, &rec.Username); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		f.Requester = &req
		f.Receiver = &rec
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// AreFriends reports whether an ACCEPTED edge exists between the two
// users in either direction.
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE status = 'ACCEPTED'
			  AND ((requester_id = ? AND receiver_id = ?)
			    OR (requester_id = ? AND receiver_id = ?))
		)`, a, b, b, a).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return exists, nil
}

func (s *Store) getFriendship(ctx context.Context, id string) (Friendship, error) {
	var f Friendship
	err := s.db.QueryRowContext(ctx,
		"SELECT id, requester_id, receiver_id, status, created_at FROM friendships WHERE id = ?", id).
		Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Friendship{}, ErrNotFound
	}
	if err != nil {
		return Friendship{}, fmt.Errorf("scan friendship: %w", err)
	}
	return f, nil
}
