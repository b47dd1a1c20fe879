package db

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pact_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func mustCreateUser(t *testing.T, store *Store, email, username string) User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), email, username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

// mustBefriend creates an ACCEPTED edge from a to b.
func mustBefriend(t *testing.T, store *Store, a, b User) {
	t.Helper()
	request, err := store.SendFriendRequest(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := store.AcceptRequest(context.Background(), request.ID, b.ID); err != nil {
		t.Fatalf("accept request: %v", err)
	}
}
