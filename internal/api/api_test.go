package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/pactapp/pact/internal/config"
	"github.com/pactapp/pact/internal/db"
)

func newTestServer(t *testing.T) (*httptest.Server, *db.Store) {
	t.Helper()

	conn, err := db.Open(filepath.Join(t.TempDir(), "pact.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := db.NewStore(conn)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(store, config.Default(), logger, []byte("test-secret"))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

// testClient is one logged-in browser: it keeps its own cookie jar so
// multiple users can talk to the same server in a test.
type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testClient{t: t, base: ts.URL, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

// do sends a JSON request and decodes the response into out (when out
// is non-nil), returning the status code.
func (c *testClient) do(method, path string, body, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// register creates an account and returns the new user's ID. The client
// is logged in afterwards.
func (c *testClient) register(email, username string) string {
	c.t.Helper()

	var resp struct {
		User db.User `json:"user"`
	}
	status := c.do("POST", "/auth/register", map[string]string{
		"email":    email,
		"username": username,
		"password": "hunter22",
	}, &resp)
	if status != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", email, status)
	}
	return resp.User.ID
}

func TestRegisterAndLogin(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	alice.register("alice@example.com", "alice")

	var me db.User
	if status := alice.do("GET", "/me", nil, &me); status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	if me.Username != "alice" {
		t.Fatalf("me: username %q", me.Username)
	}

	// Same email again is rejected.
	dup := newClient(t, ts)
	status := dup.do("POST", "/auth/register", map[string]string{
		"email":    "alice@example.com",
		"username": "alice2",
		"password": "hunter22",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate register: status %d, want 400", status)
	}

	// Wrong password.
	status = dup.do("POST", "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password login: status %d, want 401", status)
	}

	// Unknown account.
	status = dup.do("POST", "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter22",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unknown email login: status %d, want 401", status)
	}

	// Correct credentials.
	status = dup.do("POST", "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)
	anon := newClient(t, ts)

	for _, path := range []string{"/me", "/tasks/personal", "/friends/list", "/groups"} {
		if status := anon.do("GET", path, nil, nil); status != http.StatusUnauthorized {
			t.Errorf("GET %s without cookie: status %d, want 401", path, status)
		}
	}
}

func TestLogoutClearsSession(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	alice.register("alice@example.com", "alice")

	if status := alice.do("POST", "/auth/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}
	if status := alice.do("GET", "/me", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("me after logout: status %d, want 401", status)
	}
}

func TestFriendFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	bob := newClient(t, ts)
	carol := newClient(t, ts)
	aliceID := alice.register("alice@example.com", "alice")
	bobID := bob.register("bob@example.com", "bob")
	carol.register("carol@example.com", "carol")

	// Self request is rejected.
	if status := alice.do("POST", "/friends/request/"+aliceID, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("self request: status %d, want 400", status)
	}

	var friendship db.Friendship
	if status := alice.do("POST", "/friends/request/"+bobID, nil, &friendship); status != http.StatusCreated {
		t.Fatalf("send request: status %d", status)
	}
	if friendship.Status != db.StatusPending {
		t.Fatalf("new request status %q, want PENDING", friendship.Status)
	}

	// Duplicate, in either direction.
	if status := alice.do("POST", "/friends/request/"+bobID, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("duplicate request: status %d, want 400", status)
	}
	if status := bob.do("POST", "/friends/request/"+aliceID, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("reverse duplicate request: status %d, want 400", status)
	}

	// Only the receiver may accept.
	if status := carol.do("POST", "/friends/accept/"+friendship.ID, nil, nil); status != http.StatusForbidden {
		t.Fatalf("third-party accept: status %d, want 403", status)
	}

	var incoming []db.Friendship
	if status := bob.do("GET", "/friends/requests", nil, &incoming); status != http.StatusOK {
		t.Fatalf("incoming requests: status %d", status)
	}
	if len(incoming) != 1 || incoming[0].ID != friendship.ID {
		t.Fatalf("incoming requests: %+v", incoming)
	}
	if incoming[0].Requester == nil || incoming[0].Requester.Username != "alice" {
		t.Fatalf("incoming request missing requester summary: %+v", incoming[0])
	}

	var accepted db.Friendship
	if status := bob.do("POST", "/friends/accept/"+friendship.ID, nil, &accepted); status != http.StatusOK {
		t.Fatalf("accept: status %d", status)
	}
	if accepted.Status != db.StatusAccepted {
		t.Fatalf("accepted status %q", accepted.Status)
	}

	// Accepting again is an invalid transition.
	if status := bob.do("POST", "/friends/accept/"+friendship.ID, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("double accept: status %d, want 400", status)
	}
	if status := bob.do("POST", "/friends/block/"+friendship.ID, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("block accepted: status %d, want 400", status)
	}

	// Both sides see the friendship.
	for name, c := range map[string]*testClient{"alice": alice, "bob": bob} {
		var friends []db.Friendship
		if status := c.do("GET", "/friends/list", nil, &friends); status != http.StatusOK {
			t.Fatalf("%s friends list: status %d", name, status)
		}
		if len(friends) != 1 {
			t.Fatalf("%s friends list: %+v", name, friends)
		}
	}
}

func TestBlockRequest(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	bob := newClient(t, ts)
	alice.register("alice@example.com", "alice")
	bobID := bob.register("bob@example.com", "bob")

	var friendship db.Friendship
	alice.do("POST", "/friends/request/"+bobID, nil, &friendship)

	var blocked db.Friendship
	if status := bob.do("POST", "/friends/block/"+friendship.ID, nil, &blocked); status != http.StatusOK {
		t.Fatalf("block: status %d", status)
	}
	if blocked.Status != db.StatusBlocked {
		t.Fatalf("blocked status %q", blocked.Status)
	}

	// Blocked edges never show up as friends.
	var friends []db.Friendship
	bob.do("GET", "/friends/list", nil, &friends)
	if len(friends) != 0 {
		t.Fatalf("friends after block: %+v", friends)
	}
}

func TestPersonalTaskOrdering(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	alice.register("alice@example.com", "alice")

	soon := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	later := soon.Add(72 * time.Hour)

	create := func(title, priority string, deadline *time.Time) {
		t.Helper()
		status := alice.do("POST", "/tasks/personal", map[string]any{
			"title":    title,
			"priority": priority,
			"deadline": deadline,
		}, nil)
		if status != http.StatusCreated {
			t.Fatalf("create %s: status %d", title, status)
		}
	}

	create("low", "LOW", nil)
	create("high-undated", "HIGH", nil)
	create("medium", "MEDIUM", nil)
	create("high-later", "HIGH", &later)
	create("high-soon", "HIGH", &soon)

	var tasks []db.Task
	if status := alice.do("GET", "/tasks/personal", nil, &tasks); status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}

	want := []string{"high-soon", "high-later", "high-undated", "medium", "low"}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, tasks[i].Title, title)
		}
	}
}

func TestPersonalTaskScoping(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	bob := newClient(t, ts)
	alice.register("alice@example.com", "alice")
	bob.register("bob@example.com", "bob")

	var task db.Task
	alice.do("POST", "/tasks/personal", map[string]string{"title": "laundry"}, &task)

	var tasks []db.Task
	bob.do("GET", "/tasks/personal", nil, &tasks)
	if len(tasks) != 0 {
		t.Fatalf("bob sees alice's tasks: %+v", tasks)
	}

	// Only the owner can mutate.
	if status := bob.do("PATCH", "/tasks/"+task.ID, map[string]bool{"completed": true}, nil); status != http.StatusForbidden {
		t.Fatalf("foreign patch: status %d, want 403", status)
	}
	if status := bob.do("DELETE", "/tasks/"+task.ID, nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign delete: status %d, want 403", status)
	}

	var patched db.Task
	if status := alice.do("PATCH", "/tasks/"+task.ID, map[string]bool{"completed": true}, &patched); status != http.StatusOK {
		t.Fatalf("patch: status %d", status)
	}
	if !patched.Completed {
		t.Fatal("patch did not set completed")
	}
	if patched.Title != "laundry" {
		t.Fatalf("patch clobbered title: %q", patched.Title)
	}

	if status := alice.do("DELETE", "/tasks/"+task.ID, nil, nil); status != http.StatusOK {
		t.Fatalf("delete: status %d", status)
	}
	if status := alice.do("PATCH", "/tasks/"+task.ID, map[string]bool{"completed": false}, nil); status != http.StatusNotFound {
		t.Fatalf("patch after delete: status %d, want 404", status)
	}
}

func TestPrivateTasks(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	bob := newClient(t, ts)
	carol := newClient(t, ts)
	alice.register("alice@example.com", "alice")
	bobID := bob.register("bob@example.com", "bob")
	carolID := carol.register("carol@example.com", "carol")

	// Assigning to a non-friend is forbidden.
	status := alice.do("POST", "/tasks/private", map[string]string{
		"title":      "walk the dog",
		"assigneeId": carolID,
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("assign to non-friend: status %d, want 403", status)
	}

	var friendship db.Friendship
	alice.do("POST", "/friends/request/"+bobID, nil, &friendship)
	bob.do("POST", "/friends/accept/"+friendship.ID, nil, nil)

	var task db.Task
	status = alice.do("POST", "/tasks/private", map[string]string{
		"title":      "walk the dog",
		"assigneeId": bobID,
	}, &task)
	if status != http.StatusCreated {
		t.Fatalf("create private: status %d", status)
	}

	// Visible to both owner and assignee.
	for name, c := range map[string]*testClient{"alice": alice, "bob": bob} {
		var tasks []db.Task
		c.do("GET", "/tasks/private", nil, &tasks)
		if len(tasks) != 1 || tasks[0].ID != task.ID {
			t.Fatalf("%s private list: %+v", name, tasks)
		}
	}

	// Invisible to everyone else.
	var tasks []db.Task
	carol.do("GET", "/tasks/private", nil, &tasks)
	if len(tasks) != 0 {
		t.Fatalf("carol private list: %+v", tasks)
	}

	// The assignee may update but not delete.
	var patched db.Task
	if status := bob.do("PATCH", "/tasks/private/"+task.ID, map[string]bool{"completed": true}, &patched); status != http.StatusOK {
		t.Fatalf("assignee patch: status %d", status)
	}
	if !patched.Completed {
		t.Fatal("assignee patch did not set completed")
	}
	if status := bob.do("DELETE", "/tasks/private/"+task.ID, nil, nil); status != http.StatusForbidden {
		t.Fatalf("assignee delete: status %d, want 403", status)
	}
	if status := alice.do("DELETE", "/tasks/private/"+task.ID, nil, nil); status != http.StatusOK {
		t.Fatalf("owner delete: status %d", status)
	}
}

func TestGroupFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	bob := newClient(t, ts)
	carol := newClient(t, ts)
	aliceID := alice.register("alice@example.com", "alice")
	bobID := bob.register("bob@example.com", "bob")
	carolID := carol.register("carol@example.com", "carol")

	var group db.Group
	if status := alice.do("POST", "/groups", map[string]string{"name": "chores"}, &group); status != http.StatusCreated {
		t.Fatalf("create group: status %d", status)
	}

	// The creator is the initial ADMIN.
	if len(group.Members) != 1 || group.Members[0].UserID != aliceID || group.Members[0].Role != db.RoleAdmin {
		t.Fatalf("creator membership: %+v", group.Members)
	}

	// Non-members see nothing.
	if status := bob.do("GET", "/groups/"+group.ID, nil, nil); status != http.StatusForbidden {
		t.Fatalf("non-member get group: status %d, want 403", status)
	}
	if status := bob.do("GET", "/tasks/group/"+group.ID+"/tasks", nil, nil); status != http.StatusForbidden {
		t.Fatalf("non-member list tasks: status %d, want 403", status)
	}

	// Invite bob as VIEWER and carol as EDITOR.
	if status := alice.do("POST", "/groups/"+group.ID+"/invite", map[string]string{"userId": bobID, "role": "VIEWER"}, nil); status != http.StatusCreated {
		t.Fatalf("invite bob: status %d", status)
	}
	if status := alice.do("POST", "/groups/"+group.ID+"/invite", map[string]string{"userId": carolID, "role": "EDITOR"}, nil); status != http.StatusCreated {
		t.Fatalf("invite carol: status %d", status)
	}

	// Re-inviting is rejected, as is inviting by a non-admin.
	if status := alice.do("POST", "/groups/"+group.ID+"/invite", map[string]string{"userId": bobID, "role": "EDITOR"}, nil); status != http.StatusBadRequest {
		t.Fatalf("re-invite: status %d, want 400", status)
	}
	if status := carol.do("POST", "/groups/"+group.ID+"/invite", map[string]string{"userId": bobID}, nil); status != http.StatusForbidden {
		t.Fatalf("editor invite: status %d, want 403", status)
	}

	// Viewers read but never write.
	if status := bob.do("POST", "/tasks/group/"+group.ID+"/tasks", map[string]string{"title": "dishes"}, nil); status != http.StatusForbidden {
		t.Fatalf("viewer create task: status %d, want 403", status)
	}

	var task db.Task
	if status := carol.do("POST", "/tasks/group/"+group.ID+"/tasks", map[string]string{"title": "dishes"}, &task); status != http.StatusCreated {
		t.Fatalf("editor create task: status %d", status)
	}

	var tasks []db.Task
	if status := bob.do("GET", "/tasks/group/"+group.ID+"/tasks", nil, &tasks); status != http.StatusOK {
		t.Fatalf("viewer list tasks: status %d", status)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("group tasks: %+v", tasks)
	}

	if status := bob.do("PATCH", "/tasks/group/"+group.ID+"/tasks/"+task.ID, map[string]bool{"completed": true}, nil); status != http.StatusForbidden {
		t.Fatalf("viewer patch task: status %d, want 403", status)
	}
	var patched db.Task
	if status := alice.do("PATCH", "/tasks/group/"+group.ID+"/tasks/"+task.ID, map[string]bool{"completed": true}, &patched); status != http.StatusOK {
		t.Fatalf("admin patch task: status %d", status)
	}
	if !patched.Completed {
		t.Fatal("patch did not set completed")
	}

	// Listing groups shows memberships from every role.
	var bobGroups []db.Group
	if status := bob.do("GET", "/groups", nil, &bobGroups); status != http.StatusOK {
		t.Fatalf("bob groups: status %d", status)
	}
	if len(bobGroups) != 1 || bobGroups[0].ID != group.ID {
		t.Fatalf("bob groups: %+v", bobGroups)
	}
}

func TestGoogleAccountHasNoPassword(t *testing.T) {
	ts, store := newTestServer(t)

	if _, err := store.GetOrCreateGoogleUser(context.Background(), "gina@example.com", "gina", "google-123"); err != nil {
		t.Fatalf("create google user: %v", err)
	}

	c := newClient(t, ts)
	status := c.do("POST", "/auth/login", map[string]string{
		"email":    "gina@example.com",
		"password": "anything",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("password login on google account: status %d, want 401", status)
	}
}

func TestGoogleLoginUnconfigured(t *testing.T) {
	ts, _ := newTestServer(t)
	c := newClient(t, ts)

	if status := c.do("GET", "/auth/google", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("google login without config: status %d, want 400", status)
	}
}

func TestInvalidInput(t *testing.T) {
	ts, _ := newTestServer(t)

	alice := newClient(t, ts)
	alice.register("alice@example.com", "alice")

	if status := alice.do("POST", "/tasks/personal", map[string]string{"title": ""}, nil); status != http.StatusBadRequest {
		t.Fatalf("empty title: status %d, want 400", status)
	}
	if status := alice.do("POST", "/tasks/personal", map[string]string{"title": "x", "priority": "URGENT"}, nil); status != http.StatusBadRequest {
		t.Fatalf("bad priority: status %d, want 400", status)
	}
	if status := alice.do("POST", "/groups", map[string]string{"name": "  "}, nil); status != http.StatusBadRequest {
		t.Fatalf("blank group name: status %d, want 400", status)
	}
}
