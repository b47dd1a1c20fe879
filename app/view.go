package main

import (
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

const (
	tabPersonal = "personal"
	tabPrivate  = "private"
	tabFriends  = "friends"
	tabGroups   = "groups"
)

type RootView struct {
	app.Compo

	user        *User
	authChecked bool

	// Auth form
	registerMode bool
	authError    string

	// Active tab
	tab string

	personalTasks []Task
	privateTasks  []Task
	friends       []Friendship
	requests      []Friendship
	groups        []Group

	// Group detail
	selectedGroup *Group
	groupTasks    []Task

	errMsg string
}

func (v *RootView) OnInit() {
	v.tab = tabPersonal
}

func (v *RootView) OnMount(ctx app.Context) {
	ctx.Async(func() {
		var user User
		err := apiGet("/me", &user)
		ctx.Dispatch(func(ctx app.Context) {
			v.authChecked = true
			if err == nil {
				v.user = &user
				v.loadTab(ctx)
			}
		})
	})
}

// inputValue reads a form field by element ID.
func inputValue(id string) string {
	el := app.Window().GetElementByID(id)
	if !el.Truthy() {
		return ""
	}
	return el.Get("value").String()
}

// deadlineValue turns a date input into an RFC 3339 timestamp, or nil
// when the field is empty.
func deadlineValue(id string) *string {
	date := inputValue(id)
	if date == "" {
		return nil
	}
	ts := date + "T00:00:00Z"
	return &ts
}

// fail surfaces an API error in the banner.
func (v *RootView) fail(ctx app.Context, err error) {
	app.Log("api error:", err)
	ctx.Dispatch(func(ctx app.Context) {
		v.errMsg = err.Error()
	})
}

func (v *RootView) setTab(ctx app.Context, tab string) {
	v.tab = tab
	v.errMsg = ""
	v.selectedGroup = nil
	v.loadTab(ctx)
}

func (v *RootView) loadTab(ctx app.Context) {
	switch v.tab {
	case tabPersonal:
		v.loadPersonal(ctx)
	case tabPrivate:
		v.loadPrivate(ctx)
		v.loadFriends(ctx)
	case tabFriends:
		v.loadFriends(ctx)
	case tabGroups:
		v.loadGroups(ctx)
	}
}

// Auth

func (v *RootView) submitAuth(ctx app.Context, e app.Event) {
	e.PreventDefault()

	email := inputValue("auth-email")
	password := inputValue("auth-password")
	username := inputValue("auth-username")
	register := v.registerMode

	ctx.Async(func() {
		var resp struct {
			User User `json:"user"`
		}
		var err error
		if register {
			err = apiCall("POST", "/auth/register", map[string]string{
				"email":    email,
				"username": username,
				"password": password,
			}, &resp)
		} else {
			err = apiCall("POST", "/auth/login", map[string]string{
				"email":    email,
				"password": password,
			}, &resp)
		}

		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				v.authError = err.Error()
				return
			}
			v.authError = ""
			v.user = &resp.User
			v.loadTab(ctx)
		})
	})
}

func (v *RootView) logout(ctx app.Context, e app.Event) {
	ctx.Async(func() {
		if err := apiCall("POST", "/auth/logout", nil, nil); err != nil {
			app.Log("logout:", err)
		}
		ctx.Dispatch(func(ctx app.Context) {
			v.user = nil
			v.personalTasks = nil
			v.privateTasks = nil
			v.friends = nil
			v.requests = nil
			v.groups = nil
			v.selectedGroup = nil
			v.groupTasks = nil
		})
	})
}

// Tasks

func (v *RootView) loadPersonal(ctx app.Context) {
	ctx.Async(func() {
		var tasks []Task
		if err := apiGet("/tasks/personal", &tasks); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.personalTasks = tasks })
	})
}

func (v *RootView) loadPrivate(ctx app.Context) {
	ctx.Async(func() {
		var tasks []Task
		if err := apiGet("/tasks/private", &tasks); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.privateTasks = tasks })
	})
}

func (v *RootView) createPersonal(ctx app.Context, e app.Event) {
	e.PreventDefault()
	body := map[string]any{
		"title":    inputValue("personal-title"),
		"priority": inputValue("personal-priority"),
		"deadline": deadlineValue("personal-deadline"),
	}
	ctx.Async(func() {
		if err := apiCall("POST", "/tasks/personal", body, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		v.loadPersonal(ctx)
	})
}

func (v *RootView) createPrivate(ctx app.Context, e app.Event) {
	e.PreventDefault()
	body := map[string]any{
		"title":      inputValue("private-title"),
		"priority":   inputValue("private-priority"),
		"deadline":   deadlineValue("private-deadline"),
		"assigneeId": inputValue("private-assignee"),
	}
	ctx.Async(func() {
		if err := apiCall("POST", "/tasks/private", body, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		v.loadPrivate(ctx)
	})
}

// taskPatchPath picks the endpoint matching the task's class.
func taskPatchPath(t Task) string {
	switch t.Type {
	case "PRIVATE":
		return "/tasks/private/" + t.ID
	case "SHARED":
		if t.GroupID != nil {
			return "/tasks/group/" + *t.GroupID + "/tasks/" + t.ID
		}
	}
	return "/tasks/" + t.ID
}

func (v *RootView) toggleTask(ctx app.Context, t Task) {
	completed := !t.Completed
	ctx.Async(func() {
		if err := apiCall("PATCH", taskPatchPath(t), map[string]bool{"completed": completed}, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.loadTab(ctx) })
	})
}

func (v *RootView) deleteTask(ctx app.Context, t Task) {
	path := "/tasks/" + t.ID
	if t.Type == "PRIVATE" {
		path = "/tasks/private/" + t.ID
	}
	ctx.Async(func() {
		if err := apiCall("DELETE", path, nil, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.loadTab(ctx) })
	})
}

// Friends

func (v *RootView) loadFriends(ctx app.Context) {
	ctx.Async(func() {
		var friends, requests []Friendship
		if err := apiGet("/friends/list", &friends); err != nil {
			v.fail(ctx, err)
			return
		}
		if err := apiGet("/friends/requests", &requests); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			v.friends = friends
			v.requests = requests
		})
	})
}

func (v *RootView) sendRequest(ctx app.Context, e app.Event) {
	e.PreventDefault()
	target := inputValue("friend-id")
	if target == "" {
		return
	}
	ctx.Async(func() {
		if err := apiCall("POST", "/friends/request/"+target, nil, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.errMsg = "" })
		v.loadFriends(ctx)
	})
}

func (v *RootView) resolveRequest(ctx app.Context, id, action string) {
	ctx.Async(func() {
		if err := apiCall("POST", "/friends/"+action+"/"+id, nil, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		v.loadFriends(ctx)
	})
}

// otherUser returns the far side of a friendship edge.
func (v *RootView) otherUser(f Friendship) *User {
	if v.user != nil && f.RequesterID == v.user.ID {
		return f.Receiver
	}
	return f.Requester
}

// Groups

func (v *RootView) loadGroups(ctx app.Context) {
	ctx.Async(func() {
		var groups []Group
		if err := apiGet("/groups", &groups); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.groups = groups })
	})
}

func (v *RootView) createGroup(ctx app.Context, e app.Event) {
	e.PreventDefault()
	body := map[string]string{"name": inputValue("group-name")}
	ctx.Async(func() {
		if err := apiCall("POST", "/groups", body, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		v.loadGroups(ctx)
	})
}

func (v *RootView) openGroup(ctx app.Context, id string) {
	ctx.Async(func() {
		var group Group
		if err := apiGet("/groups/"+id, &group); err != nil {
			v.fail(ctx, err)
			return
		}
		var tasks []Task
		if err := apiGet("/tasks/group/"+id+"/tasks", &tasks); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			v.selectedGroup = &group
			v.groupTasks = tasks
		})
	})
}

func (v *RootView) invite(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if v.selectedGroup == nil {
		return
	}
	groupID := v.selectedGroup.ID
	body := map[string]string{
		"userId": inputValue("invite-id"),
		"role":   inputValue("invite-role"),
	}
	ctx.Async(func() {
		if err := apiCall("POST", "/groups/"+groupID+"/invite", body, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.openGroup(ctx, groupID) })
	})
}

func (v *RootView) createGroupTask(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if v.selectedGroup == nil {
		return
	}
	groupID := v.selectedGroup.ID
	body := map[string]any{
		"title":    inputValue("group-task-title"),
		"priority": inputValue("group-task-priority"),
		"deadline": deadlineValue("group-task-deadline"),
	}
	ctx.Async(func() {
		if err := apiCall("POST", "/tasks/group/"+groupID+"/tasks", body, nil); err != nil {
			v.fail(ctx, err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) { v.openGroup(ctx, groupID) })
	})
}

// myRole returns the caller's role in the open group.
func (v *RootView) myRole() string {
	if v.selectedGroup == nil || v.user == nil {
		return ""
	}
	for _, m := range v.selectedGroup.Members {
		if m.UserID == v.user.ID {
			return m.Role
		}
	}
	return ""
}

// Render

func (v *RootView) Render() app.UI {
	if !v.authChecked {
		return app.Div().Class("loading").Text("Loading...")
	}
	if v.user == nil {
		return v.renderAuth()
	}

	return app.Div().Class("shell").Body(
		app.Header().Class("topbar").Body(
			app.H1().Text("PACT"),
			app.Div().Class("topbar-user").Body(
				app.Span().Text(v.user.Username),
				app.Button().Class("btn-link").Text("Log out").OnClick(v.logout),
			),
		),
		v.renderTabs(),
		app.If(v.errMsg != "", func() app.UI {
			return app.Div().Class("banner error").Text(v.errMsg)
		}),
		app.Main().Class("content").Body(
			v.renderTab(),
		),
	)
}

func (v *RootView) renderAuth() app.UI {
	title := "Log in"
	switchText := "Need an account? Register"
	if v.registerMode {
		title = "Register"
		switchText = "Have an account? Log in"
	}

	return app.Div().Class("auth-screen").Body(
		app.Form().Class("auth-card").OnSubmit(v.submitAuth).Body(
			app.H1().Text("PACT"),
			app.H2().Text(title),
			app.If(v.authError != "", func() app.UI {
				return app.Div().Class("banner error").Text(v.authError)
			}),
			app.If(v.registerMode, func() app.UI {
				return app.Input().ID("auth-username").Type("text").Placeholder("Username").Required(true)
			}),
			app.Input().ID("auth-email").Type("email").Placeholder("Email").Required(true),
			app.Input().ID("auth-password").Type("password").Placeholder("Password").Required(true),
			app.Button().Type("submit").Class("btn-primary").Text(title),
			app.A().Href("/api/auth/google").Class("btn-google").Text("Continue with Google"),
			app.Button().Type("button").Class("btn-link").Text(switchText).
				OnClick(func(ctx app.Context, e app.Event) {
					v.registerMode = !v.registerMode
					v.authError = ""
				}),
		),
	)
}

func (v *RootView) renderTabs() app.UI {
	tab := func(id, label string) app.UI {
		cls := "tab"
		if v.tab == id {
			cls += " active"
		}
		return app.Button().Class(cls).Text(label).
			OnClick(func(ctx app.Context, e app.Event) {
				v.setTab(ctx, id)
			})
	}

	return app.Nav().Class("tabs").Body(
		tab(tabPersonal, "My Tasks"),
		tab(tabPrivate, "Assigned"),
		tab(tabFriends, "Friends"),
		tab(tabGroups, "Groups"),
	)
}

func (v *RootView) renderTab() app.UI {
	switch v.tab {
	case tabPrivate:
		return v.renderPrivate()
	case tabFriends:
		return v.renderFriends()
	case tabGroups:
		return v.renderGroups()
	default:
		return v.renderPersonal()
	}
}

func (v *RootView) renderPersonal() app.UI {
	return app.Div().Body(
		app.Form().Class("task-form").OnSubmit(v.createPersonal).Body(
			app.Input().ID("personal-title").Type("text").Placeholder("New task").Required(true),
			prioritySelect("personal-priority"),
			app.Input().ID("personal-deadline").Type("date"),
			app.Button().Type("submit").Class("btn-primary").Text("Add"),
		),
		v.renderTaskList(v.personalTasks, true),
	)
}

func (v *RootView) renderPrivate() app.UI {
	return app.Div().Body(
		app.Form().Class("task-form").OnSubmit(v.createPrivate).Body(
			app.Input().ID("private-title").Type("text").Placeholder("New task for a friend").Required(true),
			app.Select().ID("private-assignee").Body(
				app.Range(v.friends).Slice(func(i int) app.UI {
					friend := v.otherUser(v.friends[i])
					if friend == nil {
						return app.Option()
					}
					return app.Option().Value(friend.ID).Text(friend.Username)
				}),
			),
			prioritySelect("private-priority"),
			app.Input().ID("private-deadline").Type("date"),
			app.Button().Type("submit").Class("btn-primary").Text("Assign"),
		),
		v.renderTaskList(v.privateTasks, true),
	)
}

func prioritySelect(id string) app.UI {
	return app.Select().ID(id).Body(
		app.Option().Value("MEDIUM").Text("Medium"),
		app.Option().Value("HIGH").Text("High"),
		app.Option().Value("LOW").Text("Low"),
	)
}

func (v *RootView) renderTaskList(tasks []Task, deletable bool) app.UI {
	if len(tasks) == 0 {
		return app.Div().Class("empty").Text("No tasks yet.")
	}

	return app.Ul().Class("task-list").Body(
		app.Range(tasks).Slice(func(i int) app.UI {
			return v.renderTask(tasks[i], deletable)
		}),
	)
}

func (v *RootView) renderTask(t Task, deletable bool) app.UI {
	cls := "task priority-" + t.Priority
	if t.Completed {
		cls += " completed"
	}

	checkCls := "task-check"
	if t.Completed {
		checkCls += " checked"
	}

	canDelete := deletable && v.user != nil && t.OwnerID == v.user.ID

	return app.Li().Class(cls).Body(
		app.Div().Class(checkCls).OnClick(func(ctx app.Context, e app.Event) {
			v.toggleTask(ctx, t)
		}),
		app.Div().Class("task-body").Body(
			app.Span().Class("task-title").Text(t.Title),
			app.If(t.Deadline != nil, func() app.UI {
				return app.Span().Class("task-deadline").Text((*t.Deadline)[:10])
			}),
		),
		app.If(canDelete, func() app.UI {
			return app.Button().Class("btn-danger").Text("×").
				OnClick(func(ctx app.Context, e app.Event) {
					v.deleteTask(ctx, t)
				})
		}),
	)
}

func (v *RootView) renderFriends() app.UI {
	return app.Div().Body(
		app.Form().Class("task-form").OnSubmit(v.sendRequest).Body(
			app.Input().ID("friend-id").Type("text").Placeholder("Friend's user ID").Required(true),
			app.Button().Type("submit").Class("btn-primary").Text("Send request"),
		),
		app.P().Class("hint").Text("Your ID: "+v.user.ID),

		app.If(len(v.requests) > 0, func() app.UI {
			return app.Div().Body(
				app.H3().Text("Incoming requests"),
				app.Ul().Class("friend-list").Body(
					app.Range(v.requests).Slice(func(i int) app.UI {
						req := v.requests[i]
						name := req.RequesterID
						if req.Requester != nil {
							name = req.Requester.Username
						}
						return app.Li().Body(
							app.Span().Text(name),
							app.Button().Class("btn-primary").Text("Accept").
								OnClick(func(ctx app.Context, e app.Event) {
									v.resolveRequest(ctx, req.ID, "accept")
								}),
							app.Button().Class("btn-danger").Text("Block").
								OnClick(func(ctx app.Context, e app.Event) {
									v.resolveRequest(ctx, req.ID, "block")
								}),
						)
					}),
				),
			)
		}),

		app.H3().Text("Friends"),
		app.If(len(v.friends) == 0, func() app.UI {
			return app.Div().Class("empty").Text("No friends yet.")
		}).Else(func() app.UI {
			return app.Ul().Class("friend-list").Body(
				app.Range(v.friends).Slice(func(i int) app.UI {
					friend := v.otherUser(v.friends[i])
					if friend == nil {
						return app.Li()
					}
					return app.Li().Body(
						app.Span().Text(friend.Username),
						app.Span().Class("hint").Text(friend.Email),
					)
				}),
			)
		}),
	)
}

func (v *RootView) renderGroups() app.UI {
	if v.selectedGroup != nil {
		return v.renderGroupDetail()
	}

	return app.Div().Body(
		app.Form().Class("task-form").OnSubmit(v.createGroup).Body(
			app.Input().ID("group-name").Type("text").Placeholder("New group").Required(true),
			app.Button().Type("submit").Class("btn-primary").Text("Create"),
		),
		app.If(len(v.groups) == 0, func() app.UI {
			return app.Div().Class("empty").Text("No groups yet.")
		}).Else(func() app.UI {
			return app.Ul().Class("group-list").Body(
				app.Range(v.groups).Slice(func(i int) app.UI {
					group := v.groups[i]
					return app.Li().Body(
						app.Button().Class("btn-link").Text(group.Name).
							OnClick(func(ctx app.Context, e app.Event) {
								v.openGroup(ctx, group.ID)
							}),
					)
				}),
			)
		}),
	)
}

func (v *RootView) renderGroupDetail() app.UI {
	group := v.selectedGroup
	role := v.myRole()

	return app.Div().Body(
		app.Button().Class("btn-link").Text("← Groups").
			OnClick(func(ctx app.Context, e app.Event) {
				v.selectedGroup = nil
				v.loadGroups(ctx)
			}),
		app.H2().Text(group.Name),

		app.H3().Text("Members"),
		app.Ul().Class("member-list").Body(
			app.Range(group.Members).Slice(func(i int) app.UI {
				m := group.Members[i]
				name := m.UserID
				if m.User != nil {
					name = m.User.Username
				}
				return app.Li().Body(
					app.Span().Text(name),
					app.Span().Class("role-badge").Text(m.Role),
				)
			}),
		),

		app.If(role == "ADMIN", func() app.UI {
			return app.Form().Class("task-form").OnSubmit(v.invite).Body(
				app.Input().ID("invite-id").Type("text").Placeholder("User ID").Required(true),
				app.Select().ID("invite-role").Body(
					app.Option().Value("VIEWER").Text("Viewer"),
					app.Option().Value("EDITOR").Text("Editor"),
					app.Option().Value("ADMIN").Text("Admin"),
				),
				app.Button().Type("submit").Class("btn-primary").Text("Invite"),
			)
		}),

		app.H3().Text("Tasks"),
		app.If(role == "ADMIN" || role == "EDITOR", func() app.UI {
			return app.Form().Class("task-form").OnSubmit(v.createGroupTask).Body(
				app.Input().ID("group-task-title").Type("text").Placeholder("New task").Required(true),
				prioritySelect("group-task-priority"),
				app.Input().ID("group-task-deadline").Type("date"),
				app.Button().Type("submit").Class("btn-primary").Text("Add"),
			)
		}),
		v.renderTaskList(v.groupTasks, false),
	)
}
