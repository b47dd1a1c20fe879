package main

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type Friendship struct {
	ID          string `json:"id"`
	RequesterID string `json:"requesterId"`
	ReceiverID  string `json:"receiverId"`
	Status      string `json:"status"`
	Requester   *User  `json:"requester"`
	Receiver    *User  `json:"receiver"`
}

type Group struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Members []GroupMember `json:"members"`
}

type GroupMember struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`
	User    *User  `json:"user"`
}

type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Deadline    *string `json:"deadline"`
	Completed   bool    `json:"completed"`
	Type        string  `json:"type"`
	OwnerID     string  `json:"ownerId"`
	AssigneeID  *string `json:"assigneeId"`
	GroupID     *string `json:"groupId"`
}
