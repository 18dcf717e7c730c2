package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSuspended Status = "SUSPENDED"
)

// Identity is the snapshot a chat connection is bound to and the author
// attached to a stored message. Role is kept as sent; the relay never
// interprets it.
type Identity struct {
	ID       string `json:"id" bson:"id"`
	Username string `json:"username" bson:"username"`
	Role     string `json:"role" bson:"role"`
}

func (i Identity) Valid() bool {
	return strings.TrimSpace(i.ID) != ""
}

// User is the account record behind a session token. PasswordHash is only
// loaded for login.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}

func (u *User) Approved() bool {
	return u != nil && u.Status == StatusApproved
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: string(u.Role)}
}
