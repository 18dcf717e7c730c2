package model

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	usermodel "linker/module/user/model"
)

const (
	MsgTableName = "chat_messages" // table / collection name

	DefaultListLimit = 100
	MaxListLimit     = 100
	MaxContentLength = 1000
)

// Message is a stored chat message with the author snapshot taken at write time.
type Message struct {
	ID        string             `json:"id" bson:"_id"`
	Content   string             `json:"content" bson:"content"`
	User      usermodel.Identity `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// ListQuery pages backwards through history. Before is a message id; empty
// means "from the newest".
type ListQuery struct {
	Limit  int
	Before string
}

// Normalize clamps Limit into [1, MaxListLimit].
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	q.Before = strings.TrimSpace(q.Before)
	return q
}

// ContentLength counts characters, not bytes.
func ContentLength(s string) int {
	return utf8.RuneCountInString(s)
}

// TimestampID formats t as Unix milliseconds. Not unique.
func TimestampID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
