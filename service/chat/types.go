package chat

import (
	"context"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
)

// MessageStore persists chat messages. The relay only calls Create; List
// backs the history API.
type MessageStore interface {
	Create(ctx context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error)
	List(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error)
}

// IdentityLookup resolves a session credential to an account.
type IdentityLookup interface {
	Lookup(ctx context.Context, token string) (*usermodel.User, error)
}

// EventSink receives every message the relay broadcasts.
type EventSink interface {
	PublishMessage(ctx context.Context, msg chatmodel.Message) error
}

// PresenceSink mirrors the online count somewhere other processes can read it.
type PresenceSink interface {
	Online(ctx context.Context, count int) error
	Offline(ctx context.Context) error
}
