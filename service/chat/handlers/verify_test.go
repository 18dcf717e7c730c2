package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	usermodel "linker/module/user/model"
	usersvc "linker/module/user/service"
	"linker/service/chat"
	"linker/service/chat/handlers"
	jwtlib "linker/tools/security"
)

func newVerifyingRelay(t *testing.T, users ...usermodel.User) (*chat.Server, jwtlib.Options) {
	t.Helper()
	opts := jwtlib.DefaultOptions([]byte("test-secret"))
	lookup := usersvc.NewTokenLookup(opts, usersvc.NewMemoryRepository(users...))
	s := chat.NewServer(chat.Options{StoreTimeout: time.Second},
		&fakeStore{}, chat.NewVerifyingAuthenticator(lookup), chat.NewConnManager(chat.ManagerConf{}), zap.NewNop())
	handlers.RegisterAll(s)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, opts
}

func token(t *testing.T, opts jwtlib.Options, u usermodel.User) string {
	t.Helper()
	tok, _, err := jwtlib.Generate(opts, u.ID, u.Username, string(u.Role))
	require.NoError(t, err)
	return tok
}

var (
	approved = usermodel.User{ID: "u1", Username: "alice", Role: usermodel.RoleUser, Status: usermodel.StatusApproved}
	pending  = usermodel.User{ID: "u2", Username: "bob", Role: usermodel.RoleUser, Status: usermodel.StatusPending}
)

func TestVerifyModeBindsServerSideIdentity(t *testing.T) {
	s, opts := newVerifyingRelay(t, approved)
	a := connect(t, s, "a")

	// claimed identity is ignored in favour of the token's subject
	send(t, s, a, chat.EventAuthenticate, chat.AuthPayload{ID: "admin", Username: "root", Role: "SUPER_ADMIN", Token: token(t, opts, approved)})
	assert.Equal(t, []int{1}, counts(t, drain(t, a)))

	id, ok := s.Identity(a)
	require.True(t, ok)
	assert.Equal(t, usermodel.Identity{ID: "u1", Username: "alice", Role: "USER"}, id)
}

func TestVerifyModeUsesUpgradeToken(t *testing.T) {
	s, opts := newVerifyingRelay(t, approved)
	a := chat.NewClient("a", nil, 16, 4).WithSessionToken(token(t, opts, approved))
	require.NoError(t, s.Attach(a))

	send(t, s, a, chat.EventAuthenticate, map[string]string{})
	assert.Equal(t, []int{1}, counts(t, drain(t, a)))
}

func TestVerifyModeRejects(t *testing.T) {
	s, opts := newVerifyingRelay(t, approved, pending)
	a := connect(t, s, "a")

	send(t, s, a, chat.EventAuthenticate, chat.AuthPayload{ID: "u1", Username: "alice"})
	send(t, s, a, chat.EventAuthenticate, chat.AuthPayload{Token: "forged"})
	send(t, s, a, chat.EventAuthenticate, chat.AuthPayload{Token: token(t, opts, pending)})
	send(t, s, a, chat.EventAuthenticate, chat.AuthPayload{Token: token(t, jwtlib.DefaultOptions([]byte("other")), approved)})

	assert.Empty(t, drain(t, a))
	assert.Equal(t, 0, s.Online())

	// unbound connection still cannot send
	send(t, s, a, chat.EventSendMessage, chat.SendMessagePayload{Content: "hi"})
	assertQuiet(t, a, 20*time.Millisecond)
}
