package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/service/chat"
	"linker/service/chat/handlers"
)

type echoStore struct{}

func (echoStore) Create(_ context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error) {
	return &chatmodel.Message{ID: "stored-1", Content: content, User: author, CreatedAt: time.Now()}, nil
}

func (echoStore) List(context.Context, chatmodel.ListQuery) ([]chatmodel.Message, bool, error) {
	return nil, false, nil
}

func startRelay(t *testing.T, opts chat.Options) (*chat.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := chat.NewServer(opts, echoStore{}, chat.TrustingAuthenticator{}, chat.NewConnManager(chat.ManagerConf{}), zap.NewNop())
	handlers.RegisterAll(s)

	r := gin.New()
	r.GET("/ws", s.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		s.Shutdown(context.Background())
		ts.Close()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func emit(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := chat.EncodeFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, raw))
}

func read(t *testing.T, ws *websocket.Conn) *chat.Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	f, err := chat.ParseFrame(raw)
	require.NoError(t, err)
	return f
}

func readCount(t *testing.T, ws *websocket.Conn) int {
	t.Helper()
	f := read(t, ws)
	require.Equal(t, chat.EventUserCount, f.Event)
	var n int
	require.NoError(t, json.Unmarshal(f.Data, &n))
	return n
}

func TestWebSocketSession(t *testing.T) {
	s, url := startRelay(t, chat.Options{})

	alice := dial(t, url, nil)
	emit(t, alice, chat.EventAuthenticate, chat.AuthPayload{ID: "u1", Username: "alice", Role: "USER"})
	assert.Equal(t, 1, readCount(t, alice))

	bob := dial(t, url, nil)
	emit(t, bob, chat.EventAuthenticate, chat.AuthPayload{ID: "u2", Username: "bob", Role: "USER"})
	assert.Equal(t, 2, readCount(t, alice))
	assert.Equal(t, 2, readCount(t, bob))

	emit(t, bob, chat.EventTyping, true)
	f := read(t, alice)
	assert.Equal(t, chat.EventUserTyping, f.Event)

	emit(t, alice, chat.EventSendMessage, chat.SendMessagePayload{Content: "hello"})
	for _, ws := range []*websocket.Conn{alice, bob} {
		f := read(t, ws)
		require.Equal(t, chat.EventNewMessage, f.Event)
		var m chatmodel.Message
		require.NoError(t, json.Unmarshal(f.Data, &m))
		assert.Equal(t, "hello", m.Content)
		assert.Equal(t, "stored-1", m.ID)
		assert.Equal(t, "alice", m.User.Username)
	}

	// abrupt close counts as a disconnect
	require.NoError(t, alice.Close())
	assert.Equal(t, 1, readCount(t, bob))
	require.Eventually(t, func() bool { return s.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, s.Online())
}

func TestWebSocketOriginPolicy(t *testing.T) {
	_, url := startRelay(t, chat.Options{CheckOrigin: func(r *http.Request) bool {
		return r.Header.Get("Origin") == "https://app.example.com"
	}})

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()
	}

	ws := dial(t, url, http.Header{"Origin": {"https://app.example.com"}})
	emit(t, ws, chat.EventAuthenticate, chat.AuthPayload{ID: "u1"})
	assert.Equal(t, 1, readCount(t, ws))
}

func TestWebSocketOversizedFrameDisconnects(t *testing.T) {
	s, url := startRelay(t, chat.Options{})
	ws := dial(t, url, nil)
	emit(t, ws, chat.EventAuthenticate, chat.AuthPayload{ID: "u1"})
	assert.Equal(t, 1, readCount(t, ws))

	emit(t, ws, chat.EventSendMessage, chat.SendMessagePayload{Content: strings.Repeat("x", 8192)})
	require.Eventually(t, func() bool { return s.Online() == 0 }, 2*time.Second, 10*time.Millisecond)
}
