package global

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linker/global/config"
	mid "linker/middleware"
	usermodel "linker/module/user/model"
	userservice "linker/module/user/service"
	"linker/service/chat"
	"linker/service/chat/handlers"
	jwtlib "linker/tools/security"
)

func newRelay(t *testing.T, cfg config.AppConfig, res *Resources) (*chat.Server, *mid.OriginPolicy) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := NewMessageStore(context.Background(), cfg, res)
	require.NoError(t, err)
	policy := mid.NewOriginPolicy(cfg.Server.AllowedOrigins, nil)
	s := chat.NewServer(chat.Options{CheckOrigin: policy.Check}, store, chat.TrustingAuthenticator{},
		chat.NewConnManager(chat.ManagerConf{}), zap.NewNop())
	handlers.RegisterAll(s)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, policy
}

func TestHealth(t *testing.T) {
	cfg := config.Default()
	s, policy := newRelay(t, cfg, &Resources{})
	r := NewRouter(RouterDeps{Relay: s, Policy: policy, Log: zap.NewNop()})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.EqualValues(t, 0, body["connections"])
	assert.EqualValues(t, 0, body["online"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, w.Header().Get(mid.HeaderRequestID))

	// no jwt secret: API not mounted
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatAPIWithClaimsLookup(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "secret"
	res := &Resources{}
	s, policy := newRelay(t, cfg, res)
	accounts, err := NewAccountStore(context.Background(), cfg, res)
	require.NoError(t, err)
	require.Nil(t, accounts)
	lookup := NewIdentityLookup(cfg, accounts)
	require.NotNil(t, lookup)
	r := NewRouter(RouterDeps{Relay: s, Lookup: lookup, Policy: policy, Log: zap.NewNop()})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, _, err := jwtlib.Generate(JWTOptions(cfg), "u1", "alice", "USER")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: jwtlib.CookieName, Value: tok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hi"`)
	assert.Contains(t, w.Body.String(), `"hasMore":false`)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestLoginRoute(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "secret"
	res := &Resources{}
	s, policy := newRelay(t, cfg, res)
	assert.Nil(t, NewLoginService(cfg, nil), "no accounts, no password login")

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := userservice.NewMemoryRepository(usermodel.User{
		ID: "u1", Username: "alice", Role: usermodel.RoleUser, Status: usermodel.StatusApproved, PasswordHash: string(hash),
	})
	opts := JWTOptions(cfg)
	r := NewRouter(RouterDeps{
		Relay:  s,
		Lookup: userservice.NewTokenLookup(opts, repo),
		Login:  userservice.NewLoginService(opts, repo),
		Policy: policy,
		Log:    zap.NewNop(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	// without a login service the route is not mounted
	r = NewRouter(RouterDeps{Relay: s, Lookup: userservice.NewTokenLookup(opts, repo), Policy: policy, Log: zap.NewNop()})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeededAccountsLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.JWT.Secret = "secret"
	cfg.Accounts = []config.Account{
		{ID: "u1", Username: "alice", PasswordHash: string(hash)},
		{ID: "u2", Username: "bob", Status: "pending", PasswordHash: string(hash)},
	}
	res := &Resources{}
	s, policy := newRelay(t, cfg, res)

	accounts, err := NewAccountStore(context.Background(), cfg, res)
	require.NoError(t, err)
	require.NotNil(t, accounts)
	alice, err := accounts.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, usermodel.RoleUser, alice.Role)
	assert.True(t, alice.Approved())

	r := NewRouter(RouterDeps{
		Relay:  s,
		Lookup: NewIdentityLookup(cfg, accounts),
		Login:  NewLoginService(cfg, accounts),
		Policy: policy,
		Log:    zap.NewNop(),
	})
	login := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, login(`{"username":"alice","password":"pw"}`))
	assert.Equal(t, http.StatusForbidden, login(`{"username":"bob","password":"pw"}`))
}

func TestNewMessageStoreNeedsClients(t *testing.T) {
	cfg := config.Default()
	for _, d := range []string{config.DriverPostgres, config.DriverRedis, config.DriverMongo, "sqlite"} {
		cfg.Store.Driver = d
		_, err := NewMessageStore(context.Background(), cfg, &Resources{})
		assert.Error(t, err, d)
	}
}

func TestNewAuthenticator(t *testing.T) {
	cfg := config.Default()
	a, err := NewAuthenticator(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, chat.TrustingAuthenticator{}, a)

	cfg.Chat.AuthMode = config.AuthModeVerify
	_, err = NewAuthenticator(cfg, nil)
	assert.Error(t, err)

	cfg.JWT.Secret = "secret"
	a, err = NewAuthenticator(cfg, NewIdentityLookup(cfg, nil))
	require.NoError(t, err)
	assert.IsType(t, &chat.VerifyingAuthenticator{}, a)
}

func TestConfigAllWithoutClients(t *testing.T) {
	res, err := ConfigAll(context.Background(), config.Default(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, res.Redis)
	assert.Nil(t, res.Pg)
	assert.Nil(t, res.Mongo)
	assert.Nil(t, res.Nats)
	res.Close()
}
