package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usermodel "linker/module/user/model"
	"linker/module/user/service"
	jwtlib "linker/tools/security"
)

func setup(t *testing.T) (http.Handler, jwtlib.Options) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opts := jwtlib.DefaultOptions([]byte("secret"))
	repo := service.NewMemoryRepository(
		usermodel.User{ID: "u1", Username: "alice", Role: usermodel.RoleUser, Status: usermodel.StatusApproved},
		usermodel.User{ID: "u2", Username: "bob", Role: usermodel.RoleUser, Status: usermodel.StatusPending},
	)
	r := gin.New()
	r.GET("/me", Middleware(service.NewTokenLookup(opts, repo), nil, nil), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, u.Username)
	})
	return r, opts
}

func get(h http.Handler, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	h, opts := setup(t)

	assert.Equal(t, http.StatusUnauthorized, get(h, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(h, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	}).Code)

	tok, _, err := jwtlib.Generate(opts, "u1", "alice", "USER")
	require.NoError(t, err)
	w := get(h, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: jwtlib.CookieName, Value: tok})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w = get(h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
	assert.Equal(t, http.StatusOK, w.Code)

	pending, _, err := jwtlib.Generate(opts, "u2", "bob", "USER")
	require.NoError(t, err)
	w = get(h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pending) })
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Not authorized"}`, w.Body.String())

	ghost, _, err := jwtlib.Generate(opts, "u9", "ghost", "USER")
	require.NoError(t, err)
	w = get(h, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ghost) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUserMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentUser(c)
	assert.False(t, ok)
}
