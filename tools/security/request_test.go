package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	assert.Equal(t, "q", TokenFromRequest(r))

	r.Header.Set("Authorization", "bearer h")
	assert.Equal(t, "h", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "c"})
	assert.Equal(t, "c", TokenFromRequest(r))

	assert.Equal(t, "", TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, "", TokenFromRequest(nil))
}
