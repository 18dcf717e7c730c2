package security

import (
	"net/http"
	"strings"
)

// CookieName is the session cookie set at login.
const CookieName = "auth-token"

// TokenFromRequest returns the session token carried by r: the cookie
// first, then a Bearer header, then the "token" query parameter (browsers
// cannot set headers on a websocket upgrade).
func TokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
