package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OriginPolicy decides which browser origins may open sockets and call the
// API. "*" allows every origin, including requests without one.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      *zap.Logger
}

func NewOriginPolicy(origins []string, log *zap.Logger) *OriginPolicy {
	if log == nil {
		log = zap.NewNop()
	}
	p := &OriginPolicy{allowed: make(map[string]struct{}), log: log}
	list, allowAll := normalizeOrigins(origins, log)
	p.allowAll = allowAll
	for _, o := range list {
		p.allowed[o] = struct{}{}
	}
	return p
}

func (p *OriginPolicy) AllowAll() bool { return p.allowAll }

// Allowed reports whether origin (an Origin header value) is permitted.
func (p *OriginPolicy) Allowed(origin string) bool {
	if p.allowAll {
		return true
	}
	if origin == "" {
		return false
	}
	o, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, exists := p.allowed[o]
	return exists
}

// Check is the websocket upgrade hook.
func (p *OriginPolicy) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if p.Allowed(origin) {
		return true
	}
	p.log.Warn("blocked websocket origin", zap.String("origin", origin))
	return false
}

// CORS answers preflights and sets the allow headers for permitted origins.
// Credentials are allowed so the auth cookie reaches the API.
func (p *OriginPolicy) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			return
		}
		if !p.Allowed(origin) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}

func normalizeOrigins(origins []string, log *zap.Logger) ([]string, bool) {
	normalized := make([]string, 0, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		o, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid origin", zap.String("origin", origin))
			continue
		}
		normalized = append(normalized, o)
	}
	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
