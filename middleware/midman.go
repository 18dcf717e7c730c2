package middleware

import (
	"github.com/gin-gonic/gin"
)

// MiddlewareManager runs a fixed list of handlers as one gin middleware.
type MiddlewareManager struct {
	mids []gin.HandlerFunc
}

func NewManager(mids ...gin.HandlerFunc) *MiddlewareManager {
	return &MiddlewareManager{mids: append([]gin.HandlerFunc{}, mids...)}
}

// Use returns the handler to mount on the engine. Each registered handler
// runs in order and must not call c.Next itself; an abort stops the chain.
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range m.mids {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
