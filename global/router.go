package global

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mid "linker/middleware"
	midsec "linker/middleware/security"
	chatapi "linker/module/chat"
	chatservice "linker/module/chat/service"
	"linker/module/user"
	userservice "linker/module/user/service"
	"linker/service/chat"
)

const ServiceName = "Linker Platform"

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Relay  *chat.Server
	Lookup midsec.Lookup             // nil disables the authenticated API
	Login  *userservice.LoginService // nil disables password login
	Policy *mid.OriginPolicy
	Log    *zap.Logger
}

// NewRouter mounts the socket endpoint, health and the chat API.
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Policy == nil {
		d.Policy = mid.NewOriginPolicy([]string{"*"}, d.Log)
	}
	r := gin.New()
	r.Use(mid.AccessLog(d.Log.Named("http"), "/ws"), mid.Recovery(d.Log))
	r.Use(mid.NewManager(mid.RequestID(), d.Policy.CORS()).Use())

	r.GET("/ws", d.Relay.HandleWS)

	api := r.Group("/api")
	api.GET("/health", Health(d.Relay))

	if d.Lookup == nil {
		d.Log.Warn("jwt secret not set, chat http api disabled")
		return r
	}
	routes := mid.NewRoutes(api, midsec.Middleware(d.Lookup, midsec.DefaultOptions(), d.Log.Named("auth")))

	svc := chatservice.NewMessageService(d.Relay.Store(), d.Relay, d.Relay.Opts().MaxContentLength, d.Log.Named("chat.api"))
	h := chatapi.NewHandler(svc, d.Log.Named("chat.api"))
	routes.GET("/chat/messages", h.ListMessages, mid.RouteOpt{IsAuth: true})
	routes.POST("/chat/messages", h.SendMessage, mid.RouteOpt{IsAuth: true})
	routes.GET("/auth/me", user.HandlerMe, mid.RouteOpt{IsAuth: true})
	routes.POST("/auth/logout", user.HandlerLogout, mid.RouteOpt{})
	if d.Login != nil {
		routes.POST("/auth/login", user.HandlerLogin(d.Login), mid.RouteOpt{})
	}
	return r
}

// Health reports liveness plus the relay's counters.
func Health(s *chat.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
			"service":     ServiceName,
			"connections": s.Connections(),
			"online":      s.Online(),
		})
	}
}
