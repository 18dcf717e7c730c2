package chat

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linker/tools/security"
)

// HandleWS upgrades the request and runs the connection until it closes.
// The read loop runs on this goroutine; writes run on their own.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// not a websocket request, or origin refused; the upgrader already replied
		s.log.Debug("upgrade failed", zap.String("origin", c.Request.Header.Get("Origin")), zap.Error(err))
		return
	}

	client := s.NewClient(ws).WithSessionToken(security.TokenFromRequest(c.Request))
	if err := s.Attach(client); err != nil {
		s.log.Warn("attach failed", zap.String("conn", client.ID), zap.Error(err))
		client.Close()
		_ = ws.Close()
		return
	}

	go client.writePump(s.log)
	client.readPump(s.log, func(raw []byte) { s.HandleFrame(client, raw) })
	s.Disconnect(client)
}
