package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	midsec "linker/middleware/security"
	chatmodel "linker/module/chat/model"
	"linker/module/chat/service"
	"linker/tools/errs"
)

type Handler struct {
	svc *service.MessageService
	log *zap.Logger
}

func NewHandler(svc *service.MessageService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

type sendRequest struct {
	Content string `json:"content"`
}

// ListMessages handles GET /api/chat/messages?limit=&before=.
func (h *Handler) ListMessages(c *gin.Context) {
	q := chatmodel.ListQuery{Before: c.Query("before")}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		q.Limit = n
	}
	msgs, more, err := h.svc.History(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "hasMore": more})
}

// SendMessage handles POST /api/chat/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	u, ok := midsec.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), u.Identity(), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) fail(c *gin.Context, err error) {
	var ce errs.CodeError
	if errors.As(err, &ce) && ce.Code == errs.ArgsError {
		msg := ce.Detail
		if msg == "" {
			msg = ce.Msg
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	h.log.Error("chat api", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
