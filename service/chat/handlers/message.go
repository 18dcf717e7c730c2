package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/service/chat"
	"linker/tools/errs"
)

const (
	errSendFailed = "Failed to send message"
	errTooLong    = "Message too long (max %d characters)"
)

type MessageHandler struct{}

func NewMessageHandler() chat.Handler { return &MessageHandler{} }

func (h *MessageHandler) Event() string { return chat.EventSendMessage }

// Handle validates on the read goroutine and persists on the client's job
// worker. Store success broadcasts newMessage to everyone; failure tells
// the sender only.
func (h *MessageHandler) Handle(ctx *chat.Context, c *chat.Client, f *chat.Frame) error {
	author, ok := ctx.S.Identity(c)
	if !ok {
		return errs.ErrUnauthenticated.WrapMsg("sendMessage before authenticate", "conn", c.ID)
	}
	p, err := chat.DecodeSendMessage(f)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.Content) == "" {
		return errs.ErrArgs.WrapMsg("empty content", "conn", c.ID)
	}
	if limit := ctx.S.Opts().MaxContentLength; chatmodel.ContentLength(p.Content) > limit {
		ctx.S.SendTo(c, chat.EventMessageError, chat.MessageError{ID: p.ID, Error: fmt.Sprintf(errTooLong, limit)})
		return errs.ErrArgs.WrapMsg("content too long", "conn", c.ID)
	}

	err = c.Submit(func() { persist(ctx.S, c, author, p) })
	if err != nil {
		ctx.S.SendTo(c, chat.EventMessageError, chat.MessageError{ID: p.ID, Error: errSendFailed})
		return err
	}
	return nil
}

func persist(s *chat.Server, c *chat.Client, author usermodel.Identity, p *chat.SendMessagePayload) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Opts().StoreTimeout)
	defer cancel()

	stored, err := s.Store().Create(ctx, p.Content, author)
	if err == nil && stored == nil {
		err = errs.ErrPersist.WrapMsg("store returned no message")
	}
	if err != nil {
		s.Logger().Warn("persist message failed",
			zap.String("conn", c.ID),
			zap.String("user", author.ID),
			zap.Error(err))
		s.SendTo(c, chat.EventMessageError, chat.MessageError{ID: p.ID, Error: errSendFailed})
		return
	}

	msg := *stored
	now := s.Now()
	msg.ID = chat.ResolveMessageID(stored.ID, p.ID, now)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if !msg.User.Valid() {
		msg.User = author
	}
	n := s.PublishMessage(ctx, msg)
	s.Logger().Debug("message relayed",
		zap.String("id", msg.ID),
		zap.String("user", author.ID),
		zap.Int("delivered", n))
}
