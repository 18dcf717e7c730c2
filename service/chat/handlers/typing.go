package handlers

import (
	"linker/service/chat"
	"linker/tools/errs"
)

type TypingHandler struct{}

func NewTypingHandler() chat.Handler { return &TypingHandler{} }

func (h *TypingHandler) Event() string { return chat.EventTyping }

// Handle relays the signal to everyone but the sender. No typing state is
// kept; receivers expire it after chat.TypingExpiry.
func (h *TypingHandler) Handle(ctx *chat.Context, c *chat.Client, f *chat.Frame) error {
	identity, ok := ctx.S.Identity(c)
	if !ok {
		return errs.ErrUnauthenticated.WrapMsg("typing before authenticate", "conn", c.ID)
	}
	isTyping, err := chat.DecodeTyping(f)
	if err != nil {
		return err
	}
	ctx.S.BroadcastOthers(chat.EventUserTyping, chat.TypingEvent{
		UserID:   identity.ID,
		Username: identity.Username,
		IsTyping: isTyping,
	}, c.ID)
	return nil
}
