package handlers

import (
	"context"

	"go.uber.org/zap"

	"linker/service/chat"
)

type AuthHandler struct{}

func NewAuthHandler() chat.Handler { return &AuthHandler{} }

func (h *AuthHandler) Event() string { return chat.EventAuthenticate }

// Handle runs on the connection's read goroutine, so a bind can never land
// after that connection's disconnect.
func (h *AuthHandler) Handle(ctx *chat.Context, c *chat.Client, f *chat.Frame) error {
	p, err := chat.DecodeAuth(f)
	if err != nil {
		return err
	}

	actx, cancel := context.WithTimeout(ctx, ctx.S.Opts().AuthTimeout)
	identity, err := ctx.S.Auth().Authenticate(actx, c, p)
	cancel()
	if err != nil {
		ctx.Log.Info("authenticate refused", zap.String("conn", c.ID), zap.Error(err))
		return err
	}
	return ctx.S.Bind(c, identity)
}
