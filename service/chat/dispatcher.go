package chat

import (
	"context"

	"go.uber.org/zap"

	"linker/tools/errs"
)

// Handler processes one inbound event type.
type Handler interface {
	Event() string
	Handle(ctx *Context, c *Client, f *Frame) error
}

// Context is handed to every handler invocation.
type Context struct {
	context.Context
	S   *Server
	Log *zap.Logger
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, c *Client, f *Frame) error {
	h, ok := d.handlers[f.Event]
	if !ok {
		return errs.ErrNoHandler.WrapMsg("no handler", "event", f.Event)
	}
	return h.Handle(ctx, c, f)
}
