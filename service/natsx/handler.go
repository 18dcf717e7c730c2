package natsx

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"linker/tools/errs"
)

// Message is a received NATS message detached from the connection.
type Message struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

type Handler func(ctx context.Context, msg Message) error

type Middleware func(Handler) Handler

// Chain wraps h so that mws[0] runs first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover turns a handler panic into an error.
func Recover(log *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("nats handler panic", zap.String("subject", msg.Subject), zap.Any("panic", r))
					err = errs.ErrInternal.WrapMsg("handler panic", "subject", msg.Subject)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// Logging logs failed deliveries with their latency.
func Logging(log *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			start := time.Now()
			err := next(ctx, msg)
			if err != nil {
				log.Warn("nats handler failed",
					zap.String("subject", msg.Subject),
					zap.Duration("cost", time.Since(start)),
					zap.Error(err))
			}
			return err
		}
	}
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func toMessage(m *nats.Msg) Message {
	return Message{
		Subject: m.Subject,
		Data:    append([]byte(nil), m.Data...),
		Header:  headerToMap(m.Header),
	}
}
