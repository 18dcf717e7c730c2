package natsx

import (
	"context"

	"github.com/nats-io/nats.go"

	"linker/tools/errs"
)

// Subscribe delivers every message on subject to h. A non-empty queue joins
// a queue group so only one member receives each message.
func (c *Client) Subscribe(subject, queue string, h Handler, mws ...Middleware) (*nats.Subscription, error) {
	if subject == "" {
		return nil, errs.ErrArgs.WrapMsg("empty subject")
	}
	h = Chain(h, append([]Middleware{Recover(c.log), Logging(c.log)}, mws...)...)
	cb := func(m *nats.Msg) {
		_ = h(context.Background(), toMessage(m))
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = c.nc.Subscribe(subject, cb)
	} else {
		sub, err = c.nc.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "nats subscribe", "subject", subject)
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	return sub, nil
}
