package natsx

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	chatmodel "linker/module/chat/model"
	"linker/tools/errs"
)

const (
	DefaultSubject = "linker.chat.message"

	HeaderMsgID = nats.MsgIdHdr // JetStream dedup key
	HeaderNode  = "Linker-Node"
)

type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// ChatEvent is the body published for every relayed message.
type ChatEvent struct {
	Event string            `json:"event"`
	Node  string            `json:"node,omitempty"`
	Data  chatmodel.Message `json:"data"`
}

// Publisher forwards relayed chat messages to a subject.
type Publisher struct {
	pub     msgPublisher
	subject string
	node    string
}

func NewPublisher(c *Client, subject, node string) *Publisher {
	return newPublisher(c.nc, subject, node)
}

func newPublisher(pub msgPublisher, subject, node string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{pub: pub, subject: subject, node: node}
}

func (p *Publisher) Subject() string { return p.subject }

func (p *Publisher) PublishMessage(ctx context.Context, msg chatmodel.Message) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err)
	}
	data, err := json.Marshal(ChatEvent{Event: "newMessage", Node: p.node, Data: msg})
	if err != nil {
		return errs.WrapMsg(err, "encode chat event", "id", msg.ID)
	}
	m := nats.NewMsg(p.subject)
	m.Data = data
	m.Header.Set(HeaderMsgID, msg.ID)
	if p.node != "" {
		m.Header.Set(HeaderNode, p.node)
	}
	if err := p.pub.PublishMsg(m); err != nil {
		return errs.WrapMsg(err, "nats publish", "subject", p.subject)
	}
	return nil
}
