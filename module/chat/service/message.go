package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

const (
	ErrMsgContentRequired = "Message content is required"
	ErrMsgContentTooLong  = "Message too long (max %d characters)"
)

// Store is the subset of the message store the history API needs.
type Store interface {
	Create(ctx context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error)
	List(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error)
}

// Broadcaster pushes a stored message to connected sockets.
type Broadcaster interface {
	PublishMessage(ctx context.Context, msg chatmodel.Message) int
}

// MessageService backs the HTTP chat endpoints. Messages posted here reach
// socket clients through the broadcaster exactly like relayed ones.
type MessageService struct {
	store     Store
	bc        Broadcaster
	maxLength int
	log       *zap.Logger
	now       func() time.Time
}

func NewMessageService(store Store, bc Broadcaster, maxLength int, log *zap.Logger) *MessageService {
	if maxLength <= 0 {
		maxLength = chatmodel.MaxContentLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{store: store, bc: bc, maxLength: maxLength, log: log, now: time.Now}
}

// History returns one page of messages, oldest first.
func (s *MessageService) History(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error) {
	msgs, more, err := s.store.List(ctx, q.Normalize())
	if err != nil {
		return nil, false, err
	}
	if msgs == nil {
		msgs = []chatmodel.Message{}
	}
	return msgs, more, nil
}

// Send validates content, stores it trimmed, then broadcasts it. The length
// limit applies to the content as received.
func (s *MessageService) Send(ctx context.Context, author usermodel.Identity, content string) (*chatmodel.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errs.ErrArgs.WrapMsg(ErrMsgContentRequired)
	}
	if chatmodel.ContentLength(content) > s.maxLength {
		return nil, errs.ErrArgs.WrapMsg(fmt.Sprintf(ErrMsgContentTooLong, s.maxLength))
	}
	stored, err := s.store.Create(ctx, trimmed, author)
	if err == nil && stored == nil {
		err = errs.ErrPersist.WrapMsg("store returned no message")
	}
	if err != nil {
		return nil, errs.ErrPersist.WrapMsg("create message", "cause", err)
	}

	msg := *stored
	now := s.now()
	if msg.ID == "" {
		msg.ID = chatmodel.TimestampID(now)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if !msg.User.Valid() {
		msg.User = author
	}
	if s.bc != nil {
		n := s.bc.PublishMessage(ctx, msg)
		s.log.Debug("http message broadcast", zap.String("id", msg.ID), zap.Int("receivers", n))
	}
	return &msg, nil
}
