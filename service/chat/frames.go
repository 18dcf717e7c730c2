package chat

import (
	"encoding/json"
	"strings"
	"time"

	chatmodel "linker/module/chat/model"
	"linker/tools/decode"
	"linker/tools/errs"
)

// Event names on the wire.
const (
	EventAuthenticate = "authenticate"
	EventSendMessage  = "sendMessage"
	EventTyping       = "typing"

	EventNewMessage   = "newMessage"
	EventUserCount    = "userCount"
	EventUserTyping   = "userTyping"
	EventMessageError = "messageError"
)

// TypingExpiry is how long a client shows a typing indicator without a
// follow-up signal. The relay keeps no typing state.
const TypingExpiry = 3 * time.Second

// Frame is the JSON envelope carried by every text frame.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrArgs.WrapMsg("unmarshal frame", "err", err)
	}
	f.Event = strings.TrimSpace(f.Event)
	if f.Event == "" {
		return nil, errs.ErrArgs.WrapMsg("frame has no event")
	}
	return f, nil
}

func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal payload", "event", event)
	}
	out, err := json.Marshal(Frame{Event: event, Data: raw})
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal frame", "event", event)
	}
	return out, nil
}

// AuthPayload is the authenticate body. Trust mode reads the identity
// fields; verify mode reads Token and ignores the rest.
type AuthPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

type SendMessagePayload struct {
	Content string `json:"content"`
	ID      string `json:"id,omitempty"` // client-side id, used as fallback
}

type TypingEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// MessageError tells the sender its message was not delivered.
type MessageError struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

func DecodeAuth(f *Frame) (*AuthPayload, error) {
	return decode.DecodeJSON[AuthPayload](f.Data)
}

func DecodeSendMessage(f *Frame) (*SendMessagePayload, error) {
	return decode.DecodeJSON[SendMessagePayload](f.Data)
}

// DecodeTyping accepts a bare boolean, or {"isTyping": bool} from clients
// that wrap it.
func DecodeTyping(f *Frame) (bool, error) {
	if b, err := decode.DecodeJSON[bool](f.Data); err == nil {
		return *b, nil
	}
	wrapped, err := decode.DecodeJSON[struct {
		IsTyping bool `json:"isTyping"`
	}](f.Data)
	if err != nil {
		return false, err
	}
	return wrapped.IsTyping, nil
}

// ResolveMessageID picks the id sent with newMessage: the store's, then the
// client's, then the current Unix-ms time. The last one is best effort
// and can collide.
func ResolveMessageID(stored, clientID string, now time.Time) string {
	if stored != "" {
		return stored
	}
	if clientID != "" {
		return clientID
	}
	return chatmodel.TimestampID(now)
}
