package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
	"linker/tools/ids"
	"linker/tools/safe"
)

type Options struct {
	StoreTimeout     time.Duration
	AuthTimeout      time.Duration
	MaxContentLength int
	SendQueue        int
	JobQueue         int
	EvictSlow        bool
	PresenceRefresh  time.Duration              // rewrite interval for the presence mirror, 0 disables
	CheckOrigin      func(r *http.Request) bool // nil allows any origin
	Clock            func() time.Time           // nil => time.Now
}

func (o *Options) norm() {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 3 * time.Second
	}
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = chatmodel.MaxContentLength
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Server is the presence and broadcast relay.
type Server struct {
	opts     Options
	reg      *Registry
	connMgr  *ConnManager
	disp     *Dispatcher
	fan      *Fanout
	store    MessageStore
	auth     Authenticator
	events   EventSink
	presence PresenceSink
	upgrader websocket.Upgrader

	presenceMu sync.Mutex // orders userCount broadcasts
	presenceCh chan int
	loopDone   chan struct{}
	stopCh     chan struct{}
	stopOnce   sync.Once

	log *zap.Logger
	now func() time.Time
}

func NewServer(opts Options, store MessageStore, auth Authenticator, connMgr *ConnManager, log *zap.Logger) *Server {
	safe.MustNotNil(store, "store")
	safe.MustNotNil(auth, "auth")
	safe.MustNotNil(connMgr, "connMgr")
	if log == nil {
		log = zap.NewNop()
	}
	opts.norm()
	return &Server{
		opts:    opts,
		reg:     NewRegistry(),
		connMgr: connMgr,
		disp:    NewDispatcher(),
		fan:     NewFanout(opts.EvictSlow, log),
		store:   store,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		presenceCh: make(chan int, 1),
		stopCh:     make(chan struct{}),
		log:        log,
		now:        opts.Clock,
	}
}

func (s *Server) Disp() *Dispatcher   { return s.disp }
func (s *Server) Store() MessageStore { return s.store }
func (s *Server) Auth() Authenticator { return s.auth }
func (s *Server) Opts() Options       { return s.opts }
func (s *Server) Logger() *zap.Logger { return s.log }
func (s *Server) Now() time.Time      { return s.now() }

// SetEventSink publishes every broadcast message to sink.
func (s *Server) SetEventSink(sink EventSink) { s.events = sink }

// SetPresenceSink mirrors the online count to sink from a background loop.
func (s *Server) SetPresenceSink(sink PresenceSink) {
	if sink == nil || s.presence != nil {
		return
	}
	s.presence = sink
	s.loopDone = make(chan struct{})
	select {
	case s.presenceCh <- s.reg.Count():
	default:
	}
	safe.Go("chat.presence", s.presenceLoop)
}

// Online is the number of bound connections.
func (s *Server) Online() int { return s.reg.Count() }

// Connections is the number of live connections, bound or not.
func (s *Server) Connections() int { return s.connMgr.Len() }

// NewClient allocates a client with a fresh connection id.
func (s *Server) NewClient(ws *websocket.Conn) *Client {
	return NewClient(ids.GenerateString(), ws, s.opts.SendQueue, s.opts.JobQueue)
}

// Attach makes c a broadcast target.
func (s *Server) Attach(c *Client) error {
	if err := s.connMgr.Add(c); err != nil {
		return err
	}
	s.log.Debug("connected", zap.String("conn", c.ID), zap.String("remote", c.Remote))
	return nil
}

// Disconnect is the single exit path for a connection, clean or not. It
// never waits for the client's in-flight store call.
func (s *Server) Disconnect(c *Client) {
	s.connMgr.Remove(c.ID)
	c.Close()

	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()
	removed, count := s.reg.UnbindCount(c.ID)
	s.log.Debug("disconnected", zap.String("conn", c.ID), zap.Bool("was_bound", removed))
	if removed {
		s.publishCountLocked(count)
	}
}

// Bind attaches identity to c and broadcasts the new count to everyone,
// c included.
func (s *Server) Bind(c *Client, identity usermodel.Identity) error {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()
	count, err := s.reg.BindCount(c.ID, identity)
	if err != nil {
		return err
	}
	s.connMgr.MarkAuthorized(c.ID)
	s.log.Info("authenticated",
		zap.String("conn", c.ID),
		zap.String("user", identity.ID),
		zap.String("username", identity.Username),
		zap.Int("online", count))
	s.publishCountLocked(count)
	return nil
}

// Identity returns the identity c is bound to.
func (s *Server) Identity(c *Client) (usermodel.Identity, bool) {
	return s.reg.Get(c.ID)
}

// HandleFrame parses and dispatches one inbound frame. Errors and panics
// stay within this frame.
func (s *Server) HandleFrame(c *Client, raw []byte) {
	f, err := ParseFrame(raw)
	if err != nil {
		s.log.Debug("bad frame", zap.String("conn", c.ID), zap.Int("len", len(raw)), zap.Error(err))
		return
	}
	ctx := &Context{Context: context.Background(), S: s, Log: s.log}
	err = safe.Call(func() error { return s.disp.Dispatch(ctx, c, f) })
	switch {
	case err == nil:
	case errs.Code(err) == errs.ServerInternalError:
		s.log.Error("handler failed", zap.String("conn", c.ID), zap.String("event", f.Event), zap.Error(err))
	default:
		s.log.Debug("frame dropped", zap.String("conn", c.ID), zap.String("event", f.Event), zap.Error(err))
	}
}

// Broadcast sends event to every live connection.
func (s *Server) Broadcast(event string, data any) int {
	return s.BroadcastOthers(event, data, "")
}

// BroadcastOthers sends event to every live connection except exceptID.
func (s *Server) BroadcastOthers(event string, data any, exceptID string) int {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		s.log.Error("encode broadcast", zap.String("event", event), zap.Error(err))
		return 0
	}
	return s.fan.Broadcast(s.connMgr.Snapshot(), frame, exceptID)
}

// SendTo sends event to c only.
func (s *Server) SendTo(c *Client, event string, data any) bool {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		s.log.Error("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	return c.Enqueue(frame)
}

// PublishMessage broadcasts a stored message and hands it to the event sink.
func (s *Server) PublishMessage(ctx context.Context, msg chatmodel.Message) int {
	n := s.Broadcast(EventNewMessage, msg)
	if s.events != nil {
		if err := s.events.PublishMessage(ctx, msg); err != nil {
			s.log.Warn("publish message event", zap.String("id", msg.ID), zap.Error(err))
		}
	}
	return n
}

func (s *Server) publishCountLocked(count int) {
	s.Broadcast(EventUserCount, count)
	if s.presence == nil {
		return
	}
	// keep only the latest value
	select {
	case <-s.presenceCh:
	default:
	}
	select {
	case s.presenceCh <- count:
	default:
	}
}

func (s *Server) presenceLoop() {
	defer close(s.loopDone)
	var refresh <-chan time.Time
	if s.opts.PresenceRefresh > 0 {
		t := time.NewTicker(s.opts.PresenceRefresh)
		defer t.Stop()
		refresh = t.C
	}
	last := -1
	for {
		select {
		case <-s.stopCh:
			return
		case n := <-s.presenceCh:
			last = n
			s.mirrorPresence(n)
		case <-refresh:
			// the mirror key carries a TTL, so an idle relay must rewrite it
			if last >= 0 {
				s.mirrorPresence(last)
			}
		}
	}
}

func (s *Server) mirrorPresence(n int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StoreTimeout)
	defer cancel()
	if err := s.presence.Online(ctx, n); err != nil {
		s.log.Warn("presence mirror", zap.Int("online", n), zap.Error(err))
	}
}

// Shutdown closes every connection and clears the presence mirror.
func (s *Server) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.connMgr.Close()
		if s.presence != nil {
			// a late Online must not recreate the key
			select {
			case <-s.loopDone:
			case <-ctx.Done():
			}
			if err := s.presence.Offline(ctx); err != nil {
				s.log.Warn("presence offline", zap.Error(err))
			}
		}
	})
}
