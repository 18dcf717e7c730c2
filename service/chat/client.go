package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linker/tools/errs"
	"linker/tools/safe"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must stay below pongWait
	maxMessageSize = 4096
)

// Client is one live connection. Outbound frames go through send and are
// written by a single writer goroutine; store work for this connection runs
// on its own serial job worker.
type Client struct {
	ID        string
	Remote    string
	CreatedAt time.Time

	ws    *websocket.Conn // nil in tests
	send  chan []byte
	jobs  chan func()
	done  chan struct{}
	token string // session token seen at upgrade, if any

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client and starts its job worker. ws may be nil.
func NewClient(id string, ws *websocket.Conn, sendQueue, jobQueue int) *Client {
	if sendQueue <= 0 {
		sendQueue = 256
	}
	if jobQueue <= 0 {
		jobQueue = 32
	}
	c := &Client{
		ID:        id,
		CreatedAt: time.Now(),
		ws:        ws,
		send:      make(chan []byte, sendQueue),
		jobs:      make(chan func(), jobQueue),
		done:      make(chan struct{}),
	}
	if ws != nil {
		c.Remote = ws.RemoteAddr().String()
	}
	safe.Go("chat.client.jobs", c.runJobs)
	return c
}

// WithSessionToken remembers the credential presented during the upgrade.
func (c *Client) WithSessionToken(token string) *Client {
	c.token = token
	return c
}

func (c *Client) SessionToken() string { return c.token }

// Outbound exposes queued frames; the write pump drains it.
func (c *Client) Outbound() <-chan []byte { return c.send }

func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Enqueue queues a frame without blocking. It reports false when the client
// is closed or its queue is full.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Submit hands job to the client's serial worker. Jobs still queued when
// the client closes never run.
func (c *Client) Submit(job func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errs.ErrArgs.WrapMsg("client closed", "conn", c.ID)
	}
	select {
	case c.jobs <- job:
		return nil
	default:
		return errs.ErrQueueFull.WrapMsg("job queue full", "conn", c.ID)
	}
}

// Close is idempotent. It ends the job worker and closes the send queue,
// which makes the write pump send a close frame and drop the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.send)
}

func (c *Client) runJobs() {
	for {
		select {
		case <-c.done:
			return
		case job := <-c.jobs:
			select {
			case <-c.done:
				return
			default:
			}
			c.runJob(job)
		}
	}
}

func (c *Client) runJob(job func()) {
	defer safe.Recover("chat.client.job")
	job()
}

// writePump owns all writes to ws.
func (c *Client) writePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Outbound():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug("write failed", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("ping failed", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		}
	}
}

// readPump feeds inbound text frames to handle until the socket fails.
func (c *Client) readPump(log *zap.Logger, handle func(raw []byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			logReadError(log, c.ID, err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		handle(data)
	}
}

func logReadError(log *zap.Logger, connID string, err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		log.Debug("peer closed", zap.String("conn", connID))
	case websocket.IsUnexpectedCloseError(err, websocket.CloseAbnormalClosure):
		log.Info("unexpected close", zap.String("conn", connID), zap.Error(err))
	default:
		log.Debug("read ended", zap.String("conn", connID), zap.Error(err))
	}
}
