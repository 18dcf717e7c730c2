package chat

import "go.uber.org/zap"

// Fanout enqueues one encoded frame on many clients. Delivery is inline on
// the caller's goroutine so frames from one caller reach each client in
// call order.
type Fanout struct {
	evictSlow bool
	log       *zap.Logger
}

func NewFanout(evictSlow bool, log *zap.Logger) *Fanout {
	return &Fanout{evictSlow: evictSlow, log: log}
}

// Broadcast sends payload to every client except skipID ("" skips none)
// and returns how many accepted it.
func (f *Fanout) Broadcast(conns []*Client, payload []byte, skipID string) int {
	if len(conns) == 0 || len(payload) == 0 {
		return 0
	}
	delivered := 0
	for _, c := range conns {
		if c.ID == skipID {
			continue
		}
		if c.Enqueue(payload) {
			delivered++
			continue
		}
		if c.Closed() {
			continue
		}
		// slow client: queue full
		f.log.Warn("send queue full", zap.String("conn", c.ID), zap.Bool("evict", f.evictSlow))
		if f.evictSlow {
			c.Close()
		}
	}
	return delivered
}
