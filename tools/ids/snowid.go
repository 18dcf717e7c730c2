package ids

import (
	"strconv"
	"sync"
	"time"
)

// epoch for the 41-bit millisecond part: 2020-01-01 UTC.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

// Generator produces 63-bit snowflake ids: time | node | sequence.
type Generator struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64
	seq      int64
	lastTSMS int64
	now      func() time.Time
}

func NewGenerator(nodeID int64) *Generator {
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	return &Generator{
		epochMS: epoch.UnixMilli(),
		nodeID:  nodeID,
		now:     time.Now,
	}
}

var (
	defaultMu  sync.RWMutex
	defaultGen = NewGenerator(1)
)

// SetNodeID replaces the default generator; call it once from main.
func SetNodeID(nodeID int64) {
	defaultMu.Lock()
	defaultGen = NewGenerator(nodeID)
	defaultMu.Unlock()
}

func Generate() int64 {
	defaultMu.RLock()
	g := defaultGen
	defaultMu.RUnlock()
	return g.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now().UnixMilli()
		if now < g.lastTSMS {
			// clock moved backwards
			time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastTSMS {
			g.seq = (g.seq + 1) & seqMask
			if g.seq == 0 {
				for now <= g.lastTSMS {
					now = g.now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastTSMS = now

		ts := (now - g.epochMS) & (1<<41 - 1)
		return ts<<(nodeBits+seqBits) | g.nodeID<<seqBits | g.seq
	}
}
