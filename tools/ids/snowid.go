package ids

import (
	"strconv"
	"sync"
	"time"
)

// Layout: 41 bits ms since epoch | 10 bits node | 12 bits sequence.
const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator hands out time ordered ids that are unique within one process and node.
// Connection handles use them, so two sockets of the same user never share an id.
type Generator struct {
	mu     sync.Mutex
	node   int64
	seq    int64
	lastMS int64
	now    func() time.Time
}

func NewGenerator(node int64) *Generator {
	if node < 0 || node > maxNode {
		node = 1
	}
	return &Generator{node: node, now: time.Now}
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().Sub(epoch).Milliseconds()
	if ms < g.lastMS {
		// clock moved back, keep counting on the last timestamp
		ms = g.lastMS
	}
	if ms == g.lastMS {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			// sequence exhausted in this millisecond
			ms++
		}
	} else {
		g.seq = 0
	}
	g.lastMS = ms
	return ms<<(nodeBits+seqBits) | g.node<<seqBits | g.seq
}

func (g *Generator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}

var (
	defaultGen *Generator
	once       sync.Once
)

func def() *Generator {
	once.Do(func() { defaultGen = NewGenerator(1) })
	return defaultGen
}

// SetNodeID sets the node of the package generator (0~1023); call from main before serving.
func SetNodeID(nodeID int64) {
	g := def()
	if nodeID < 0 || nodeID > maxNode {
		nodeID = 1
	}
	g.mu.Lock()
	g.node = nodeID
	g.mu.Unlock()
}

func Generate() int64 { return def().Next() }

func GenerateString() string { return def().NextString() }
