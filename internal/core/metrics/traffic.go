package metrics

import (
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-cpman/pkg/types"
)

// direction 一对入站/出站计量器
type direction struct {
	in  *Meter
	out *Meter
}

func newDirection(clk clock.Clock) *direction {
	return &direction{in: NewMeter(clk), out: NewMeter(clk)}
}

func (d *direction) stats() Stats {
	return Stats{
		TotalIn:  d.in.Total(),
		TotalOut: d.out.Total(),
		RateIn:   d.in.Rate(),
		RateOut:  d.out.Rate(),
	}
}

// TrafficCounter 集群消息流量计数器
//
// 全局、按对端、按主题三层统计，计量器按需创建。
type TrafficCounter struct {
	clock clock.Clock

	total *direction

	peerMu sync.RWMutex
	peers  map[types.NodeID]*direction

	subjectMu sync.RWMutex
	subjects  map[string]*direction
}

// NewTrafficCounter 创建流量计数器
func NewTrafficCounter(clk clock.Clock) *TrafficCounter {
	if clk == nil {
		clk = clock.New()
	}
	return &TrafficCounter{
		clock:    clk,
		total:    newDirection(clk),
		peers:    make(map[types.NodeID]*direction),
		subjects: make(map[string]*direction),
	}
}

// LogSentMessage 记录发送
func (c *TrafficCounter) LogSentMessage(size int64, subject string, peer types.NodeID) {
	c.total.out.Mark(size)
	c.peer(peer).out.Mark(size)
	c.subject(subject).out.Mark(size)
}

// LogRecvMessage 记录接收
func (c *TrafficCounter) LogRecvMessage(size int64, subject string, peer types.NodeID) {
	c.total.in.Mark(size)
	c.peer(peer).in.Mark(size)
	c.subject(subject).in.Mark(size)
}

// Totals 获取总流量统计
func (c *TrafficCounter) Totals() Stats {
	return c.total.stats()
}

// ForPeer 获取对端流量统计
func (c *TrafficCounter) ForPeer(peer types.NodeID) Stats {
	c.peerMu.RLock()
	d, ok := c.peers[peer]
	c.peerMu.RUnlock()
	if !ok {
		return Stats{}
	}
	return d.stats()
}

// ForSubject 获取主题流量统计
func (c *TrafficCounter) ForSubject(subject string) Stats {
	c.subjectMu.RLock()
	d, ok := c.subjects[subject]
	c.subjectMu.RUnlock()
	if !ok {
		return Stats{}
	}
	return d.stats()
}

// ByPeer 获取所有对端流量统计
func (c *TrafficCounter) ByPeer() map[types.NodeID]Stats {
	c.peerMu.RLock()
	defer c.peerMu.RUnlock()

	out := make(map[types.NodeID]Stats, len(c.peers))
	for p, d := range c.peers {
		out[p] = d.stats()
	}
	return out
}

// BySubject 获取所有主题流量统计
func (c *TrafficCounter) BySubject() map[string]Stats {
	c.subjectMu.RLock()
	defer c.subjectMu.RUnlock()

	out := make(map[string]Stats, len(c.subjects))
	for s, d := range c.subjects {
		out[s] = d.stats()
	}
	return out
}

// Reset 重置所有统计
func (c *TrafficCounter) Reset() {
	c.total.in.Reset()
	c.total.out.Reset()

	c.peerMu.Lock()
	c.peers = make(map[types.NodeID]*direction)
	c.peerMu.Unlock()

	c.subjectMu.Lock()
	c.subjects = make(map[string]*direction)
	c.subjectMu.Unlock()
}

func (c *TrafficCounter) peer(p types.NodeID) *direction {
	c.peerMu.RLock()
	d, ok := c.peers[p]
	c.peerMu.RUnlock()
	if ok {
		return d
	}

	c.peerMu.Lock()
	defer c.peerMu.Unlock()
	if d, ok := c.peers[p]; ok {
		return d
	}
	d = newDirection(c.clock)
	c.peers[p] = d
	return d
}

func (c *TrafficCounter) subject(s string) *direction {
	c.subjectMu.RLock()
	d, ok := c.subjects[s]
	c.subjectMu.RUnlock()
	if ok {
		return d
	}

	c.subjectMu.Lock()
	defer c.subjectMu.Unlock()
	if d, ok := c.subjects[s]; ok {
		return d
	}
	d = newDirection(c.clock)
	c.subjects[s] = d
	return d
}
