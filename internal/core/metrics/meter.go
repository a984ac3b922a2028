// Package metrics 提供计量、指标注册和导出
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
// Meter - 一分钟衰减速率
// ============================================================================

const (
	// tickInterval 衰减周期
	tickInterval = 5 * time.Second

	// maxCatchUpTicks 超过该周期数未更新时直接归零
	maxCatchUpTicks = 720
)

// oneMinuteAlpha 一分钟指数加权移动平均的衰减系数
var oneMinuteAlpha = 1 - math.Exp(-tickInterval.Seconds()/time.Minute.Seconds())

// ewma 指数加权移动平均
type ewma struct {
	uncounted   int64
	rate        float64 // 每秒
	initialized bool
}

func (e *ewma) update(n int64) {
	e.uncounted += n
}

func (e *ewma) tick() {
	instant := float64(e.uncounted) / tickInterval.Seconds()
	e.uncounted = 0
	if e.initialized {
		e.rate += oneMinuteAlpha * (instant - e.rate)
	} else {
		e.rate = instant
		e.initialized = true
	}
}

func (e *ewma) reset() {
	*e = ewma{}
}

// Meter 计量器
//
// 记录带权重的事件，提供：
//   - Rate: 权重的一分钟衰减速率（每秒）
//   - Count: 事件总数
//   - Load: 权重速率 / 事件总数
//
// 速率每 5 秒衰减一次，衰减在读写时按需补齐，不需要后台协程。
type Meter struct {
	mu    sync.Mutex
	clock clock.Clock

	weight ewma

	count    int64
	total    int64
	lastTick time.Time
	lastMark time.Time
}

// NewMeter 创建计量器
func NewMeter(clk clock.Clock) *Meter {
	if clk == nil {
		clk = clock.New()
	}
	return &Meter{
		clock:    clk,
		lastTick: clk.Now(),
	}
}

// Mark 记录一个权重为 n 的事件
func (m *Meter) Mark(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickIfNecessary()
	m.weight.update(n)
	m.count++
	m.total += n
	m.lastMark = m.clock.Now()
}

// Rate 返回权重的一分钟衰减速率（每秒）
func (m *Meter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickIfNecessary()
	return m.weight.rate
}

// Load 返回负载：衰减速率除以事件总数
//
// 没有事件时返回 0。
func (m *Meter) Load() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tickIfNecessary()
	if m.count == 0 {
		return 0
	}
	return m.weight.rate / float64(m.count)
}

// Count 返回事件总数
func (m *Meter) Count() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Total 返回累计权重
func (m *Meter) Total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// LastUpdate 返回最后一次 Mark 的时间
func (m *Meter) LastUpdate() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMark
}

// Reset 重置计量器
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.weight.reset()
	m.count = 0
	m.total = 0
	m.lastTick = m.clock.Now()
	m.lastMark = time.Time{}
}

// tickIfNecessary 补齐自上次衰减以来错过的周期，调用方持有锁
func (m *Meter) tickIfNecessary() {
	age := m.clock.Now().Sub(m.lastTick)
	if age < tickInterval {
		return
	}

	ticks := int64(age / tickInterval)
	m.lastTick = m.lastTick.Add(time.Duration(ticks) * tickInterval)

	if ticks > maxCatchUpTicks {
		m.weight.reset()
		return
	}
	for i := int64(0); i < ticks; i++ {
		m.weight.tick()
	}
}
