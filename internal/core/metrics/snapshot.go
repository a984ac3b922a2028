package metrics

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-cpman/pkg/lib/log"
)

var logger = log.Logger("core/metrics")

// EngineSnapshot 引擎运行快照
//
// 周期性收集并输出，便于日志分析。
type EngineSnapshot struct {
	// 时间信息
	Timestamp     time.Time     `json:"timestamp"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	Interval      time.Duration `json:"interval"`

	// 存储与注册表
	Databases int `json:"databases"`
	Meters    int `json:"meters"`

	// 缓冲提交
	FlushedTotal  uint64  `json:"flushedTotal"`
	DroppedTotal  uint64  `json:"droppedTotal"`
	FlushesPerMin float64 `json:"flushesPerMin"`

	// 集群流量
	BytesSent   int64   `json:"bytesSent"`
	BytesRecv   int64   `json:"bytesRecv"`
	SendRateBps float64 `json:"sendRateBps"`
	RecvRateBps float64 `json:"recvRateBps"`

	// 资源统计
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heapAllocMB"`
}

// Sizer 返回元素数量
type Sizer interface {
	Len() int
}

// SnapshotCollector 快照收集器
type SnapshotCollector struct {
	mu    sync.RWMutex
	clock clock.Clock

	startTime time.Time

	// 数据源，均可为 nil
	store    Sizer
	registry *Registry
	flush    FlushStatser
	traffic  Reporter

	lastSnapshot     *EngineSnapshot
	lastFlushed      uint64
	lastSnapshotTime time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotCollector 创建快照收集器
func NewSnapshotCollector(clk clock.Clock, store Sizer, registry *Registry, flush FlushStatser, traffic Reporter) *SnapshotCollector {
	if clk == nil {
		clk = clock.New()
	}
	return &SnapshotCollector{
		clock:     clk,
		startTime: clk.Now(),
		store:     store,
		registry:  registry,
		flush:     flush,
		traffic:   traffic,
	}
}

// Start 启动周期性快照
func (c *SnapshotCollector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return // 已经启动
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.lastSnapshotTime = c.clock.Now()
	c.mu.Unlock()

	c.wg.Add(1)
	go c.snapshotLoop(ctx, interval)

	logger.Info("引擎快照收集器已启动", "interval", interval)
}

// Stop 停止快照收集
func (c *SnapshotCollector) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *SnapshotCollector) snapshotLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	ticker := c.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logSnapshot(c.Collect())
		}
	}
}

// Collect 收集当前快照
func (c *SnapshotCollector) Collect() *EngineSnapshot {
	now := c.clock.Now()

	c.mu.RLock()
	lastTime := c.lastSnapshotTime
	lastFlushed := c.lastFlushed
	c.mu.RUnlock()

	elapsed := now.Sub(lastTime)
	elapsedMinutes := elapsed.Minutes()
	if elapsedMinutes <= 0 {
		elapsedMinutes = 1.0 / 60.0 // 最小 1 秒
	}

	s := &EngineSnapshot{
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(c.startTime).Seconds()),
		Interval:      elapsed,
		Goroutines:    runtime.NumGoroutine(),
	}

	if c.store != nil {
		s.Databases = c.store.Len()
	}
	if c.registry != nil {
		s.Meters = c.registry.Len()
	}
	if c.flush != nil {
		st := c.flush.Stats()
		s.FlushedTotal = st.Flushed
		s.DroppedTotal = st.Dropped
		s.FlushesPerMin = float64(st.Flushed-lastFlushed) / elapsedMinutes
	}
	if c.traffic != nil {
		t := c.traffic.Totals()
		s.BytesSent = t.TotalOut
		s.BytesRecv = t.TotalIn
		s.SendRateBps = t.RateOut
		s.RecvRateBps = t.RateIn
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.HeapAllocMB = float64(mem.HeapAlloc) / 1024 / 1024

	c.mu.Lock()
	c.lastSnapshot = s
	c.lastSnapshotTime = now
	c.lastFlushed = s.FlushedTotal
	c.mu.Unlock()

	return s
}

// LastSnapshot 获取最新快照
func (c *SnapshotCollector) LastSnapshot() *EngineSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSnapshot
}

// logSnapshot 输出快照日志
func (c *SnapshotCollector) logSnapshot(s *EngineSnapshot) {
	logger.Info("引擎快照",
		"uptime", s.UptimeSeconds,
		"databases", s.Databases,
		"meters", s.Meters,
		"flushed", s.FlushedTotal,
		"dropped", s.DroppedTotal,
		"flushesPerMin", formatFloat(s.FlushesPerMin),
		"sendRate", formatRate(s.SendRateBps),
		"recvRate", formatRate(s.RecvRateBps),
		"goroutines", s.Goroutines,
		"heapAllocMB", formatFloat(s.HeapAllocMB),
	)
}

// formatRate 格式化速率
func formatRate(bps float64) string {
	switch {
	case bps < 1024:
		return formatFloat(bps) + " B/s"
	case bps < 1024*1024:
		return formatFloat(bps/1024) + " KB/s"
	default:
		return formatFloat(bps/1024/1024) + " MB/s"
	}
}

// formatFloat 保留两位小数
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
