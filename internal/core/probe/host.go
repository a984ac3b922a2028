package probe

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/types"
)

// Recorder 接收探针采集的指标
type Recorder interface {
	UpdateMetric(t types.MetricType, value float64, scope string) error
}

// Inventory 探针发现资源时登记
type Inventory interface {
	AddDevice(id string) bool
	AddDisk(name string) bool
	AddInterface(name string) bool
}

// HostConfig 主机探针配置
type HostConfig struct {
	// Interval 采集间隔
	Interval time.Duration

	// WantDisk 磁盘过滤，nil 表示全部采集
	WantDisk func(name string) bool

	// WantInterface 网卡过滤，nil 表示全部采集
	WantInterface func(name string) bool
}

// ============================================================================
//                              HostProbe
// ============================================================================

// HostProbe 主机探针
//
// 每个周期并发读取 CPU、内存、磁盘和网卡。CPU 和内存直接记录读数；
// 磁盘和网卡的累计计数取差值打到计量器上，记录计量器的速率。
type HostProbe struct {
	cfg      HostConfig
	source   HostSource
	recorder Recorder
	registry *metrics.Registry
	inv      Inventory
	clock    clock.Clock

	mu       sync.Mutex
	lastDisk map[string]DiskCounters
	lastNet  map[string]NetCounters

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHostProbe 创建主机探针
//
// registry 和 inv 可以为 nil。
func NewHostProbe(cfg HostConfig, source HostSource, recorder Recorder, registry *metrics.Registry, inv Inventory, clk clock.Clock) *HostProbe {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if source == nil {
		source = SystemSource{}
	}
	if clk == nil {
		clk = clock.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry(clk)
	}
	return &HostProbe{
		cfg:      cfg,
		source:   source,
		recorder: recorder,
		registry: registry,
		inv:      inv,
		clock:    clk,
		lastDisk: make(map[string]DiskCounters),
		lastNet:  make(map[string]NetCounters),
	}
}

// Start 启动周期采集
func (p *HostProbe) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)

	logger.Info("主机探针已启动", "interval", p.cfg.Interval)
}

// Stop 停止采集
func (p *HostProbe) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *HostProbe) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := p.clock.Ticker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Collect(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("主机采集失败", "error", err)
			}
		}
	}
}

// Collect 执行一次采集
//
// 四类采集并发执行，返回第一个错误；其余采集的结果仍然会被记录。
func (p *HostProbe) Collect(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.collectCPU(ctx) })
	g.Go(func() error { return p.collectMemory(ctx) })
	g.Go(func() error { return p.collectDisks(ctx) })
	g.Go(func() error { return p.collectNetwork(ctx) })
	return g.Wait()
}

func (p *HostProbe) collectCPU(ctx context.Context) error {
	load, err := p.source.CPUPercent(ctx)
	if err != nil {
		return err
	}
	times, err := p.source.CPUTimes(ctx)
	if err != nil {
		return err
	}

	p.record(types.CPULoad, load, types.GlobalScope)
	p.record(types.TotalCPUTime, times.Total, types.GlobalScope)
	p.record(types.SysCPUTime, times.System, types.GlobalScope)
	p.record(types.UserCPUTime, times.User, types.GlobalScope)
	p.record(types.CPUIdleTime, times.Idle, types.GlobalScope)
	return nil
}

func (p *HostProbe) collectMemory(ctx context.Context) error {
	m, err := p.source.Memory(ctx)
	if err != nil {
		return err
	}

	var freeRatio, usedRatio float64
	if m.Total > 0 {
		freeRatio = float64(m.Free) / float64(m.Total) * 100
		usedRatio = float64(m.Used) / float64(m.Total) * 100
	}

	p.record(types.MemoryFree, float64(m.Free), types.GlobalScope)
	p.record(types.MemoryUsed, float64(m.Used), types.GlobalScope)
	p.record(types.MemoryFreeRatio, freeRatio, types.GlobalScope)
	p.record(types.MemoryUsedRatio, usedRatio, types.GlobalScope)
	return nil
}

func (p *HostProbe) collectDisks(ctx context.Context) error {
	stats, err := p.source.DiskIO(ctx)
	if err != nil {
		return err
	}

	for name, cur := range stats {
		if p.cfg.WantDisk != nil && !p.cfg.WantDisk(name) {
			continue
		}
		p.ensure(types.ResourceDisk, name)

		p.mu.Lock()
		prev, seen := p.lastDisk[name]
		p.lastDisk[name] = cur
		p.mu.Unlock()

		if !seen {
			prev = cur
		}
		p.markAndRecord(types.DiskReadBytes, name, delta(cur.ReadBytes, prev.ReadBytes))
		p.markAndRecord(types.DiskWriteBytes, name, delta(cur.WriteBytes, prev.WriteBytes))
	}
	return nil
}

func (p *HostProbe) collectNetwork(ctx context.Context) error {
	stats, err := p.source.NetIO(ctx)
	if err != nil {
		return err
	}

	for name, cur := range stats {
		if p.cfg.WantInterface != nil && !p.cfg.WantInterface(name) {
			continue
		}
		p.ensure(types.ResourceInterface, name)

		p.mu.Lock()
		prev, seen := p.lastNet[name]
		p.lastNet[name] = cur
		p.mu.Unlock()

		if !seen {
			prev = cur
		}
		p.markAndRecord(types.NwIncomingBytes, name, delta(cur.BytesRecv, prev.BytesRecv))
		p.markAndRecord(types.NwOutgoingBytes, name, delta(cur.BytesSent, prev.BytesSent))
		p.markAndRecord(types.NwIncomingPackets, name, delta(cur.PacketsRecv, prev.PacketsRecv))
		p.markAndRecord(types.NwOutgoingPackets, name, delta(cur.PacketsSent, prev.PacketsSent))
	}
	return nil
}

// ensure 登记资源并确保计量器存在
func (p *HostProbe) ensure(kind types.ResourceKind, name string) {
	switch kind {
	case types.ResourceDisk:
		_ = p.registry.AddDiskResource(name)
		if p.inv != nil {
			p.inv.AddDisk(name)
		}
	case types.ResourceInterface:
		_ = p.registry.AddNetworkResource(name)
		if p.inv != nil {
			p.inv.AddInterface(name)
		}
	}
}

func (p *HostProbe) markAndRecord(t types.MetricType, scope string, n int64) {
	m, ok := p.registry.MeterFor(t, scope)
	if !ok {
		return
	}
	m.Mark(n)
	p.record(t, m.Rate(), scope)
}

func (p *HostProbe) record(t types.MetricType, v float64, scope string) {
	if err := p.recorder.UpdateMetric(t, v, scope); err != nil {
		logger.Debug("记录指标失败", "metric", t.String(), "scope", scope, "error", err)
	}
}

// delta 计数器差值，计数器回绕时为 0
func delta(cur, prev uint64) int64 {
	if cur < prev {
		return 0
	}
	return int64(cur - prev)
}
