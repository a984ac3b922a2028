package probe

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// CPUTimes 累计 CPU 时间（秒）
type CPUTimes struct {
	User   float64
	System float64
	Idle   float64
	Total  float64
}

// MemoryStat 内存用量（字节）
type MemoryStat struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// DiskCounters 磁盘累计读写字节
type DiskCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

// NetCounters 网卡累计收发量
type NetCounters struct {
	BytesRecv   uint64
	BytesSent   uint64
	PacketsRecv uint64
	PacketsSent uint64
}

// HostSource 主机计数器来源
type HostSource interface {
	CPUPercent(ctx context.Context) (float64, error)
	CPUTimes(ctx context.Context) (CPUTimes, error)
	Memory(ctx context.Context) (MemoryStat, error)
	DiskIO(ctx context.Context) (map[string]DiskCounters, error)
	NetIO(ctx context.Context) (map[string]NetCounters, error)
}

// ============================================================================
//                              gopsutil 实现
// ============================================================================

// SystemSource 通过 gopsutil 读取本机计数器
type SystemSource struct{}

var _ HostSource = SystemSource{}

// CPUPercent 返回自上次调用以来的 CPU 使用率
func (SystemSource) CPUPercent(ctx context.Context) (float64, error) {
	p, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	return p[0], nil
}

// CPUTimes 返回全部 CPU 的累计时间
func (SystemSource) CPUTimes(ctx context.Context) (CPUTimes, error) {
	ts, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return CPUTimes{}, err
	}
	if len(ts) == 0 {
		return CPUTimes{}, nil
	}
	t := ts[0]
	return CPUTimes{
		User:   t.User,
		System: t.System,
		Idle:   t.Idle,
		Total: t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
			t.Softirq + t.Steal + t.Guest + t.GuestNice,
	}, nil
}

// Memory 返回虚拟内存用量
func (SystemSource) Memory(ctx context.Context) (MemoryStat, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStat{}, err
	}
	return MemoryStat{Total: v.Total, Used: v.Used, Free: v.Available}, nil
}

// DiskIO 返回各磁盘的累计读写
func (SystemSource) DiskIO(ctx context.Context) (map[string]DiskCounters, error) {
	stats, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]DiskCounters, len(stats))
	for name, s := range stats {
		out[name] = DiskCounters{ReadBytes: s.ReadBytes, WriteBytes: s.WriteBytes}
	}
	return out, nil
}

// NetIO 返回各网卡的累计收发
func (SystemSource) NetIO(ctx context.Context) (map[string]NetCounters, error) {
	stats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]NetCounters, len(stats))
	for _, s := range stats {
		out[s.Name] = NetCounters{
			BytesRecv:   s.BytesRecv,
			BytesSent:   s.BytesSent,
			PacketsRecv: s.PacketsRecv,
			PacketsSent: s.PacketsSent,
		}
	}
	return out, nil
}
