package types

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
//                              MetricType - 指标类型
// ============================================================================

// MetricType 控制面指标类型
//
// 每个指标类型恰好属于一个 Category，同一 Category 的成员集合固定。
// 零值 MetricUnknown 为无效类型。
type MetricType uint8

const (
	// MetricUnknown 未知指标类型
	MetricUnknown MetricType = iota

	// CPULoad CPU 负载百分比
	CPULoad
	// TotalCPUTime CPU 总时间
	TotalCPUTime
	// SysCPUTime 内核态 CPU 时间
	SysCPUTime
	// UserCPUTime 用户态 CPU 时间
	UserCPUTime
	// CPUIdleTime CPU 空闲时间
	CPUIdleTime

	// MemoryFree 空闲内存
	MemoryFree
	// MemoryUsed 已用内存
	MemoryUsed
	// MemoryFreeRatio 空闲内存比例
	MemoryFreeRatio
	// MemoryUsedRatio 已用内存比例
	MemoryUsedRatio

	// DiskReadBytes 磁盘读取字节数
	DiskReadBytes
	// DiskWriteBytes 磁盘写入字节数
	DiskWriteBytes

	// NwIncomingBytes 网卡入站字节数
	NwIncomingBytes
	// NwOutgoingBytes 网卡出站字节数
	NwOutgoingBytes
	// NwIncomingPackets 网卡入站包数
	NwIncomingPackets
	// NwOutgoingPackets 网卡出站包数
	NwOutgoingPackets

	// InboundPacket 入站控制消息（PACKET_IN）
	InboundPacket
	// OutboundPacket 出站控制消息（PACKET_OUT）
	OutboundPacket
	// FlowModPacket 流表下发消息
	FlowModPacket
	// FlowRemovedPacket 流表删除通知
	FlowRemovedPacket
	// RequestPacket 统计请求消息
	RequestPacket
	// ReplyPacket 统计应答消息
	ReplyPacket

	metricTypeEnd
)

// ErrInvalidMetricType 无效的指标类型
var ErrInvalidMetricType = errors.New("invalid metric type")

var metricNames = [metricTypeEnd]string{
	MetricUnknown:     "UNKNOWN",
	CPULoad:           "CPU_LOAD",
	TotalCPUTime:      "TOTAL_CPU_TIME",
	SysCPUTime:        "SYS_CPU_TIME",
	UserCPUTime:       "USER_CPU_TIME",
	CPUIdleTime:       "CPU_IDLE_TIME",
	MemoryFree:        "MEMORY_FREE",
	MemoryUsed:        "MEMORY_USED",
	MemoryFreeRatio:   "MEMORY_FREE_RATIO",
	MemoryUsedRatio:   "MEMORY_USED_RATIO",
	DiskReadBytes:     "DISK_READ_BYTES",
	DiskWriteBytes:    "DISK_WRITE_BYTES",
	NwIncomingBytes:   "NW_INCOMING_BYTES",
	NwOutgoingBytes:   "NW_OUTGOING_BYTES",
	NwIncomingPackets: "NW_INCOMING_PACKETS",
	NwOutgoingPackets: "NW_OUTGOING_PACKETS",
	InboundPacket:     "INBOUND_PACKET",
	OutboundPacket:    "OUTBOUND_PACKET",
	FlowModPacket:     "FLOW_MOD_PACKET",
	FlowRemovedPacket: "FLOW_REMOVED_PACKET",
	RequestPacket:     "REQUEST_PACKET",
	ReplyPacket:       "REPLY_PACKET",
}

// String 返回指标类型的规范名称，同时用作时序库中的序列名
func (t MetricType) String() string {
	if t >= metricTypeEnd {
		return metricNames[MetricUnknown]
	}
	return metricNames[t]
}

// IsValid 检查指标类型是否有效
func (t MetricType) IsValid() bool {
	return t > MetricUnknown && t < metricTypeEnd
}

// Category 返回指标所属的分类
//
// 无效类型返回 CategoryUnknown。
func (t MetricType) Category() Category {
	switch t {
	case CPULoad, TotalCPUTime, SysCPUTime, UserCPUTime, CPUIdleTime:
		return CategoryCPU
	case MemoryFree, MemoryUsed, MemoryFreeRatio, MemoryUsedRatio:
		return CategoryMemory
	case DiskReadBytes, DiskWriteBytes:
		return CategoryDisk
	case NwIncomingBytes, NwOutgoingBytes, NwIncomingPackets, NwOutgoingPackets:
		return CategoryNetwork
	case InboundPacket, OutboundPacket, FlowModPacket, FlowRemovedPacket, RequestPacket, ReplyPacket:
		return CategoryControlMessage
	default:
		return CategoryUnknown
	}
}

// ParseMetricType 从规范名称解析指标类型（大小写不敏感）
func ParseMetricType(s string) (MetricType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t := CPULoad; t < metricTypeEnd; t++ {
		if metricNames[t] == name {
			return t, nil
		}
	}
	return MetricUnknown, fmt.Errorf("%w: %q", ErrInvalidMetricType, s)
}

// AllMetricTypes 返回全部有效指标类型
func AllMetricTypes() []MetricType {
	out := make([]MetricType, 0, metricTypeEnd-1)
	for t := CPULoad; t < metricTypeEnd; t++ {
		out = append(out, t)
	}
	return out
}

// ============================================================================
//                              Category - 指标分类
// ============================================================================

// Category 指标分类，每个分类共享一种作用域类型
type Category uint8

const (
	// CategoryUnknown 未知分类
	CategoryUnknown Category = iota
	// CategoryCPU CPU 指标（全局）
	CategoryCPU
	// CategoryMemory 内存指标（全局）
	CategoryMemory
	// CategoryDisk 磁盘指标（按磁盘名）
	CategoryDisk
	// CategoryNetwork 网卡指标（按接口名）
	CategoryNetwork
	// CategoryControlMessage 控制消息指标（按设备 ID）
	CategoryControlMessage
)

// ErrInvalidCategory 无效的指标分类
var ErrInvalidCategory = errors.New("invalid metric category")

var categoryMembers = map[Category][]MetricType{
	CategoryCPU:            {CPULoad, TotalCPUTime, SysCPUTime, UserCPUTime, CPUIdleTime},
	CategoryMemory:         {MemoryFree, MemoryUsed, MemoryFreeRatio, MemoryUsedRatio},
	CategoryDisk:           {DiskReadBytes, DiskWriteBytes},
	CategoryNetwork:        {NwIncomingBytes, NwOutgoingBytes, NwIncomingPackets, NwOutgoingPackets},
	CategoryControlMessage: {InboundPacket, OutboundPacket, FlowModPacket, FlowRemovedPacket, RequestPacket, ReplyPacket},
}

// String 返回分类名称
func (c Category) String() string {
	switch c {
	case CategoryCPU:
		return "CPU"
	case CategoryMemory:
		return "MEMORY"
	case CategoryDisk:
		return "DISK"
	case CategoryNetwork:
		return "NETWORK"
	case CategoryControlMessage:
		return "CONTROL_MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// IsValid 检查分类是否有效
func (c Category) IsValid() bool {
	return c >= CategoryCPU && c <= CategoryControlMessage
}

// Members 返回分类的固定成员列表（副本）
func (c Category) Members() []MetricType {
	members := categoryMembers[c]
	out := make([]MetricType, len(members))
	copy(out, members)
	return out
}

// SeriesNames 返回分类成员对应的序列名
func (c Category) SeriesNames() []string {
	members := categoryMembers[c]
	names := make([]string, len(members))
	for i, t := range members {
		names[i] = t.String()
	}
	return names
}

// ScopeKind 返回分类的作用域类型
func (c Category) ScopeKind() ScopeKind {
	switch c {
	case CategoryCPU, CategoryMemory:
		return ScopeNone
	case CategoryDisk, CategoryNetwork:
		return ScopeResource
	case CategoryControlMessage:
		return ScopeDevice
	default:
		return ScopeInvalid
	}
}

// ValidateScope 检查作用域是否符合分类的作用域类型
func (c Category) ValidateScope(scope string) error {
	switch c.ScopeKind() {
	case ScopeNone:
		if scope != GlobalScope {
			return fmt.Errorf("%w: %s takes no scope, got %q", ErrInvalidScope, c, scope)
		}
	case ScopeResource, ScopeDevice:
		if scope == GlobalScope {
			return fmt.Errorf("%w: %s requires a %s scope", ErrInvalidScope, c, c.ScopeKind())
		}
	default:
		return fmt.Errorf("%w: %d", ErrInvalidCategory, c)
	}
	return nil
}

// ParseCategory 从名称解析分类（大小写不敏感）
func ParseCategory(s string) (Category, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for c := CategoryCPU; c <= CategoryControlMessage; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// AllCategories 返回全部有效分类
func AllCategories() []Category {
	return []Category{CategoryCPU, CategoryMemory, CategoryDisk, CategoryNetwork, CategoryControlMessage}
}

// ============================================================================
//                              Scope - 作用域
// ============================================================================

// GlobalScope 全局作用域（CPU/MEMORY）
const GlobalScope = ""

// ErrInvalidScope 作用域与分类不匹配
var ErrInvalidScope = errors.New("invalid metric scope")

// ScopeKind 作用域类型
type ScopeKind int

const (
	// ScopeInvalid 无效
	ScopeInvalid ScopeKind = iota
	// ScopeNone 无作用域
	ScopeNone
	// ScopeResource 资源名（磁盘/网卡）
	ScopeResource
	// ScopeDevice 设备 ID
	ScopeDevice
)

// String 返回作用域类型名称
func (k ScopeKind) String() string {
	switch k {
	case ScopeNone:
		return "none"
	case ScopeResource:
		return "resource"
	case ScopeDevice:
		return "device"
	default:
		return "invalid"
	}
}

// ============================================================================
//                              MetricSample - 指标样本
// ============================================================================

// MetricSample 单个指标样本
type MetricSample struct {
	// Type 指标类型
	Type MetricType

	// Value 指标值
	Value float64
}
