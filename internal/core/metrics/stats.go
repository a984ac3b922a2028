package metrics

// Stats 流量统计快照
//
// TotalIn 和 TotalOut 记录累计接收/发送字节数。
// RateIn 和 RateOut 记录一分钟衰减的每秒字节数。
type Stats struct {
	TotalIn  int64   // 总入站字节
	TotalOut int64   // 总出站字节
	RateIn   float64 // 入站速率（字节/秒）
	RateOut  float64 // 出站速率（字节/秒）
}

// FlushStats 缓冲提交统计
type FlushStats struct {
	Flushed uint64 // 成功写入存储的记录数
	Dropped uint64 // 因存储不可用丢弃的记录数
}

// FlushStatser 提供缓冲提交统计
type FlushStatser interface {
	Stats() FlushStats
}
