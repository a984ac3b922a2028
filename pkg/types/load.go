package types

// NodeID 集群成员标识
type NodeID string

// String 返回节点标识
func (id NodeID) String() string {
	return string(id)
}

// IsEmpty 检查是否为空
func (id NodeID) IsEmpty() bool {
	return id == ""
}

// LoadSnapshot 负载快照
//
// 由本地计算或远端节点应答得到的只读视图。
type LoadSnapshot struct {
	// Latest 最近一次写入的值
	Latest float64

	// Average 平均值（无窗口时覆盖完整保留期）
	Average float64

	// LastUpdate 最后更新时间（Unix 秒）
	LastUpdate int64

	// Recent 最近窗口内的样本，仅当 HasRecent 为 true 时有效
	Recent []float64

	// HasRecent 是否包含最近窗口
	HasRecent bool
}
