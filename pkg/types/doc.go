// Package types 定义 cpman 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - metric.go    - MetricType, Category, ScopeKind, MetricSample
//   - load.go      - NodeID, LoadSnapshot
//   - inventory.go - ResourceKind, InventoryEvent
//
// # 分类与作用域
//
// 每个 MetricType 恰好属于一个 Category，每个 Category 的成员集合固定：
//
//	CPU             - 全局作用域，5 个成员
//	MEMORY          - 全局作用域，4 个成员
//	DISK            - 磁盘名，2 个成员
//	NETWORK         - 网卡名，4 个成员
//	CONTROL_MESSAGE - 设备 ID，6 个成员
package types
