// Package storage 提供内存环形时序存储
//
// 每个 (分类, 作用域) 对应一个 Database，Database 内每个指标一个序列。
// 所有数据只在内存中，进程重启后历史丢失。
//
// # 架构
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                      使用方模块                              │
//	│        Monitor (写入) | LoadView (读取) | Exporter          │
//	└─────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│                     storage (本包)                          │
//	│  ┌─────────────────────────────────────────────────────┐   │
//	│  │                    Store                            │   │
//	│  │        (分类, 作用域) -> Database 目录               │   │
//	│  └─────────────────────────────────────────────────────┘   │
//	│                              │                              │
//	│  ┌─────────────────────────────────────────────────────┐   │
//	│  │                   Database                          │   │
//	│  │        固定步长环形缓冲，同一步长保留最后写入          │   │
//	│  └─────────────────────────────────────────────────────┘   │
//	└─────────────────────────────────────────────────────────────┘
//
// # 时间模型
//
// 时间为 Unix 秒。默认步长 60 秒、1440 行，即保留 24 小时。
// 查询区间必须在 [1 分钟, 1 天] 内，首尾两个不完整的桶会被裁掉。
// 从未写入或已被覆盖的样本读出为 NaN。
//
// # 使用示例
//
//	st := storage.NewStore(storage.DefaultConfig(), clock.New())
//	db, _ := st.GetOrCreate(types.CategoryCPU, types.GlobalScope)
//	_ = db.UpdateMetrics(map[string]float64{"CPU_LOAD": 40}, 0)
//	samples, err := db.RecentMetrics("CPU_LOAD", time.Hour)
package storage
