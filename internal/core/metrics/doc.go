// Package metrics 提供计量、指标注册和导出
//
// # 组成
//
//   - Meter: 带权重事件的一分钟衰减速率、事件数和平均权重（Load）
//   - Registry: 按 (指标类型, 作用域) 管理 Meter，生命周期跟随资源清单
//   - TrafficCounter: 集群消息流量（全局/按对端/按主题）
//   - Collector / Exporter: 以 Prometheus 格式导出时序存储的最新值和引擎计数器
//   - SnapshotCollector: 周期性输出引擎运行快照日志
//
// # 快速开始
//
//	reg := metrics.NewRegistry(clock.New())
//	reg.InitGlobal()
//	_ = reg.AddDiskResource("sda")
//
//	m, _ := reg.MeterFor(types.DiskReadBytes, "sda")
//	m.Mark(4096)
//	fmt.Printf("%.2f B/s\n", m.Rate())
//
// # 速率计算
//
// Meter 每 5 秒衰减一次，衰减系数 1-exp(-5/60)，
// 即一分钟指数加权移动平均。衰减在读写时按需补齐。
package metrics
