// Package cpman 是分布式网络操作系统集群的控制面遥测引擎
//
// 每个节点通过本地探针采集 CPU、内存、磁盘、网卡以及按设备统计的
// 控制消息计数，把独立到达的指标凑成完整记录写入有界时序存储
// （60 秒步长，保留一天），并回答本地或集群内任意成员的负载查询。
//
// # 核心概念
//
//   - MetricType / Category: 指标类型及其固定分类，一条记录包含分类的全部指标
//   - Scope: 作用域，CPU/内存为空，磁盘/网卡为资源名，控制消息为设备标识
//   - Monitor: 按作用域缓冲指标，凑齐后整条提交
//   - Router: 负载查询，本地同步计算或经集群通信转发到远端节点
//
// # 快速开始
//
//	import "github.com/dep2p/go-cpman"
//
//	node, err := cpman.Start(ctx,
//	    cpman.WithNodeID("node-1"),
//	    cpman.WithListenAddr(":7946"),
//	    cpman.WithPeer("node-2", "10.0.0.2:7946"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 本地负载
//	snap, err := node.Load(ctx, "", types.CPULoad, "", nil)
//
//	// 远端最近 10 分钟的网卡入流量
//	window := 10 * time.Minute
//	snap, err = node.Load(ctx, "node-2", types.NwIncomingBytes, "eth0", &window)
//
// # 配置
//
// 配置由 config 包定义，可以从 JSON 文件加载（WithConfigFile），
// 也可以通过选项逐项覆盖。日志级别由环境变量 CPMAN_LOG_LEVEL 控制，
// 格式为 "子系统=级别,默认级别"，例如 "messaging=debug,info"。
package cpman
