// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，提供 JSON 格式的诊断信息，用于调试和监控。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect           - 完整诊断报告 (JSON)
//	GET /debug/introspect/node      - 节点信息
//	GET /debug/introspect/storage   - 时序库列表与提交计数
//	GET /debug/introspect/resources - 各分类已上报的资源名
//	GET /debug/introspect/traffic   - 集群消息流量
//	GET /debug/introspect/runtime   - Go 运行时信息
//	GET /debug/pprof/*              - Go pprof 端点
//	GET /health                     - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:    "127.0.0.1:6060",
//	    NodeID:  "node-1",
//	    Store:   store,
//	    Monitor: monitor,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// # 安全
//
// 默认只监听本地地址。如果需要远程访问，请确保配置适当的访问控制。
// 通过 config.Introspect.Enable 配置启用。
package introspect
