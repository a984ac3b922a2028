// Package lib 包含基础设施工具库
//
// 本目录包含与业务组件无关的通用工具库：
//
//   - log: 日志封装（slog，按子系统命名）
//   - future: 一次性完成的异步结果
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 组件公共接口（集群通信）
//   - types/: 公共类型定义（指标、分类、负载快照）
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/dep2p/go-cpman/pkg/lib/future"
//	    "github.com/dep2p/go-cpman/pkg/lib/log"
//	)
package lib
