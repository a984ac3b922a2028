// Package interfaces 定义 cpman 与外部协作方之间的公共接口
//
//   - cluster.go - ClusterCommunicator 集群请求/应答通信
//
// 核心逻辑只依赖这里的接口，具体实现位于 internal/core 下：
// 进程内 Hub 用于测试和单进程演示，TCP Communicator 用于真实部署。
package interfaces
