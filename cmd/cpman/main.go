// Package main 提供 cpman 命令行入口
//
//	cpman run --config cpman.json          # 启动节点
//	cpman query load --node node-2 --addr 10.0.0.2:7946 --metric CPU_LOAD
//	cpman query resources --node node-2 --addr 10.0.0.2:7946 --category NETWORK
//	cpman config init > cpman.json         # 输出默认配置
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
