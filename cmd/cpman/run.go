package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-cpman"
	"github.com/dep2p/go-cpman/config"
)

// ============================================================================
//                              run
// ============================================================================

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a cpman node",
		Long: `Start a node with the host probe, the control-message listener and the
cluster query service.

Configuration precedence (high to low):
  1. Command line flags
  2. Environment variables (CPMAN_NODE_ID, CPMAN_LISTEN_ADDR, CPMAN_PRESET)
  3. Configuration file (--config)
  4. Defaults

Examples:
  # Single node with defaults
  cpman run

  # Cluster member with a Prometheus endpoint
  cpman run --config cpman.json --preset cluster --exporter :9464`,
		Args: cobra.NoArgs,
		RunE: runNode,
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file (JSON)")
	cmd.Flags().String("preset", "", "Preset: standalone, cluster or test")
	cmd.Flags().String("id", "", "Node id (default: hostname)")
	cmd.Flags().String("listen", "", "Cluster listen address (host:port)")
	cmd.Flags().StringSlice("peer", nil, "Cluster peer as id=host:port (repeatable)")
	cmd.Flags().String("exporter", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("introspect", "", "Serve debug JSON and pprof on this address")
	cmd.Flags().String("log-file", "", "Append logs to this file")

	return cmd
}

func runNode(cmd *cobra.Command, _ []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cliLogger.Info("启动 cpman 节点", "version", cpman.Version, "commit", cpman.GitCommit, "buildDate", cpman.BuildDate)

	node, err := cpman.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	cfg := node.Config()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", cpman.VersionInfo())
	fmt.Fprintf(out, "node:     %s\n", node.LocalNode())
	if cfg.Cluster.ListenAddr != "" {
		fmt.Fprintf(out, "listen:   %s\n", cfg.Cluster.ListenAddr)
	}
	fmt.Fprintf(out, "peers:    %d\n", len(cfg.Cluster.Peers))
	if cfg.Exporter.Enable {
		fmt.Fprintf(out, "exporter: http://%s%s\n", cfg.Exporter.ListenAddr, cfg.Exporter.Path)
	}
	if cfg.Introspect.Enable {
		fmt.Fprintf(out, "debug:    http://%s/debug/introspect\n", cfg.Introspect.Addr)
	}
	fmt.Fprintln(out, "节点已启动，按 Ctrl+C 退出")

	waitForSignal()

	fmt.Fprintln(out, "\n正在关闭节点...")
	return node.Stop(context.Background())
}

// buildOptions 构建选项
func buildOptions(cmd *cobra.Command) ([]cpman.Option, error) {
	var opts []cpman.Option

	// 1. 配置文件
	cfg := config.NewConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}
	opts = append(opts, cpman.WithConfig(cfg))

	// 2. 环境变量
	preset := os.Getenv("CPMAN_PRESET")
	if v := os.Getenv("CPMAN_NODE_ID"); v != "" {
		opts = append(opts, cpman.WithNodeID(v))
	}
	if v := os.Getenv("CPMAN_LISTEN_ADDR"); v != "" {
		opts = append(opts, cpman.WithListenAddr(v))
	}

	// 3. 命令行参数
	if v, _ := cmd.Flags().GetString("preset"); v != "" {
		preset = v
	}
	if preset != "" {
		// 预设最先应用，之后的选项可以覆盖
		opts = append([]cpman.Option{opts[0], cpman.WithPreset(preset)}, opts[1:]...)
	}
	if v, _ := cmd.Flags().GetString("id"); v != "" {
		opts = append(opts, cpman.WithNodeID(v))
	}
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		opts = append(opts, cpman.WithListenAddr(v))
	}
	peers, _ := cmd.Flags().GetStringSlice("peer")
	for _, p := range peers {
		id, addr, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid peer %q, want id=host:port", p)
		}
		opts = append(opts, cpman.WithPeer(strings.TrimSpace(id), strings.TrimSpace(addr)))
	}
	if v, _ := cmd.Flags().GetString("exporter"); v != "" {
		opts = append(opts, cpman.WithExporter(v))
	}
	if v, _ := cmd.Flags().GetString("introspect"); v != "" {
		opts = append(opts, cpman.WithIntrospect(v))
	}
	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		opts = append(opts, cpman.WithLogFile(v))
	}

	return opts, nil
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}
