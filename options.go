package cpman

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
)

// Option 节点配置选项
type Option func(*options) error

// options 节点创建参数
//
// config 在 New 中最终校验，校验之前选项可以任意顺序覆盖彼此。
type options struct {
	// config 统一配置
	config *config.Config

	// communicator 外部提供的集群通信，设置后不再创建 TCP 通信服务
	communicator ClusterCommunicator

	// hostSource 主机计数器来源，nil 表示使用 gopsutil
	hostSource HostSource

	// clock 时间源，nil 表示系统时钟
	clock clock.Clock

	// logFile 日志文件路径
	logFile string

	// userFxOptions 用户追加的 Fx 选项
	userFxOptions []fx.Option
}

// newOptions 创建默认参数
func newOptions() *options {
	return &options{
		config: config.NewConfig(),
	}
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置
//
// 配置会被克隆，之后修改 cfg 不影响节点。通常作为第一个选项，
// 后续选项在其基础上覆盖。
//
// 示例:
//
//	cfg := config.NewConfig()
//	cfg.Node.ID = "node-1"
//	node, _ := cpman.New(ctx, cpman.WithConfig(cfg))
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		o.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithNodeID 设置本节点标识
func WithNodeID(id string) Option {
	return func(o *options) error {
		if id == "" {
			return errors.New("node id cannot be empty")
		}
		o.config.Node.ID = id
		return nil
	}
}

// ============================================================================
//                              集群选项
// ============================================================================

// WithListenAddr 设置集群监听地址（host:port）
//
// 为空表示不接受远程请求。
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		o.config.Cluster.ListenAddr = addr
		return nil
	}
}

// WithPeer 添加一个集群对端
//
// 重复添加同一 id 时覆盖地址。
//
// 示例:
//
//	cpman.New(ctx, cpman.WithPeer("node-2", "10.0.0.2:7946"))
func WithPeer(id, addr string) Option {
	return func(o *options) error {
		if id == "" || addr == "" {
			return fmt.Errorf("invalid peer %q at %q", id, addr)
		}
		for i := range o.config.Cluster.Peers {
			if o.config.Cluster.Peers[i].ID == id {
				o.config.Cluster.Peers[i].Addr = addr
				return nil
			}
		}
		o.config.Cluster.Peers = append(o.config.Cluster.Peers, config.Peer{ID: id, Addr: addr})
		return nil
	}
}

// WithRequestTimeout 设置远程请求超时，0 表示一直等待应答
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("request timeout cannot be negative")
		}
		o.config.Cluster.RequestTimeout = config.Duration(d)
		return nil
	}
}

// WithCommunicator 使用外部集群通信
//
// 设置后节点不创建 TCP 通信服务，本节点标识取 c.LocalNode()。
// 进程内多实例部署和测试使用 messaging.Hub 的成员。
func WithCommunicator(c ClusterCommunicator) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("communicator cannot be nil")
		}
		o.communicator = c
		return nil
	}
}

// ============================================================================
//                              探针与导出选项
// ============================================================================

// WithHostSource 设置主机计数器来源
func WithHostSource(src HostSource) Option {
	return func(o *options) error {
		if src == nil {
			return errors.New("host source cannot be nil")
		}
		o.hostSource = src
		return nil
	}
}

// WithHostProbe 启用或禁用主机探针
func WithHostProbe(enable bool) Option {
	return func(o *options) error {
		o.config.Probe.EnableHost = enable
		return nil
	}
}

// WithControlMessageProbe 启用或禁用控制消息统计的周期提交
func WithControlMessageProbe(enable bool) Option {
	return func(o *options) error {
		o.config.Probe.EnableControlMessage = enable
		return nil
	}
}

// WithExporter 在 addr 上启用 Prometheus 导出
func WithExporter(addr string) Option {
	return func(o *options) error {
		if addr == "" {
			return errors.New("exporter addr cannot be empty")
		}
		o.config.Exporter.Enable = true
		o.config.Exporter.ListenAddr = addr
		return nil
	}
}

// WithIntrospect 在 addr 上启用本地自省服务
//
// addr 为空时使用默认的 127.0.0.1:6060。
func WithIntrospect(addr string) Option {
	return func(o *options) error {
		o.config.Introspect.Enable = true
		if addr != "" {
			o.config.Introspect.Addr = addr
		}
		return nil
	}
}

// ============================================================================
//                              运行时选项
// ============================================================================

// WithClock 设置时间源
//
// 测试中传入 clock.NewMock() 控制采样时间和探针周期。
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return errors.New("clock cannot be nil")
		}
		o.clock = clk
		return nil
	}
}

// WithLogFile 设置日志输出文件
//
// 文件会以追加模式打开（os.O_APPEND），多次运行会累积日志。
//
// 示例:
//
//	cpman.New(ctx, cpman.WithLogFile("cpman.log"))
func WithLogFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New("日志文件路径不能为空")
		}
		o.logFile = path
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
//
// 用于替换或扩展内部组件，例如 fx.Decorate 包装 Monitor 的存储。
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
