package metrics

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-cpman/internal/core/storage"
)

// ============================================================================
// Collector - Prometheus 采集器
// ============================================================================

const namespace = "cpman"

// SeriesSource 可遍历的时序库集合
type SeriesSource interface {
	Range(fn func(storage.Key, *storage.Database) bool)
}

// Collector 将时序存储和引擎计数器暴露为 Prometheus 指标
//
// 每次抓取时现场读取，不缓存。
type Collector struct {
	source   SeriesSource
	flush    FlushStatser
	traffic  Reporter
	registry *Registry

	latestDesc  *prometheus.Desc
	updateDesc  *prometheus.Desc
	flushDesc   *prometheus.Desc
	droppedDesc *prometheus.Desc
	bytesDesc   *prometheus.Desc
	metersDesc  *prometheus.Desc
}

// NewCollector 创建采集器
//
// 除 source 外的参数都可以为 nil，对应的指标不输出。
func NewCollector(source SeriesSource, flush FlushStatser, traffic Reporter, registry *Registry) *Collector {
	return &Collector{
		source:   source,
		flush:    flush,
		traffic:  traffic,
		registry: registry,

		latestDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "series", "latest"),
			"Latest committed value of a time series.",
			[]string{"category", "scope", "metric"}, nil),
		updateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "series", "last_update_seconds"),
			"Unix time of the last write to a time series.",
			[]string{"category", "scope", "metric"}, nil),
		flushDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "flush", "total"),
			"Records committed to the time-series store.",
			nil, nil),
		droppedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "flush", "dropped_total"),
			"Records dropped because the time-series store was unavailable.",
			nil, nil),
		bytesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cluster", "bytes_total"),
			"Bytes exchanged with cluster peers.",
			[]string{"direction"}, nil),
		metersDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "meters"),
			"Number of registered meters.",
			nil, nil),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.latestDesc
	ch <- c.updateDesc
	ch <- c.flushDesc
	ch <- c.droppedDesc
	ch <- c.bytesDesc
	ch <- c.metersDesc
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source != nil {
		c.source.Range(func(k storage.Key, db *storage.Database) bool {
			category := k.Category.String()
			for _, name := range db.SeriesNames() {
				v := db.RecentMetric(name)
				if math.IsNaN(v) {
					continue
				}
				ch <- prometheus.MustNewConstMetric(c.latestDesc, prometheus.GaugeValue, v, category, k.Scope, name)
				ch <- prometheus.MustNewConstMetric(c.updateDesc, prometheus.GaugeValue,
					float64(db.LastUpdate(name)), category, k.Scope, name)
			}
			return true
		})
	}

	if c.flush != nil {
		st := c.flush.Stats()
		ch <- prometheus.MustNewConstMetric(c.flushDesc, prometheus.CounterValue, float64(st.Flushed))
		ch <- prometheus.MustNewConstMetric(c.droppedDesc, prometheus.CounterValue, float64(st.Dropped))
	}

	if c.traffic != nil {
		t := c.traffic.Totals()
		ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue, float64(t.TotalIn), "in")
		ch <- prometheus.MustNewConstMetric(c.bytesDesc, prometheus.CounterValue, float64(t.TotalOut), "out")
	}

	if c.registry != nil {
		ch <- prometheus.MustNewConstMetric(c.metersDesc, prometheus.GaugeValue, float64(c.registry.Len()))
	}
}

// ============================================================================
// Exporter - HTTP 导出
// ============================================================================

// Exporter 通过 HTTP 暴露 Prometheus 指标
type Exporter struct {
	addr string
	path string
	reg  *prometheus.Registry

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewExporter 创建导出器
func NewExporter(addr, path string, collectors ...prometheus.Collector) (*Exporter, error) {
	reg := prometheus.NewRegistry()
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &Exporter{addr: addr, path: path, reg: reg}, nil
}

// Gatherer 返回底层注册表
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.reg
}

// Handler 返回指标 HTTP 处理器
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}

// Start 开始监听
func (e *Exporter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(e.path, e.Handler())
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	e.listener = ln

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标导出服务异常退出", "error", err)
		}
	}(e.server)

	logger.Info("指标导出已启动", "addr", ln.Addr().String(), "path", e.path)
	return nil
}

// Addr 返回实际监听地址，未启动时为空
func (e *Exporter) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Stop 停止监听
func (e *Exporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	srv := e.server
	e.server = nil
	e.listener = nil
	e.mu.Unlock()

	if srv == nil {
		return nil
	}
	logger.Info("正在关闭指标导出")
	return srv.Shutdown(ctx)
}
