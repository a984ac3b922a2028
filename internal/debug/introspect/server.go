package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/lib/log"
	"github.com/dep2p/go-cpman/pkg/types"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// ResourceLister 列出分类下已上报样本的资源名
type ResourceLister interface {
	Resources(c types.Category) []string
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// NodeID 本节点标识
	NodeID types.NodeID

	// ListenAddr 集群监听地址，仅用于展示
	ListenAddr string

	// Peers 已知对端，仅用于展示
	Peers []string

	// Store 可选的时序存储
	Store *storage.Store

	// Monitor 可选的资源发现来源
	Monitor ResourceLister

	// Flush 可选的提交计数
	Flush metrics.FlushStatser

	// Traffic 可选的集群流量统计
	Traffic metrics.Reporter

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	// HTTP 服务器
	server   *http.Server
	listener net.Listener

	// 状态
	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	return &Server{
		config: cfg,
	}
}

// Handler 返回服务的路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// 自省端点
	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/node", s.handleNode)
	mux.HandleFunc("/debug/introspect/storage", s.handleStorage)
	mux.HandleFunc("/debug/introspect/resources", s.handleResources)
	mux.HandleFunc("/debug/introspect/traffic", s.handleTraffic)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)

	// pprof 端点
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 健康检查
	mux.HandleFunc("/health", s.handleHealth)

	// 自定义处理器
	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Uptime    string              `json:"uptime"`
	Node      *NodeInfo           `json:"node"`
	Storage   *StorageInfo        `json:"storage,omitempty"`
	Resources map[string][]string `json:"resources,omitempty"`
	Traffic   *TrafficInfo        `json:"traffic,omitempty"`
	Runtime   *RuntimeInfo        `json:"runtime"`
}

// NodeInfo 节点信息
type NodeInfo struct {
	ID         string   `json:"id"`
	ListenAddr string   `json:"listen_addr,omitempty"`
	Peers      []string `json:"peers,omitempty"`
}

// StorageInfo 存储信息
type StorageInfo struct {
	Step      string         `json:"step"`
	Retention string         `json:"retention"`
	Flushed   uint64         `json:"flushed"`
	Dropped   uint64         `json:"dropped"`
	Databases []DatabaseInfo `json:"databases"`
}

// DatabaseInfo 单个时序库
type DatabaseInfo struct {
	Name       string `json:"name"`
	Series     int    `json:"series"`
	LastUpdate int64  `json:"last_update"`
}

// TrafficInfo 流量信息
type TrafficInfo struct {
	TotalIn  int64                   `json:"total_in"`
	TotalOut int64                   `json:"total_out"`
	RateIn   float64                 `json:"rate_in"`
	RateOut  float64                 `json:"rate_out"`
	ByPeer   map[string]metrics.Stats `json:"by_peer,omitempty"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handleIntrospect 处理完整诊断请求
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
		Node:      s.collectNodeInfo(),
		Storage:   s.collectStorageInfo(),
		Resources: s.collectResources(),
		Traffic:   s.collectTrafficInfo(),
		Runtime:   s.collectRuntimeInfo(),
	})
}

// handleNode 处理节点信息请求
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.collectNodeInfo())
}

// handleStorage 处理存储信息请求
func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := s.collectStorageInfo()
	if info == nil {
		http.Error(w, "Storage info not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, info)
}

// handleResources 处理资源列表请求
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res := s.collectResources()
	if res == nil {
		http.Error(w, "Resource info not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, res)
}

// handleTraffic 处理流量统计请求
func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := s.collectTrafficInfo()
	if info == nil {
		info = &TrafficInfo{} // 返回空数据而不是错误
	}
	s.writeJSON(w, info)
}

// handleRuntime 处理运行时信息请求
func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.collectRuntimeInfo())
}

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}

	// 没有存储或已关闭时无法提交记录
	if s.config.Store == nil {
		health.Status = "degraded"
	} else if s.config.Flush != nil && s.config.Flush.Stats().Dropped > 0 {
		health.Status = "degraded"
	}

	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return ""
	}
	return time.Since(s.startTime).Truncate(time.Second).String()
}

// collectNodeInfo 收集节点信息
func (s *Server) collectNodeInfo() *NodeInfo {
	return &NodeInfo{
		ID:         s.config.NodeID.String(),
		ListenAddr: s.config.ListenAddr,
		Peers:      s.config.Peers,
	}
}

// collectStorageInfo 收集存储信息
func (s *Server) collectStorageInfo() *StorageInfo {
	st := s.config.Store
	if st == nil {
		return nil
	}

	cfg := st.Config()
	info := &StorageInfo{
		Step:      cfg.Step.String(),
		Retention: (cfg.Step * time.Duration(cfg.Rows)).String(),
		Databases: make([]DatabaseInfo, 0, st.Len()),
	}
	if s.config.Flush != nil {
		stats := s.config.Flush.Stats()
		info.Flushed = stats.Flushed
		info.Dropped = stats.Dropped
	}

	st.Range(func(k storage.Key, db *storage.Database) bool {
		names := db.SeriesNames()
		var last int64
		for _, n := range names {
			if ts := db.LastUpdate(n); ts > last {
				last = ts
			}
		}
		info.Databases = append(info.Databases, DatabaseInfo{
			Name:       k.String(),
			Series:     len(names),
			LastUpdate: last,
		})
		return true
	})
	sort.Slice(info.Databases, func(i, j int) bool {
		return info.Databases[i].Name < info.Databases[j].Name
	})
	return info
}

// collectResources 收集各分类已上报的资源名
func (s *Server) collectResources() map[string][]string {
	if s.config.Monitor == nil {
		return nil
	}

	out := make(map[string][]string)
	for _, c := range types.AllCategories() {
		if c.ScopeKind() == types.ScopeNone {
			continue
		}
		out[c.String()] = s.config.Monitor.Resources(c)
	}
	return out
}

// collectTrafficInfo 收集流量信息
func (s *Server) collectTrafficInfo() *TrafficInfo {
	if s.config.Traffic == nil {
		return nil
	}

	totals := s.config.Traffic.Totals()
	info := &TrafficInfo{
		TotalIn:  totals.TotalIn,
		TotalOut: totals.TotalOut,
		RateIn:   totals.RateIn,
		RateOut:  totals.RateOut,
	}
	if byPeer := s.config.Traffic.ByPeer(); len(byPeer) > 0 {
		info.ByPeer = make(map[string]metrics.Stats, len(byPeer))
		for p, st := range byPeer {
			info.ByPeer[p.String()] = st
		}
	}
	return info
}

// collectRuntimeInfo 收集运行时信息
func (s *Server) collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
