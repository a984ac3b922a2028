package messaging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/lib/future"
	"github.com/dep2p/go-cpman/pkg/types"
)

// ============================================================================
//                              配置
// ============================================================================

// Config TCP 通信配置
type Config struct {
	// LocalID 本节点标识
	LocalID types.NodeID

	// ListenAddr 监听地址，为空则不接受远程请求
	ListenAddr string

	// Peers 对端地址
	Peers map[types.NodeID]string

	// DialTimeout 建立连接超时
	DialTimeout time.Duration

	// RequestTimeout 等待应答超时，0 表示由调用方 ctx 决定
	RequestTimeout time.Duration

	// MaxMessageSize 单个负载上限（字节）
	MaxMessageSize int

	// MaxInflight 同时处理的入站请求数
	MaxInflight int64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		LocalID:        "local",
		Peers:          map[types.NodeID]string{},
		DialTimeout:    5 * time.Second,
		MaxMessageSize: int(DefaultMaxMessageLength),
		MaxInflight:    64,
	}
}

// ============================================================================
//                              Communicator
// ============================================================================

// pendingRequest 等待应答的请求
type pendingRequest struct {
	future *future.Future[[]byte]
	cancel context.CancelFunc
}

// Communicator 基于 TCP 的集群通信
//
// 每个请求使用一条短连接：写请求帧，读应答帧，关闭。
// 发往本节点的请求直接在进程内分发。
type Communicator struct {
	cfg      Config
	codec    codec
	reporter metrics.Reporter
	dialer   net.Dialer
	inflight *semaphore.Weighted

	mu       sync.RWMutex
	handlers map[string]interfaces.Handler
	pending  map[string]*pendingRequest
	listener net.Listener
	started  bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ interfaces.ClusterCommunicator = (*Communicator)(nil)

// NewCommunicator 创建 TCP 通信服务
func NewCommunicator(cfg Config, reporter metrics.Reporter) (*Communicator, error) {
	if cfg.LocalID == "" {
		return nil, errors.New("messaging: local id cannot be empty")
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = int(DefaultMaxMessageLength)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 64
	}
	peers := make(map[types.NodeID]string, len(cfg.Peers))
	for id, addr := range cfg.Peers {
		peers[id] = addr
	}
	cfg.Peers = peers

	ctx, cancel := context.WithCancel(context.Background())
	return &Communicator{
		cfg:      cfg,
		codec:    codec{maxLen: uint32(cfg.MaxMessageSize)},
		reporter: reporter,
		dialer:   net.Dialer{Timeout: cfg.DialTimeout},
		inflight: semaphore.NewWeighted(cfg.MaxInflight),
		handlers: make(map[string]interfaces.Handler),
		pending:  make(map[string]*pendingRequest),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// LocalNode 返回本节点标识
func (c *Communicator) LocalNode() types.NodeID {
	return c.cfg.LocalID
}

// Addr 返回实际监听地址，未监听时为空
func (c *Communicator) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

// SetPeer 添加或更新对端地址
func (c *Communicator) SetPeer(id types.NodeID, addr string) {
	c.mu.Lock()
	c.cfg.Peers[id] = addr
	c.mu.Unlock()
}

// Pending 返回等待应答的请求数
func (c *Communicator) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// Start 开始监听
func (c *Communicator) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrServiceClosed
	}
	if c.started {
		return nil
	}
	c.started = true

	if c.cfg.ListenAddr == "" {
		log.Info("集群通信仅服务本地请求", "node", c.cfg.LocalID)
		return nil
	}

	ln, err := net.Listen("tcp", c.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("messaging: listen %s: %w", c.cfg.ListenAddr, err)
	}
	c.listener = ln

	c.wg.Add(1)
	go c.acceptLoop(ln)

	log.Info("集群通信已启动", "node", c.cfg.LocalID, "addr", ln.Addr().String())
	return nil
}

// Stop 停止服务
//
// 关闭监听，等待中的请求以 ErrServiceClosed 失败。
func (c *Communicator) Stop(_ context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ln := c.listener
	c.listener = nil
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	var err error
	if ln != nil {
		if e := ln.Close(); e != nil && !errors.Is(e, net.ErrClosed) {
			err = multierr.Append(err, e)
		}
	}

	for _, p := range pending {
		p.future.Fail(ErrServiceClosed)
		p.cancel()
	}
	c.cancel()
	c.wg.Wait()

	log.Info("集群通信已停止", "node", c.cfg.LocalID, "failedPending", len(pending))
	return err
}

// AddSubscriber 注册主题处理器
func (c *Communicator) AddSubscriber(subject string, h interfaces.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrServiceClosed
	}
	if _, ok := c.handlers[subject]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExists, subject)
	}
	c.handlers[subject] = h
	log.Debug("注册主题处理器", "subject", subject)
	return nil
}

// RemoveSubscriber 移除主题处理器
func (c *Communicator) RemoveSubscriber(subject string) {
	c.mu.Lock()
	delete(c.handlers, subject)
	c.mu.Unlock()
}

// SendAndReceive 发送请求并返回应答 Future
func (c *Communicator) SendAndReceive(ctx context.Context, subject string, payload []byte, to types.NodeID) *future.Future[[]byte] {
	if len(payload) > c.cfg.MaxMessageSize {
		return future.Failed[[]byte](fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), c.cfg.MaxMessageSize))
	}

	c.mu.RLock()
	closed := c.closed
	addr, known := c.cfg.Peers[to]
	c.mu.RUnlock()

	if closed {
		return future.Failed[[]byte](ErrServiceClosed)
	}
	if to == c.cfg.LocalID {
		return c.dispatchLocal(ctx, subject, payload)
	}
	if !known {
		return future.Failed[[]byte](fmt.Errorf("%w: %s", ErrUnknownPeer, to))
	}

	req := &request{
		ID:      uuid.NewString(),
		Subject: subject,
		From:    c.cfg.LocalID,
		Payload: payload,
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if c.cfg.RequestTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	f := future.New[[]byte]()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return future.Failed[[]byte](ErrServiceClosed)
	}
	c.pending[req.ID] = &pendingRequest{future: f, cancel: cancel}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer c.finish(req.ID)

		resp, err := c.roundTrip(reqCtx, to, addr, req)
		if err != nil {
			if ctxErr := reqCtx.Err(); ctxErr != nil {
				err = ctxErr
			}
			f.Fail(err)
			log.Debug("请求失败", "peer", to, "subject", subject, "id", req.ID, "err", err)
			return
		}
		if err := resp.err(); err != nil {
			f.Fail(err)
			return
		}
		f.Complete(resp.Payload)
	}()

	return f
}

// finish 移除等待记录
func (c *Communicator) finish(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		p.cancel()
	}
}

// roundTrip 发送请求帧并读取应答帧
func (c *Communicator) roundTrip(ctx context.Context, to types.NodeID, addr string, req *request) (*response, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoConnection, addr, err)
	}
	defer conn.Close()

	// ctx 结束时关闭连接，解除阻塞的读写
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	w := bufio.NewWriter(conn)
	if err := c.codec.writeRequest(w, req); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	if c.reporter != nil {
		c.reporter.LogSentMessage(int64(len(req.Payload)), req.Subject, to)
	}

	resp, err := c.codec.readResponse(bufio.NewReader(conn))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if c.reporter != nil {
		c.reporter.LogRecvMessage(int64(len(resp.Payload)), req.Subject, to)
	}
	return resp, nil
}

// dispatchLocal 本地请求直接调用处理器
func (c *Communicator) dispatchLocal(ctx context.Context, subject string, payload []byte) *future.Future[[]byte] {
	h, ok := c.handler(subject)
	if !ok {
		return future.Failed[[]byte](fmt.Errorf("%w: %s", ErrNoHandler, subject))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return future.Failed[[]byte](ErrServiceClosed)
	}
	c.wg.Add(1)
	c.mu.Unlock()

	f := future.New[[]byte]()
	go func() {
		defer c.wg.Done()
		resp, err := h(ctx, c.cfg.LocalID, payload)
		if err != nil {
			f.Fail(fmt.Errorf("%w: %v", ErrRemote, err))
			return
		}
		f.Complete(resp)
	}()
	return f
}

func (c *Communicator) handler(subject string) (interfaces.Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[subject]
	return h, ok
}

// ============================================================================
//                              服务端
// ============================================================================

// acceptLoop 接受入站连接
func (c *Communicator) acceptLoop(ln net.Listener) {
	defer c.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || c.ctx.Err() != nil {
				return
			}
			log.Warn("接受连接失败", "err", err)
			continue
		}

		if err := c.inflight.Acquire(c.ctx, 1); err != nil {
			_ = conn.Close()
			return
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer c.inflight.Release(1)
			c.serveConn(conn)
		}()
	}
}

// serveConn 处理单个入站请求
func (c *Communicator) serveConn(conn net.Conn) {
	defer conn.Close()

	ctx := c.ctx
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req, err := c.codec.readRequest(bufio.NewReader(conn))
	if err != nil {
		log.Debug("读取请求失败", "remote", conn.RemoteAddr(), "err", err)
		return
	}
	if c.reporter != nil {
		c.reporter.LogRecvMessage(int64(len(req.Payload)), req.Subject, req.From)
	}

	resp := &response{Status: StatusOK}
	h, ok := c.handler(req.Subject)
	switch {
	case !ok:
		resp.Status = StatusNoHandler
		resp.Error = req.Subject
	default:
		data, err := h(ctx, req.From, req.Payload)
		switch {
		case err != nil:
			resp.Status = StatusError
			resp.Error = err.Error()
		case len(data) > c.cfg.MaxMessageSize:
			resp.Status = StatusError
			resp.Error = fmt.Sprintf("%v: %d", ErrMessageTooLarge, len(data))
		default:
			resp.Payload = data
		}
	}

	w := bufio.NewWriter(conn)
	if err := c.codec.writeResponse(w, resp); err != nil {
		log.Debug("写入应答失败", "from", req.From, "id", req.ID, "err", err)
		return
	}
	if err := w.Flush(); err != nil {
		log.Debug("写入应答失败", "from", req.From, "id", req.ID, "err", err)
		return
	}
	if c.reporter != nil {
		c.reporter.LogSentMessage(int64(len(resp.Payload)), req.Subject, req.From)
	}
}
