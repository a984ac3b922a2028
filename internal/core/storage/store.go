package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-cpman/pkg/types"
)

// Key 时序库索引
type Key struct {
	Category types.Category
	Scope    string
}

// String 返回库名，如 "CPU" 或 "DISK/sda"
func (k Key) String() string {
	if k.Scope == types.GlobalScope {
		return k.Category.String()
	}
	return k.Category.String() + "/" + k.Scope
}

// Store 按 (分类, 作用域) 管理时序库
//
// 并发安全。同一个 Key 只会创建一个 Database。
type Store struct {
	cfg   Config
	clock clock.Clock

	mu     sync.RWMutex
	dbs    map[Key]*Database
	closed bool
}

// NewStore 创建存储
func NewStore(cfg Config, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		cfg:   cfg,
		clock: clk,
		dbs:   make(map[Key]*Database),
	}
}

// Clock 返回存储使用的时间源
func (s *Store) Clock() clock.Clock {
	return s.clock
}

// Config 返回存储配置
func (s *Store) Config() Config {
	return s.cfg
}

// GetOrCreate 获取或创建 (分类, 作用域) 的时序库
//
// 序列名为分类下所有指标的名字。
func (s *Store) GetOrCreate(c types.Category, scope string) (*Database, error) {
	if err := c.ValidateScope(scope); err != nil {
		return nil, err
	}
	key := Key{Category: c, Scope: scope}

	s.mu.RLock()
	db, ok := s.dbs[key]
	closed := s.closed
	s.mu.RUnlock()
	if ok {
		return db, nil
	}
	if closed {
		return nil, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if db, ok := s.dbs[key]; ok {
		return db, nil
	}

	opts := append(s.cfg.Options(), WithClock(s.clock))
	db, err := New(key.String(), c.SeriesNames(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}
	s.dbs[key] = db
	logger.Debug("创建时序库", "key", key.String())
	return db, nil
}

// Get 获取已存在的时序库
func (s *Store) Get(c types.Category, scope string) (*Database, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, ok := s.dbs[Key{Category: c, Scope: scope}]
	return db, ok
}

// Remove 删除并关闭时序库
//
// 返回是否存在。
func (s *Store) Remove(c types.Category, scope string) bool {
	key := Key{Category: c, Scope: scope}

	s.mu.Lock()
	db, ok := s.dbs[key]
	delete(s.dbs, key)
	s.mu.Unlock()

	if !ok {
		return false
	}
	_ = db.Close()
	logger.Debug("删除时序库", "key", key.String())
	return true
}

// Keys 返回某分类下所有作用域（已排序）
func (s *Store) Keys(c types.Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0)
	for k := range s.dbs {
		if k.Category == c {
			scopes = append(scopes, k.Scope)
		}
	}
	sort.Strings(scopes)
	return scopes
}

// Range 遍历所有时序库，fn 返回 false 时停止
//
// 遍历的是快照，fn 中可以安全地调用 Store 的其他方法。
func (s *Store) Range(fn func(Key, *Database) bool) {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.dbs))
	dbs := make([]*Database, 0, len(s.dbs))
	for k, db := range s.dbs {
		keys = append(keys, k)
		dbs = append(dbs, db)
	}
	s.mu.RUnlock()

	for i := range keys {
		if !fn(keys[i], dbs[i]) {
			return
		}
	}
}

// Len 返回时序库数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dbs)
}

// Close 关闭所有时序库
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dbs := s.dbs
	s.dbs = make(map[Key]*Database)
	s.mu.Unlock()

	var err error
	for _, db := range dbs {
		err = multierr.Append(err, db.Close())
	}
	return err
}
