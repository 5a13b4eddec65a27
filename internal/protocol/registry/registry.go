// Package registry 按协议标识选择解码器实现。
//
// 注册只在进程启动阶段进行，Seal 之后注册表只读，Create/Capability/Detect 可被多个
// 连接并发调用而无需加锁；Seal 之前的查询持读锁，与 Register 互斥。每次 Create 都返回全新实例，实例之间不共享任何可变状态。
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
)

var (
	ErrUnknownProtocol     = errors.New("unknown protocol")
	ErrDuplicateProtocol   = errors.New("protocol already registered")
	ErrRegistrySealed      = errors.New("registry sealed")
	ErrInvalidRegistration = errors.New("invalid protocol registration")
)

type entry struct {
	factory adapter.Factory
	caps    coremodel.Capability
}

// Registry 协议注册表
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
	sealed  atomic.Bool
	opts    adapter.Options
}

// New 创建空注册表，opts 作为 Create 的默认构造参数
func New(opts adapter.Options) *Registry {
	return &Registry{entries: make(map[string]entry), opts: opts}
}

// Register 注册协议工厂与能力描述
func (r *Registry) Register(id string, factory adapter.Factory, caps coremodel.Capability) error {
	if id == "" || factory == nil {
		return fmt.Errorf("%w: id=%q", ErrInvalidRegistration, id)
	}
	if err := caps.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRegistration, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, id)
	}
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProtocol, id)
	}
	r.entries[id] = entry{factory: factory, caps: caps}
	r.order = append(r.order, id)
	return nil
}

// MustRegister 注册失败直接 panic（静态注册列表使用）
func (r *Registry) MustRegister(id string, factory adapter.Factory, caps coremodel.Capability) {
	if err := r.Register(id, factory, caps); err != nil {
		panic(err)
	}
}

// Seal 结束注册阶段
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

// Sealed 是否已结束注册
func (r *Registry) Sealed() bool { return r.sealed.Load() }

// rlock Seal 之前持读锁，之后无锁读取
func (r *Registry) rlock() func() {
	if r.sealed.Load() {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}

// Create 以默认参数创建全新解码实例
func (r *Registry) Create(id string) (adapter.Decoder, coremodel.Capability, error) {
	return r.CreateWithOptions(id, r.opts)
}

// CreateWithOptions 以指定参数创建全新解码实例（如携带连接维度字段的 logger）
func (r *Registry) CreateWithOptions(id string, opts adapter.Options) (adapter.Decoder, coremodel.Capability, error) {
	unlock := r.rlock()
	e, ok := r.entries[id]
	unlock()
	if !ok {
		return nil, coremodel.Capability{}, fmt.Errorf("%w: %q", ErrUnknownProtocol, id)
	}
	return e.factory(e.caps, opts), e.caps, nil
}

// Capability 查询协议能力描述
func (r *Registry) Capability(id string) (coremodel.Capability, bool) {
	defer r.rlock()()
	e, ok := r.entries[id]
	return e.caps, ok
}

// Protocols 按注册顺序返回全部协议标识
func (r *Registry) Protocols() []string {
	defer r.rlock()()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Detect 按注册顺序用首包前缀初判协议
func (r *Registry) Detect(prefix []byte) (string, bool) {
	defer r.rlock()()
	for _, id := range r.order {
		e := r.entries[id]
		dec := e.factory(e.caps, adapter.Options{})
		matched := dec.Sniff(prefix)
		dec.Dispose()
		if matched {
			return id, true
		}
	}
	return "", false
}
