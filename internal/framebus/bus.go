// Package framebus 将解码事件分发给多个订阅者。
// 发布永不阻塞：订阅者通道满时丢弃该事件并计数，慢消费者不会拖住收包路径。
package framebus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
)

var (
	ErrBusClosed          = errors.New("framebus: bus closed")
	ErrSubscriberExists   = errors.New("framebus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("framebus: subscriber not found")
	ErrNilChannel         = errors.New("framebus: nil channel")
)

// SubscriberStats 订阅者投递统计
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

type subscriber struct {
	id      string
	ch      chan<- coremodel.DecodedFrame
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus 事件总线。订阅者按注册顺序接收，同一订阅者内保持发布顺序
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New 创建事件总线
func New() *Bus { return &Bus{} }

// Subscribe 注册订阅通道，通道由调用方持有，总线不会关闭它
func (b *Bus) Subscribe(id string, ch chan<- coremodel.DecodedFrame) error {
	if ch == nil {
		return ErrNilChannel
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	for _, s := range b.subscribers {
		if s.id == id {
			return ErrSubscriberExists
		}
	}
	b.subscribers = append(b.subscribers, &subscriber{id: id, ch: ch})
	return nil
}

// Unsubscribe 移除订阅者
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.id == id {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return nil
		}
	}
	return ErrSubscriberNotFound
}

// Publish 非阻塞地投递给全部订阅者
func (b *Bus) Publish(ev coremodel.DecodedFrame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for _, s := range b.subscribers {
		select {
		case s.ch <- ev:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
			b.dropped.Add(1)
		}
	}
}

// Stats 返回单个订阅者统计
func (b *Bus) Stats(id string) (SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subscribers {
		if s.id == id {
			return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, nil
		}
	}
	return SubscriberStats{}, ErrSubscriberNotFound
}

// Len 当前订阅者数量
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Published 累计发布次数
func (b *Bus) Published() uint64 { return b.published.Load() }

// Dropped 累计丢弃次数（跨全部订阅者，含已退订者）
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close 关闭总线并移除全部订阅者，幂等
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = nil
}
