// Package sink 将解码事件投递给下游消费者（NATS、Redis、指标）。
package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
)

// Sink 帧事件消费者
type Sink interface {
	Name() string
	HandleFrame(ctx context.Context, env Envelope) error
}

// Subscriber 可订阅的事件源（解码器）
type Subscriber interface {
	Subscribe(id string, ch chan<- coremodel.DecodedFrame) error
	Unsubscribe(id string) error
}

// Dispatcher 每个连接一个有界通道 + 一个投递 goroutine，收包路径只做非阻塞入队
type Dispatcher struct {
	sinks       []Sink
	buffer      int
	timeout     time.Duration
	logger      *zap.Logger
	onSinkError func(sink string)
}

// NewDispatcher 创建投递器；buffer 为每个连接的事件通道容量
func NewDispatcher(logger *zap.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 8
	}
	return &Dispatcher{sinks: sinks, buffer: buffer, timeout: 3 * time.Second, logger: logger}
}

// SetSinkErrorCallback 设置投递失败回调（用于指标）
func (d *Dispatcher) SetSinkErrorCallback(fn func(sink string)) { d.onSinkError = fn }

// Sinks 已配置的消费者
func (d *Dispatcher) Sinks() []Sink { return d.sinks }

// Attach 订阅解码器并启动投递 goroutine。返回的 detach 幂等，会先退订再投递完已入队事件
func (d *Dispatcher) Attach(sub Subscriber, src Source) (func(), error) {
	ch := make(chan coremodel.DecodedFrame, d.buffer)
	if err := sub.Subscribe(src.ConnID, ch); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case ev := <-ch:
				d.deliver(src, ev)
			case <-done:
				for {
					select {
					case ev := <-ch:
						d.deliver(src, ev)
					default:
						return
					}
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Unsubscribe(src.ConnID)
			close(done)
			<-finished
		})
	}, nil
}

func (d *Dispatcher) deliver(src Source, ev coremodel.DecodedFrame) {
	env := NewEnvelope(src, ev, time.Now())
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := s.HandleFrame(ctx, env)
		cancel()
		if errors.Is(err, ErrSinkOpen) {
			// 熔断期间的跳过由 GuardedSink 自行计数
			d.logger.Debug("frame sink skipped",
				zap.String("sink", s.Name()),
				zap.String("conn_id", src.ConnID))
			continue
		}
		if err != nil {
			d.logger.Warn("frame sink failed",
				zap.String("sink", s.Name()),
				zap.String("conn_id", src.ConnID),
				zap.String("protocol", src.Protocol),
				zap.Error(err))
			if d.onSinkError != nil {
				d.onSinkError(s.Name())
			}
		}
	}
}
