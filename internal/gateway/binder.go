// Package gateway 把接入层（TCP 连接 / UDP 对端）绑定到解码实例、看门狗与事件投递。
package gateway

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/metrics"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
	"github.com/taoyao-code/lcd-gateway/internal/sink"
	"github.com/taoyao-code/lcd-gateway/internal/watchdog"
)

// Binder 为每个逻辑连接创建解码实例并登记
type Binder struct {
	reg        *registry.Registry
	cfg        cfgpkg.DecoderConfig
	policy     adapter.OversizePolicy
	dispatcher *sink.Dispatcher
	appm       *metrics.AppMetrics
	logger     *zap.Logger

	mu       sync.RWMutex
	bindings map[string]*Binding
}

// NewBinder dispatcher/appm 可为 nil
func NewBinder(reg *registry.Registry, cfg cfgpkg.DecoderConfig, dispatcher *sink.Dispatcher, appm *metrics.AppMetrics, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultProtocol == "" {
		cfg.DefaultProtocol = registry.DefaultProtocol
	}
	return &Binder{
		reg:        reg,
		cfg:        cfg,
		policy:     adapter.ParseOversizePolicy(cfg.OversizePolicy),
		dispatcher: dispatcher,
		appm:       appm,
		logger:     logger,
		bindings:   make(map[string]*Binding),
	}
}

// Resolve 协议选择顺序：固定协议 > 首包初判 > 默认协议
func (b *Binder) Resolve(fixed string, prefix []byte) string {
	if fixed != "" {
		return fixed
	}
	if id, ok := b.reg.Detect(prefix); ok {
		return id
	}
	return b.cfg.DefaultProtocol
}

// Bind 按 src.Protocol 创建解码实例，未知协议返回 registry.ErrUnknownProtocol
func (b *Binder) Bind(src sink.Source) (*Binding, error) {
	log := b.logger.With(
		zap.String("conn_id", src.ConnID),
		zap.String("transport", src.Transport),
		zap.String("remote", src.Remote),
		zap.String("protocol", src.Protocol))

	dec, _, err := b.reg.CreateWithOptions(src.Protocol, adapter.Options{Logger: log, Oversize: b.policy})
	if err != nil {
		return nil, err
	}

	bd := &Binding{b: b, src: src, dec: dec, log: log, since: time.Now()}
	bd.guard = watchdog.New(dec, b.cfg.StallTimeout, bd.onStall)

	if b.dispatcher != nil {
		detach, err := b.dispatcher.Attach(dec, src)
		if err != nil {
			dec.Dispose()
			return nil, err
		}
		bd.detach = detach
	}

	b.mu.Lock()
	b.bindings[src.ConnID] = bd
	b.mu.Unlock()
	if b.appm != nil {
		b.appm.ActiveDecoders.WithLabelValues(src.Transport).Inc()
	}
	log.Debug("decoder bound")
	return bd, nil
}

// Lookup 按连接ID查找
func (b *Binder) Lookup(connID string) (*Binding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bd, ok := b.bindings[connID]
	return bd, ok
}

// Snapshot 全部活动绑定（按建立时间排序）
func (b *Binder) Snapshot() []BindingInfo {
	b.mu.RLock()
	out := make([]BindingInfo, 0, len(b.bindings))
	for _, bd := range b.bindings {
		out = append(out, bd.Info())
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

// Len 活动绑定数
func (b *Binder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bindings)
}

func (b *Binder) remove(connID string) {
	b.mu.Lock()
	delete(b.bindings, connID)
	b.mu.Unlock()
}

// Binding 一条逻辑连接的解码上下文。Feed/Tick/Reset 须由同一 goroutine（读循环）调用
type Binding struct {
	b      *Binder
	src    sink.Source
	dec    adapter.Decoder
	guard  *watchdog.Guard
	detach func()
	log    *zap.Logger
	since  time.Time
	once   sync.Once
	state  atomic.Int32 // 读循环写入的状态镜像，供其他 goroutine 读取
}

// Source 事件来源
func (bd *Binding) Source() sink.Source { return bd.src }

// Decoder 解码实例
func (bd *Binding) Decoder() adapter.Decoder { return bd.dec }

// Feed 投递一块上行字节
func (bd *Binding) Feed(chunk []byte, now time.Time) error {
	bd.guard.Observe(now)
	err := bd.dec.ProcessBytes(chunk)
	bd.syncState()
	return err
}

// Tick 无数据时驱动看门狗，返回是否复位
func (bd *Binding) Tick(now time.Time) bool {
	reset := bd.guard.Check(now)
	bd.syncState()
	return reset
}

// Reset 传输层异常时丢弃未完成帧
func (bd *Binding) Reset() {
	bd.dec.Reset()
	bd.syncState()
}

func (bd *Binding) syncState() { bd.state.Store(int32(bd.dec.State())) }

func (bd *Binding) onStall(stalled time.Duration) {
	bd.log.Warn("frame stalled, decoder reset", zap.Duration("stalled", stalled))
	if bd.b.appm != nil {
		bd.b.appm.WatchdogResets.WithLabelValues(bd.src.Protocol).Inc()
	}
}

// Close 退订、投递剩余事件并释放解码实例（幂等）
func (bd *Binding) Close() {
	bd.once.Do(func() {
		if bd.detach != nil {
			bd.detach()
		}
		st := bd.dec.Stats()
		bd.dec.Dispose()
		bd.b.remove(bd.src.ConnID)
		if m := bd.b.appm; m != nil {
			m.ActiveDecoders.WithLabelValues(bd.src.Transport).Dec()
			m.NotificationsDropped.Add(float64(st.DroppedNotifications))
		}
		bd.log.Debug("decoder released",
			zap.Uint64("frames", st.Frames),
			zap.Uint64("errors", st.Errors),
			zap.Uint64("dropped_chunks", st.DroppedChunks))
	})
}

// BindingInfo 绑定快照（API 输出）
type BindingInfo struct {
	sink.Source
	State string                 `json:"state"`
	Since time.Time              `json:"since"`
	Stats coremodel.DecoderStats `json:"stats"`
}

func (bd *Binding) Info() BindingInfo {
	return BindingInfo{
		Source: bd.src,
		State:  coremodel.DecoderState(bd.state.Load()).String(),
		Since:  bd.since,
		Stats:  bd.dec.Stats(),
	}
}
