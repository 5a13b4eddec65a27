// Package frame 实现与厂商无关的帧重组状态机。
//
// 状态只有 Idle（无帧头）与 Accumulating（有帧头、载荷未满）。任意时刻收到可解析的帧头
// 都会开始新帧并丢弃未完成的旧帧；载荷达到声明长度即提取前 declaredLength 字节发布，
// 随后回到 Idle。来自网络的错误一律以事件发布，只有调用方误用才作为返回值。
package frame

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/framebus"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
)

// DefaultMaxFrameSize 能力描述未给出帧上限时的缓冲容量
const DefaultMaxFrameSize = 4 << 20

var _ adapter.Decoder = (*Reassembler)(nil)

// Reassembler 单连接帧重组器
type Reassembler struct {
	protocol string
	parser   HeaderParser
	policy   adapter.OversizePolicy
	logger   *zap.Logger
	bus      *framebus.Bus

	hdr      coremodel.HeaderInfo
	hasHdr   bool
	arena    *Arena
	overflow int // 因缓冲区已满被丢弃的字节
	disposed bool

	frames        atomic.Uint64
	errs          atomic.Uint64
	droppedChunks atomic.Uint64
	discarded     atomic.Uint64
	truncated     atomic.Uint64
	resets        atomic.Uint64
}

// New 创建重组器，缓冲容量取 caps.MaxFrameSize
func New(protocol string, parser HeaderParser, caps coremodel.Capability, opts adapter.Options) *Reassembler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := caps.MaxFrameSize
	if limit <= 0 {
		limit = DefaultMaxFrameSize
	}
	return &Reassembler{
		protocol: protocol,
		parser:   parser,
		policy:   opts.Oversize,
		logger:   logger.With(zap.String("protocol", protocol)),
		bus:      framebus.New(),
		arena:    NewArena(limit),
	}
}

// Sniff 首包初判，不改变状态
func (r *Reassembler) Sniff(prefix []byte) bool { return r.parser.Match(prefix) }

// ProcessBytes 处理一个字节块。仅在实例已释放时返回 ErrDisposed
func (r *Reassembler) ProcessBytes(p []byte) error {
	if r.disposed {
		return ErrDisposed
	}
	if len(p) == 0 {
		return nil
	}
	if r.parser.Match(p) {
		r.acceptHeader(p)
		return nil
	}
	if !r.hasHdr {
		r.droppedChunks.Add(1)
		r.logger.Debug("chunk dropped without header",
			zap.Int("len", len(p)),
			zap.Error(ErrUnexpectedContinuation))
		return nil
	}
	r.append(p)
	return nil
}

func (r *Reassembler) acceptHeader(p []byte) {
	hdr, off, err := r.parser.Parse(p)
	if err == nil && hdr.DeclaredLength <= 0 {
		err = fmt.Errorf("%w: zero declared length", ErrInvalidHeader)
	}
	if err == nil && hdr.DeclaredLength > r.arena.Cap() {
		err = fmt.Errorf("%w: declared=%d max=%d", ErrFrameTooLarge, hdr.DeclaredLength, r.arena.Cap())
	}
	if err != nil {
		if r.hasHdr {
			r.discarded.Add(1)
		}
		r.hasHdr = false
		r.fail(err, map[string]any{
			"protocol":     r.protocol,
			"chunk_length": len(p),
		})
		return
	}

	if r.hasHdr {
		r.discarded.Add(1)
		r.logger.Debug("unfinished frame replaced by new header",
			zap.Int("buffered", r.arena.Len()),
			zap.Int("declared", r.hdr.DeclaredLength))
	}
	r.hdr, r.hasHdr = hdr, true
	r.arena.Reset()
	r.overflow = 0
	r.append(p[off:])
}

func (r *Reassembler) append(p []byte) {
	_, dropped := r.arena.Append(p)
	r.overflow += dropped
	if r.arena.Len() < r.hdr.DeclaredLength {
		return
	}
	r.complete()
}

// complete 提取前 declaredLength 字节并发布，随后回到 Idle
func (r *Reassembler) complete() {
	hdr := r.hdr
	declared := hdr.DeclaredLength
	received := r.arena.Len() + r.overflow
	meta := map[string]any{
		"protocol":        r.protocol,
		"command":         hdr.Command,
		"compression":     hdr.Compression,
		"declared_length": declared,
		"actual_length":   received,
	}

	if extra := received - declared; extra > 0 {
		if r.policy == adapter.OversizeReject {
			r.clear()
			r.fail(fmt.Errorf("%w: declared=%d received=%d", ErrOversizeFrame, declared, received), meta)
			return
		}
		r.truncated.Add(uint64(extra))
		r.logger.Warn("frame over-delivered, truncated to declared length",
			zap.Int("declared", declared),
			zap.Int("received", received))
	}

	data := make([]byte, declared)
	copy(data, r.arena.Bytes()[:declared])
	r.clear()
	r.frames.Add(1)
	r.bus.Publish(coremodel.NewFrame(data, hdr, meta))
}

func (r *Reassembler) fail(err error, meta map[string]any) {
	r.errs.Add(1)
	r.logger.Warn("frame decode error", zap.Error(err))
	r.bus.Publish(coremodel.NewErrorFrame(err, meta))
}

func (r *Reassembler) clear() {
	r.hdr, r.hasHdr = coremodel.HeaderInfo{}, false
	r.arena.Reset()
	r.overflow = 0
}

// Reset 强制回到 Idle，丢弃帧头与缓冲，不发布任何事件
func (r *Reassembler) Reset() {
	r.clear()
	r.resets.Add(1)
}

// Dispose 释放实例，幂等。之后的 ProcessBytes 返回 ErrDisposed
func (r *Reassembler) Dispose() {
	if r.disposed {
		return
	}
	r.Reset()
	r.disposed = true
	r.bus.Close()
}

// Disposed 是否已释放
func (r *Reassembler) Disposed() bool { return r.disposed }

// State 当前状态
func (r *Reassembler) State() coremodel.DecoderState {
	if r.hasHdr {
		return coremodel.StateAccumulating
	}
	return coremodel.StateIdle
}

// Header 当前帧头（Idle 时 ok=false）
func (r *Reassembler) Header() (coremodel.HeaderInfo, bool) { return r.hdr, r.hasHdr }

// Buffered 当前已累积字节数
func (r *Reassembler) Buffered() int { return r.arena.Len() }

// Subscribe 订阅解码事件；通道满时事件被丢弃
func (r *Reassembler) Subscribe(id string, ch chan<- coremodel.DecodedFrame) error {
	if r.disposed {
		return ErrDisposed
	}
	return r.bus.Subscribe(id, ch)
}

// Unsubscribe 退订
func (r *Reassembler) Unsubscribe(id string) error { return r.bus.Unsubscribe(id) }

// Stats 累计统计快照
func (r *Reassembler) Stats() coremodel.DecoderStats {
	return coremodel.DecoderStats{
		Frames:               r.frames.Load(),
		Errors:               r.errs.Load(),
		DroppedChunks:        r.droppedChunks.Load(),
		DiscardedPartials:    r.discarded.Load(),
		TruncatedBytes:       r.truncated.Load(),
		Resets:               r.resets.Load(),
		DroppedNotifications: r.bus.Dropped(),
	}
}
