package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSinkOpen 熔断期间直接跳过投递
var ErrSinkOpen = errors.New("sink circuit open")

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常投递
	BreakerOpen                         // 熔断，跳过投递
	BreakerHalfOpen                     // 冷却结束，放行一次试探
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// GuardedSink 为下游（NATS/Redis）加熔断：连续失败 threshold 次后冷却 cooldown，
// 期间事件直接丢弃，不占用投递 goroutine 的超时预算
type GuardedSink struct {
	inner     Sink
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trips    int64
	skipped  int64
	probing  bool
}

// NewGuardedSink threshold<=0 取 5，cooldown<=0 取 30s
func NewGuardedSink(inner Sink, threshold int, cooldown time.Duration, logger *zap.Logger) *GuardedSink {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardedSink{inner: inner, threshold: threshold, cooldown: cooldown, logger: logger, now: time.Now}
}

func (g *GuardedSink) Name() string { return g.inner.Name() }

func (g *GuardedSink) HandleFrame(ctx context.Context, env Envelope) error {
	if !g.allow() {
		return ErrSinkOpen
	}
	err := g.inner.HandleFrame(ctx, env)
	g.record(err)
	return err
}

func (g *GuardedSink) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case BreakerOpen:
		if g.now().Sub(g.openedAt) < g.cooldown {
			g.skipped++
			return false
		}
		g.transition(BreakerHalfOpen)
		g.probing = true
		return true
	case BreakerHalfOpen:
		// 同一时刻只放行一个试探
		if g.probing {
			g.skipped++
			return false
		}
		g.probing = true
		return true
	default:
		return true
	}
}

func (g *GuardedSink) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probing = false
	if err == nil {
		g.failures = 0
		if g.state != BreakerClosed {
			g.transition(BreakerClosed)
		}
		return
	}
	g.failures++
	if g.state == BreakerHalfOpen || g.failures >= g.threshold {
		g.openedAt = g.now()
		g.trips++
		g.transition(BreakerOpen)
	}
}

func (g *GuardedSink) transition(to BreakerState) {
	if g.state == to {
		return
	}
	g.logger.Info("sink breaker state changed",
		zap.String("sink", g.inner.Name()),
		zap.Stringer("from", g.state),
		zap.Stringer("to", to))
	g.state = to
}

// State 当前状态
func (g *GuardedSink) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// BreakerStats 熔断统计
type BreakerStats struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
	Trips    int64  `json:"trips"`
	Skipped  int64  `json:"skipped"`
}

func (g *GuardedSink) Stats() BreakerStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return BreakerStats{State: g.state.String(), Failures: g.failures, Trips: g.trips, Skipped: g.skipped}
}
