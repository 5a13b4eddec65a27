package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrConnLimit 并发连接数已满
var ErrConnLimit = errors.New("connection limit exceeded")

// ConnectionLimiter 并发连接限制（信号量）；max<=0 表示不限
type ConnectionLimiter struct {
	sem      chan struct{}
	timeout  time.Duration
	max      int
	active   atomic.Int64
	rejected atomic.Int64
}

// NewConnectionLimiter timeout 为等待许可的最长时间
func NewConnectionLimiter(max int, timeout time.Duration) *ConnectionLimiter {
	if timeout <= 0 {
		timeout = time.Second
	}
	l := &ConnectionLimiter{timeout: timeout, max: max}
	if max > 0 {
		l.sem = make(chan struct{}, max)
	}
	return l
}

// Acquire 获取许可，超时或 ctx 结束返回 ErrConnLimit
func (l *ConnectionLimiter) Acquire(ctx context.Context) error {
	if l.sem == nil {
		l.active.Add(1)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		l.rejected.Add(1)
		return fmt.Errorf("%w: max=%d", ErrConnLimit, l.max)
	}
}

// Release 归还许可
func (l *ConnectionLimiter) Release() {
	if l.sem == nil {
		l.active.Add(-1)
		return
	}
	select {
	case <-l.sem:
		l.active.Add(-1)
	default:
	}
}

func (l *ConnectionLimiter) Active() int { return int(l.active.Load()) }
func (l *ConnectionLimiter) Max() int    { return l.max }

// AcceptGate 接入速率（令牌桶）；ratePerSec<=0 表示不限
type AcceptGate struct {
	limiter  *rate.Limiter
	rejected atomic.Int64
}

func NewAcceptGate(ratePerSec, burst int) *AcceptGate {
	if ratePerSec <= 0 {
		return &AcceptGate{}
	}
	if burst <= 0 {
		burst = ratePerSec * 2
	}
	return &AcceptGate{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Allow 非阻塞判定
func (g *AcceptGate) Allow() bool {
	if g.limiter == nil || g.limiter.Allow() {
		return true
	}
	g.rejected.Add(1)
	return false
}

// Stats 接入统计
type Stats struct {
	MaxConnections    int     `json:"max_connections"`
	ActiveConnections int     `json:"active_connections"`
	AcceptedTotal     int64   `json:"accepted_total"`
	RejectedByLimit   int64   `json:"rejected_by_limit"`
	RejectedByRate    int64   `json:"rejected_by_rate"`
	Utilization       float64 `json:"utilization"`
}
