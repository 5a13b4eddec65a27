package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator 并发执行全部检查器，单项检查受 timeout 限制
type Aggregator struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

func NewAggregator(timeout time.Duration, checkers ...Checker) *Aggregator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Aggregator{checkers: checkers, timeout: timeout}
}

// Add 追加检查器（组件就绪后再挂上）
func (a *Aggregator) Add(c Checker) {
	if c == nil {
		return
	}
	a.mu.Lock()
	a.checkers = append(a.checkers, c)
	a.mu.Unlock()
}

// Report 执行全部检查并计算总体状态：任一 unhealthy 即 unhealthy，任一 degraded 即 degraded
func (a *Aggregator) Report(ctx context.Context) Report {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			r := c.Check(cctx)
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, r := range results {
		if r.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		}
		if r.Status == StatusDegraded {
			overall = StatusDegraded
		}
	}
	return Report{Status: overall, Timestamp: time.Now(), Checks: results}
}

// Ready degraded 仍视为就绪
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.Report(ctx).Status != StatusUnhealthy
}
