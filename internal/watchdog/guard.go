// Package watchdog 在帧累积长时间无进展时复位解码器。
//
// 核心解码器不带超时；Guard 由持有连接的读循环驱动（Observe/Check 与 ProcessBytes
// 在同一个 goroutine 中调用），因此无需额外加锁。
package watchdog

import (
	"time"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
)

// Target 被看护的解码器
type Target interface {
	State() coremodel.DecoderState
	Reset()
}

// Guard 单连接停滞看门狗
type Guard struct {
	target  Target
	stall   time.Duration
	last    time.Time
	onReset func(stalled time.Duration)
}

// New 创建看门狗；stall<=0 表示关闭
func New(target Target, stall time.Duration, onReset func(stalled time.Duration)) *Guard {
	return &Guard{target: target, stall: stall, last: time.Now(), onReset: onReset}
}

// Observe 记录一次数据进展
func (g *Guard) Observe(now time.Time) { g.last = now }

// Check 累积态下超过停滞窗口则复位，返回是否发生复位
func (g *Guard) Check(now time.Time) bool {
	if g.stall <= 0 || g.target.State() != coremodel.StateAccumulating {
		return false
	}
	stalled := now.Sub(g.last)
	if stalled < g.stall {
		return false
	}
	g.target.Reset()
	g.last = now
	if g.onReset != nil {
		g.onReset(stalled)
	}
	return true
}
