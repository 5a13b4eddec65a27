package tcpserver

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConnectionLimiter(t *testing.T) {
	t.Run("基本限流功能", func(t *testing.T) {
		limiter := NewConnectionLimiter(3, 50*time.Millisecond)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if err := limiter.Acquire(ctx); err != nil {
				t.Fatalf("第%d次获取失败: %v", i+1, err)
			}
		}

		// 第4次应该超时
		if err := limiter.Acquire(ctx); !errors.Is(err, ErrConnLimit) {
			t.Fatalf("第4次获取应返回 ErrConnLimit，实际: %v", err)
		}

		limiter.Release()
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("释放后获取失败: %v", err)
		}
		if limiter.Active() != 3 {
			t.Errorf("期望3个活跃连接，实际: %d", limiter.Active())
		}
		if limiter.rejected.Load() != 1 {
			t.Errorf("期望拒绝1次，实际: %d", limiter.rejected.Load())
		}
	})

	t.Run("不限连接数", func(t *testing.T) {
		limiter := NewConnectionLimiter(0, 0)
		for i := 0; i < 100; i++ {
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Fatalf("不应失败: %v", err)
			}
		}
		limiter.Release()
		if limiter.Active() != 99 || limiter.Max() != 0 {
			t.Errorf("统计错误: active=%d max=%d", limiter.Active(), limiter.Max())
		}
	})

	t.Run("ctx取消中断等待", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, time.Minute)
		_ = limiter.Acquire(context.Background())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := limiter.Acquire(ctx); err == nil {
			t.Fatal("ctx 已取消应失败")
		}
	})
}

func TestAcceptGate(t *testing.T) {
	t.Run("速率限流", func(t *testing.T) {
		gate := NewAcceptGate(10, 20)
		for i := 0; i < 20; i++ {
			if !gate.Allow() {
				t.Fatalf("突发第%d个请求被拒绝", i+1)
			}
		}
		if gate.Allow() {
			t.Fatal("第21个请求应该被拒绝")
		}
		time.Sleep(150 * time.Millisecond)
		if !gate.Allow() {
			t.Fatal("等待后的请求应该成功")
		}
		if gate.rejected.Load() != 1 {
			t.Errorf("期望拒绝1次，实际: %d", gate.rejected.Load())
		}
	})

	t.Run("不限速率", func(t *testing.T) {
		gate := NewAcceptGate(0, 0)
		for i := 0; i < 1000; i++ {
			if !gate.Allow() {
				t.Fatal("不限速率时不应拒绝")
			}
		}
	})
}
