package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPinger Redis 客户端子集
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
	PoolStats() *redis.PoolStats
}

// RedisChecker Redis 连通性与连接池利用率
type RedisChecker struct {
	client RedisPinger
}

func NewRedisChecker(client RedisPinger) *RedisChecker { return &RedisChecker{client: client} }

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err), Latency: time.Since(start)}
	}
	st := c.client.PoolStats()
	status, msg := StatusHealthy, "ok"
	utilization := 0.0
	if st.TotalConns > 0 {
		utilization = float64(st.TotalConns-st.IdleConns) / float64(st.TotalConns)
	}
	if utilization > 0.9 {
		status, msg = StatusDegraded, "connection pool near limit"
	}
	return CheckResult{
		Status:  status,
		Message: msg,
		Details: map[string]any{
			"total_conns": st.TotalConns,
			"idle_conns":  st.IdleConns,
			"timeouts":    st.Timeouts,
			"utilization": fmt.Sprintf("%.1f%%", utilization*100),
		},
		Latency: time.Since(start),
	}
}

// NATSConn *nats.Conn 子集
type NATSConn interface {
	IsConnected() bool
	ConnectedUrl() string
}

// NATSChecker 断线时降级：帧发布失败不影响解码
type NATSChecker struct {
	conn NATSConn
}

func NewNATSChecker(conn NATSConn) *NATSChecker { return &NATSChecker{conn: conn} }

func (c *NATSChecker) Name() string { return "nats" }

func (c *NATSChecker) Check(context.Context) CheckResult {
	start := time.Now()
	if !c.conn.IsConnected() {
		return CheckResult{Status: StatusDegraded, Message: "disconnected", Latency: time.Since(start)}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"url": c.conn.ConnectedUrl()},
		Latency: time.Since(start),
	}
}

// ConnStats 接入层连接统计
type ConnStats interface {
	ActiveConnections() int
	MaxConnections() int
}

// ListenerChecker 接入层容量检查（tcp/udp）
type ListenerChecker struct {
	name  string
	stats ConnStats
}

func NewListenerChecker(name string, stats ConnStats) *ListenerChecker {
	return &ListenerChecker{name: name, stats: stats}
}

func (c *ListenerChecker) Name() string { return c.name }

func (c *ListenerChecker) Check(context.Context) CheckResult {
	start := time.Now()
	active, max := c.stats.ActiveConnections(), c.stats.MaxConnections()
	details := map[string]any{"active": active, "max": max}
	if max <= 0 {
		return CheckResult{Status: StatusHealthy, Message: "no limit", Details: details, Latency: time.Since(start)}
	}
	utilization := float64(active) / float64(max)
	details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)

	status, msg := StatusHealthy, "ok"
	switch {
	case utilization > 0.95:
		status, msg = StatusUnhealthy, "connection limit near exhausted"
	case utilization > 0.8:
		status, msg = StatusDegraded, "high connection usage"
	}
	return CheckResult{Status: status, Message: msg, Details: details, Latency: time.Since(start)}
}
