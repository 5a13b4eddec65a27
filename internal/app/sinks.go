package app

import (
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
	"github.com/taoyao-code/lcd-gateway/internal/metrics"
	"github.com/taoyao-code/lcd-gateway/internal/sink"
	redisstorage "github.com/taoyao-code/lcd-gateway/internal/storage/redis"
)

// 外部下游的熔断参数
const (
	sinkBreakerThreshold = 5
	sinkBreakerCooldown  = 30 * time.Second
)

// Sinks 组装结果
type Sinks struct {
	Dispatcher *sink.Dispatcher
	Store      *sink.RedisStore    // 未启用 Redis 时为 nil
	Guarded    []*sink.GuardedSink // 外部下游（统计用）
}

// NewSinks 指标消费者总是启用；Redis/NATS 按客户端是否存在挂载，并加熔断
func NewSinks(cfg *cfgpkg.Config, appm *metrics.AppMetrics, rdb *redisstorage.Client, nc *nats.Conn, logger *zap.Logger) Sinks {
	var out Sinks
	list := []sink.Sink{sink.NewMetricsSink(appm)}

	if rdb != nil {
		out.Store = sink.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Redis.FrameTTL, cfg.Redis.HistoryLen)
		g := sink.NewGuardedSink(out.Store, sinkBreakerThreshold, sinkBreakerCooldown, logger)
		out.Guarded = append(out.Guarded, g)
		list = append(list, g)
	}
	if nc != nil {
		g := sink.NewGuardedSink(sink.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix), sinkBreakerThreshold, sinkBreakerCooldown, logger)
		out.Guarded = append(out.Guarded, g)
		list = append(list, g)
	}

	out.Dispatcher = sink.NewDispatcher(logger, cfg.Decoder.NotifyBuffer, list...)
	out.Dispatcher.SetSinkErrorCallback(func(name string) {
		appm.SinkErrors.WithLabelValues(name).Inc()
	})
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name())
	}
	logger.Info("frame sinks configured", zap.Strings("sinks", names))
	return out
}

// BreakerStats 各外部下游熔断状态
func (s Sinks) BreakerStats() map[string]sink.BreakerStats {
	out := make(map[string]sink.BreakerStats, len(s.Guarded))
	for _, g := range s.Guarded {
		out[g.Name()] = g.Stats()
	}
	return out
}
