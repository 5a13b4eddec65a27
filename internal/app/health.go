package app

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/taoyao-code/lcd-gateway/internal/health"
	redisstorage "github.com/taoyao-code/lcd-gateway/internal/storage/redis"
)

// NewHealthAggregator 按已启用的依赖组装检查器
func NewHealthAggregator(rdb *redisstorage.Client, nc *nats.Conn) *health.Aggregator {
	agg := health.NewAggregator(2 * time.Second)
	if rdb != nil {
		agg.Add(health.NewRedisChecker(rdb))
	}
	if nc != nil {
		agg.Add(health.NewNATSChecker(nc))
	}
	return agg
}
