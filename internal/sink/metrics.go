package sink

import (
	"context"

	"github.com/taoyao-code/lcd-gateway/internal/metrics"
)

// MetricsSink 帧/错误计数
type MetricsSink struct {
	m *metrics.AppMetrics
}

func NewMetricsSink(m *metrics.AppMetrics) *MetricsSink { return &MetricsSink{m: m} }

func (s *MetricsSink) Name() string { return "metrics" }

func (s *MetricsSink) HandleFrame(_ context.Context, env Envelope) error {
	if env.IsError() {
		s.m.DecodeErrors.WithLabelValues(env.Protocol, env.ErrorKind).Inc()
		return nil
	}
	s.m.FramesDecoded.WithLabelValues(env.Protocol, env.Format).Inc()
	s.m.FrameBytes.WithLabelValues(env.Protocol).Observe(float64(env.Size))
	return nil
}
