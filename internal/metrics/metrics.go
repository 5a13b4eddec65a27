package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 网关业务指标
type AppMetrics struct {
	TCPAccepted          prometheus.Counter
	TCPRejected          *prometheus.CounterVec // labels: reason=limit|rate
	TCPBytesReceived     prometheus.Counter
	UDPPacketsReceived   prometheus.Counter
	UDPBytesReceived     prometheus.Counter
	FramesDecoded        *prometheus.CounterVec // labels: protocol, format
	FrameBytes           *prometheus.HistogramVec
	DecodeErrors         *prometheus.CounterVec // labels: protocol, kind
	ActiveDecoders       *prometheus.GaugeVec   // labels: transport
	WatchdogResets       *prometheus.CounterVec // labels: protocol
	NotificationsDropped prometheus.Counter
	SinkErrors           *prometheus.CounterVec // labels: sink
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tcp_reject_total",
			Help: "TCP connections rejected by limiters.",
		}, []string{"reason"}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_bytes_received_total",
			Help: "Total bytes received over TCP.",
		}),
		UDPPacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "udp_packets_received_total",
			Help: "Total datagrams received.",
		}),
		UDPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "udp_bytes_received_total",
			Help: "Total bytes received over UDP.",
		}),
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lcd_frames_decoded_total",
			Help: "Frames reassembled by protocol and payload format.",
		}, []string{"protocol", "format"}),
		FrameBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lcd_frame_bytes",
			Help:    "Reassembled frame payload size.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"protocol"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lcd_decode_errors_total",
			Help: "Decode error events by protocol and kind.",
		}, []string{"protocol", "kind"}),
		ActiveDecoders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lcd_active_decoders",
			Help: "Decoder instances currently bound to a connection or peer.",
		}, []string{"transport"}),
		WatchdogResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lcd_watchdog_resets_total",
			Help: "Stalled frames reset by the watchdog.",
		}, []string{"protocol"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lcd_notifications_dropped_total",
			Help: "Decoded frame events dropped because a subscriber was full.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lcd_sink_errors_total",
			Help: "Frame sink delivery failures.",
		}, []string{"sink"}),
	}
	reg.MustRegister(
		m.TCPAccepted, m.TCPRejected, m.TCPBytesReceived,
		m.UDPPacketsReceived, m.UDPBytesReceived,
		m.FramesDecoded, m.FrameBytes, m.DecodeErrors,
		m.ActiveDecoders, m.WatchdogResets, m.NotificationsDropped, m.SinkErrors,
	)
	return m
}
