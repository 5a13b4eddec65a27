package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
	"github.com/taoyao-code/lcd-gateway/internal/gateway"
	"github.com/taoyao-code/lcd-gateway/internal/metrics"
	"github.com/taoyao-code/lcd-gateway/internal/tcpserver"
	"github.com/taoyao-code/lcd-gateway/internal/udpserver"
)

// NewTCPServer 根据配置创建 TCP 服务器并挂载解码处理器
func NewTCPServer(cfg cfgpkg.TCPConfig, binder *gateway.Binder, appm *metrics.AppMetrics, logger *zap.Logger) *tcpserver.Server {
	srv := tcpserver.New(cfg, logger)
	srv.SetConnHandler(gateway.NewTCPHandler(binder, cfg.Protocol))
	srv.SetMetricsCallbacks(
		func() { appm.TCPAccepted.Inc() },
		func(reason string) { appm.TCPRejected.WithLabelValues(reason).Inc() },
		func(n int) { appm.TCPBytesReceived.Add(float64(n)) },
	)
	return srv
}

// NewUDPServer 根据配置创建 UDP 服务器并挂载解码处理器
func NewUDPServer(cfg cfgpkg.UDPConfig, binder *gateway.Binder, appm *metrics.AppMetrics, logger *zap.Logger) *udpserver.Server {
	srv := udpserver.New(cfg, logger)
	srv.SetPeerHandler(gateway.NewUDPHandler(binder, cfg.Protocol))
	srv.SetMetricsCallbacks(
		func(n int) {
			appm.UDPPacketsReceived.Inc()
			appm.UDPBytesReceived.Add(float64(n))
		},
		nil,
	)
	return srv
}
