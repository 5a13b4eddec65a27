package app

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
)

// ConnectNATS 连接 NATS；未启用时返回 nil
func ConnectNATS(cfg cfgpkg.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	if !cfg.Enabled {
		logger.Info("nats is disabled, skipping initialization")
		return nil, nil
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}
