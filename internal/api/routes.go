// Package api 提供只读查询接口：协议能力、活动连接、最新帧与接入统计。
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/api/middleware"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
)

// Deps 路由依赖；Store/Bindings 为 nil 时对应接口降级
type Deps struct {
	Registry        *registry.Registry
	DefaultProtocol string
	Store           FrameStore
	Bindings        BindingLister
	// Stats 名称 -> 统计快照（tcp/udp/sink 熔断等）
	Stats map[string]func() any
}

// RegisterRoutes 注册 /api 路由组
func RegisterRoutes(r gin.IRouter, deps Deps, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		reg:             deps.Registry,
		defaultProtocol: deps.DefaultProtocol,
		store:           deps.Store,
		bindings:        deps.Bindings,
		stats:           deps.Stats,
		logger:          logger,
	}

	api := r.Group("/api")
	api.Use(middleware.AccessLog(logger))
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.GET("/protocols", h.ListProtocols)
	api.GET("/protocols/:id", h.GetProtocol)
	api.GET("/connections", h.ListConnections)
	api.GET("/devices/:id/frame", h.LatestFrame)
	api.GET("/devices/:id/history", h.FrameHistory)
	api.GET("/stats", h.Stats)
}
