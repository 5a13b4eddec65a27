package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/api"
	"github.com/taoyao-code/lcd-gateway/internal/api/middleware"
	"github.com/taoyao-code/lcd-gateway/internal/app"
	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
	"github.com/taoyao-code/lcd-gateway/internal/gateway"
	"github.com/taoyao-code/lcd-gateway/internal/health"
	"github.com/taoyao-code/lcd-gateway/internal/httpserver"
	"github.com/taoyao-code/lcd-gateway/internal/metrics"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
	"github.com/taoyao-code/lcd-gateway/internal/tcpserver"
	"github.com/taoyao-code/lcd-gateway/internal/udpserver"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

// Run 统一启动流程：依赖就绪后再开放接入，收到信号后优雅关闭
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting lcd gateway", zap.String("version", Version), zap.String("env", cfg.App.Env))

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)

	protocols := registry.Default(adapter.Options{Logger: log})
	if _, ok := protocols.Capability(cfg.Decoder.DefaultProtocol); !ok {
		return fmt.Errorf("%w: decoder.defaultProtocol=%q", registry.ErrUnknownProtocol, cfg.Decoder.DefaultProtocol)
	}
	log.Info("protocol registry sealed", zap.Strings("protocols", protocols.Protocols()))

	// ========== 阶段2: 外部依赖（可选）==========
	ctx := context.Background()
	rdb, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	nc, err := app.ConnectNATS(cfg.NATS, log)
	if err != nil {
		log.Error("nats initialization failed", zap.Error(err))
		return err
	}
	if nc != nil {
		defer nc.Close()
	}

	sinks := app.NewSinks(cfg, appm, rdb, nc, log)
	binder := gateway.NewBinder(protocols, cfg.Decoder, sinks.Dispatcher, appm, log)

	// ========== 阶段3: HTTP（非阻塞）==========
	ready := health.NewReadiness(cfg.TCP.Enable, cfg.UDP.Enable)
	healthAgg := app.NewHealthAggregator(rdb, nc)

	var (
		tcpSrv *tcpserver.Server
		udpSrv *udpserver.Server
	)
	stats := map[string]func() any{
		"sinks": func() any { return sinks.BreakerStats() },
	}
	if cfg.TCP.Enable {
		tcpSrv = app.NewTCPServer(cfg.TCP, binder, appm, log)
		healthAgg.Add(health.NewListenerChecker("tcp", tcpSrv))
		stats["tcp"] = func() any { return tcpSrv.Stats() }
	}
	if cfg.UDP.Enable {
		udpSrv = app.NewUDPServer(cfg.UDP, binder, appm, log)
		healthAgg.Add(health.NewListenerChecker("udp", udpSrv))
		stats["udp"] = func() any { return udpSrv.Stats() }
	}

	metricsPath := cfg.Metrics.Path
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}
	httpSrv := httpserver.New(cfg.HTTP, metricsPath, metricsHandler, func() bool {
		return ready.Ready() && healthAgg.Ready(context.Background())
	})
	httpSrv.Register(func(r *gin.Engine) {
		health.RegisterHTTPRoutes(r, healthAgg)
		api.RegisterRoutes(r, api.Deps{
			Registry:        protocols,
			DefaultProtocol: cfg.Decoder.DefaultProtocol,
			Store:           frameStore(sinks),
			Bindings:        binder,
			Stats:           stats,
		}, middleware.AuthConfig{Enabled: cfg.HTTP.Auth.Enabled, APIKeys: cfg.HTTP.Auth.APIKeys}, log)
	})
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	// ========== 阶段4: 接入层 ==========
	if tcpSrv != nil {
		if err := tcpSrv.Start(); err != nil {
			log.Error("tcp server start error", zap.Error(err))
			return err
		}
		ready.SetTCPReady(true)
	}
	if udpSrv != nil {
		if err := udpSrv.Start(); err != nil {
			log.Error("udp server start error", zap.Error(err))
			return err
		}
		ready.SetUDPReady(true)
	}

	// ========== 阶段5: 等待信号，优雅关闭 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("received shutdown signal, gracefully shutting down...")

	ready.SetTCPReady(false)
	ready.SetUDPReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// 先关接入层：连接关闭时释放解码实例并投递剩余事件
	if tcpSrv != nil {
		if err := tcpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("tcp shutdown incomplete", zap.Error(err))
		}
	}
	if udpSrv != nil {
		if err := udpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("udp shutdown incomplete", zap.Error(err))
		}
	}
	_ = httpSrv.Shutdown(shutdownCtx)
	if nc != nil {
		_ = nc.Drain()
	}
	log.Info("lcd gateway stopped", zap.Int("remaining_decoders", binder.Len()))
	return nil
}

// frameStore 避免把 nil *RedisStore 装进接口
func frameStore(s app.Sinks) api.FrameStore {
	if s.Store == nil {
		return nil
	}
	return s.Store
}
