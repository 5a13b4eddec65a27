// Package tcpserver 提供 TCP 接入：监听、限流与每连接读循环。
package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
)

// 拒绝原因（指标标签）
const (
	RejectLimit = "limit"
	RejectRate  = "rate"
)

// Server TCP 接入服务
type Server struct {
	cfg     cfgpkg.TCPConfig
	logger  *zap.Logger
	ln      net.Listener
	limiter *ConnectionLimiter
	gate    *AcceptGate
	handler func(*ConnContext)

	// 可选指标回调
	onAccept    func()
	onReject    func(reason string)
	onRecvBytes func(n int)

	conns    sync.Map // id -> *ConnContext
	accepted atomic.Int64
	wg       sync.WaitGroup
	ctx      context.Context // Shutdown 时取消，中断许可等待
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New 创建 TCP 接入服务
func New(cfg cfgpkg.TCPConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		logger:  logger,
		limiter: NewConnectionLimiter(cfg.MaxConnections, cfg.AcquireTimeout),
		gate:    NewAcceptGate(cfg.AcceptRate, cfg.AcceptBurst),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetConnHandler 新连接回调：在读循环启动前调用，用于安装 OnRead/OnTick/OnClose
func (s *Server) SetConnHandler(h func(*ConnContext)) { s.handler = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept func(), onReject func(string), onRecvBytes func(int)) {
	s.onAccept, s.onReject, s.onRecvBytes = onAccept, onReject, onRecvBytes
}

// Addr 实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("tcp server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if !s.gate.Allow() {
			s.reject(conn, RejectRate)
			continue
		}
		if err := s.limiter.Acquire(s.ctx); err != nil {
			s.reject(conn, RejectLimit)
			continue
		}

		s.accepted.Add(1)
		if s.onAccept != nil {
			s.onAccept()
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) reject(conn net.Conn, reason string) {
	s.logger.Warn("tcp connection rejected",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.String("reason", reason))
	if s.onReject != nil {
		s.onReject(reason)
	}
	_ = conn.Close()
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer s.limiter.Release()

	cc := newConnContext(s, conn)
	s.conns.Store(cc.ID(), cc)
	defer s.conns.Delete(cc.ID())

	if s.handler != nil {
		s.handler(cc)
	}
	cc.run()
}

// ActiveConnections 当前连接数
func (s *Server) ActiveConnections() int { return s.limiter.Active() }

// MaxConnections 连接上限（0 表示不限）
func (s *Server) MaxConnections() int { return s.limiter.Max() }

// Stats 接入统计
func (s *Server) Stats() Stats {
	st := Stats{
		MaxConnections:    s.limiter.Max(),
		ActiveConnections: s.limiter.Active(),
		AcceptedTotal:     s.accepted.Load(),
		RejectedByLimit:   s.limiter.rejected.Load(),
		RejectedByRate:    s.gate.rejected.Load(),
	}
	if st.MaxConnections > 0 {
		st.Utilization = float64(st.ActiveConnections) / float64(st.MaxConnections)
	}
	return st
}

// Shutdown 关闭监听与全部连接，等待读循环退出
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.ln != nil {
			_ = s.ln.Close()
		}
		s.conns.Range(func(_, v any) bool {
			_ = v.(*ConnContext).Close()
			return true
		})
	})
	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
