package tcpserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnContext 单个 TCP 连接的读循环与回调。回调均在读循环 goroutine 内执行
type ConnContext struct {
	s      *Server
	c      net.Conn
	id     string
	onRead func([]byte)
	onTick func(now time.Time)

	mu       sync.Mutex
	onClose  []func()
	proto    atomic.Value // string
	closed   atomic.Bool
	doneC    chan struct{}
	lastRead time.Time
}

func newConnContext(s *Server, c net.Conn) *ConnContext {
	cc := &ConnContext{
		s:     s,
		c:     c,
		id:    uuid.NewString(),
		doneC: make(chan struct{}),
	}
	cc.proto.Store("")
	return cc
}

// ID 连接ID
func (cc *ConnContext) ID() string { return cc.id }

// RemoteAddr 返回远端地址
func (cc *ConnContext) RemoteAddr() net.Addr { return cc.c.RemoteAddr() }

// SetOnRead 收到上行字节时回调；切片在回调返回后复用
func (cc *ConnContext) SetOnRead(h func([]byte)) { cc.onRead = h }

// SetOnTick 读超时（无数据）时回调，粒度为 ReadTimeout
func (cc *ConnContext) SetOnTick(h func(now time.Time)) { cc.onTick = h }

// OnClose 登记关闭回调，按登记的逆序执行
func (cc *ConnContext) OnClose(fn func()) {
	cc.mu.Lock()
	cc.onClose = append(cc.onClose, fn)
	cc.mu.Unlock()
}

// SetProtocol 设置连接所绑定的协议
func (cc *ConnContext) SetProtocol(p string) { cc.proto.Store(p) }

// Protocol 返回连接所绑定的协议
func (cc *ConnContext) Protocol() string {
	s, _ := cc.proto.Load().(string)
	return s
}

// Close 关闭底层连接，读循环随即退出
func (cc *ConnContext) Close() error {
	if !cc.closed.CompareAndSwap(false, true) {
		return nil
	}
	return cc.c.Close()
}

// Done 返回连接关闭通知通道
func (cc *ConnContext) Done() <-chan struct{} { return cc.doneC }

// run 读循环，阻塞直至连接结束
func (cc *ConnContext) run() {
	defer cc.finish()

	cfg := cc.s.cfg
	log := cc.s.logger.With(zap.String("conn_id", cc.id), zap.String("remote", cc.c.RemoteAddr().String()))
	buf := make([]byte, cfg.ReadBufferSize)
	cc.lastRead = time.Now()

	for {
		if cc.s.ctx.Err() != nil {
			return
		}
		_ = cc.c.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		n, err := cc.c.Read(buf)
		if n > 0 {
			cc.lastRead = time.Now()
			if cc.s.onRecvBytes != nil {
				cc.s.onRecvBytes(n)
			}
			if cc.onRead != nil {
				cc.onRead(buf[:n])
			}
		}
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			now := time.Now()
			if cc.onTick != nil {
				cc.onTick(now)
			}
			if cfg.IdleTimeout > 0 && now.Sub(cc.lastRead) >= cfg.IdleTimeout {
				log.Info("tcp connection idle timeout", zap.Duration("idle", now.Sub(cc.lastRead)))
				return
			}
			continue
		}
		if !errors.Is(err, io.EOF) && !cc.closed.Load() {
			log.Debug("tcp read error", zap.Error(err))
		}
		return
	}
}

func (cc *ConnContext) finish() {
	_ = cc.Close()
	cc.mu.Lock()
	fns := cc.onClose
	cc.onClose = nil
	cc.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
	close(cc.doneC)
}
