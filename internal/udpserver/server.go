// Package udpserver 提供无连接接入：每个源地址视为一个对端，惰性创建、空闲回收。
package udpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
)

// maxDatagram UDP 单包上限
const maxDatagram = 64 * 1024

// Peer 一个源地址。回调均在服务端读循环 goroutine 内执行
type Peer struct {
	id       string
	addr     net.Addr
	onPacket func([]byte)
	onTick   func(now time.Time)
	onClose  []func()
	lastSeen time.Time
	protocol string
}

func (p *Peer) ID() string           { return p.id }
func (p *Peer) RemoteAddr() net.Addr { return p.addr }

// SetOnPacket 收到数据报时回调；切片在回调返回后复用
func (p *Peer) SetOnPacket(h func([]byte)) { p.onPacket = h }

// SetOnTick 周期回调，粒度为 ReadTimeout
func (p *Peer) SetOnTick(h func(now time.Time)) { p.onTick = h }

// OnClose 登记回收回调，逆序执行
func (p *Peer) OnClose(fn func()) { p.onClose = append(p.onClose, fn) }

func (p *Peer) SetProtocol(id string) { p.protocol = id }
func (p *Peer) Protocol() string      { return p.protocol }

func (p *Peer) close() {
	for i := len(p.onClose) - 1; i >= 0; i-- {
		p.onClose[i]()
	}
	p.onClose = nil
}

// PeerHandler 新对端回调，返回错误则丢弃该数据报且不登记对端
type PeerHandler func(p *Peer) error

// Server UDP 接入服务
type Server struct {
	cfg     cfgpkg.UDPConfig
	logger  *zap.Logger
	conn    net.PacketConn
	handler PeerHandler

	onPacket func(n int)
	onReject func(reason string)

	peers    map[string]*Peer // 仅读循环访问
	active   atomic.Int64
	rejected atomic.Int64
	packets  atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
	stopping atomic.Bool
}

// New 创建 UDP 接入服务
func New(cfg cfgpkg.UDPConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	return &Server{cfg: cfg, logger: logger, peers: make(map[string]*Peer), done: make(chan struct{})}
}

// SetPeerHandler 设置新对端回调
func (s *Server) SetPeerHandler(h PeerHandler) { s.handler = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onPacket func(int), onReject func(string)) {
	s.onPacket, s.onReject = onPacket, onReject
}

// Addr 实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Start 监听（非阻塞）
func (s *Server) Start() error {
	conn, err := net.ListenPacket("udp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.logger.Info("udp server listening", zap.String("addr", conn.LocalAddr().String()))
	go s.loop()
	return nil
}

func (s *Server) loop() {
	defer close(s.done)
	defer s.closeAll()

	buf := make([]byte, maxDatagram)
	lastSweep := time.Now()
	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		n, addr, err := s.conn.ReadFrom(buf)
		now := time.Now()
		if err != nil {
			var ne net.Error
			if !(errors.As(err, &ne) && ne.Timeout()) {
				if !s.stopping.Load() {
					s.logger.Error("udp read failed", zap.Error(err))
				}
				return
			}
		}
		if n > 0 && addr != nil {
			s.packets.Add(1)
			if s.onPacket != nil {
				s.onPacket(n)
			}
			if p := s.peer(addr, now); p != nil {
				p.lastSeen = now
				if p.onPacket != nil {
					p.onPacket(buf[:n])
				}
			}
		}
		if now.Sub(lastSweep) >= s.cfg.ReadTimeout {
			s.sweep(now)
			lastSweep = now
		}
	}
}

func (s *Server) peer(addr net.Addr, now time.Time) *Peer {
	key := addr.String()
	if p, ok := s.peers[key]; ok {
		return p
	}
	if s.cfg.MaxPeers > 0 && len(s.peers) >= s.cfg.MaxPeers {
		s.reject(key, "limit")
		return nil
	}
	p := &Peer{id: uuid.NewString(), addr: addr, lastSeen: now}
	if s.handler != nil {
		if err := s.handler(p); err != nil {
			s.logger.Warn("udp peer refused", zap.String("remote", key), zap.Error(err))
			s.reject(key, "handler")
			return nil
		}
	}
	s.peers[key] = p
	s.active.Add(1)
	return p
}

func (s *Server) reject(remote, reason string) {
	s.rejected.Add(1)
	if s.onReject != nil {
		s.onReject(reason)
	}
	s.logger.Debug("udp datagram rejected", zap.String("remote", remote), zap.String("reason", reason))
}

// sweep 驱动对端 tick 并回收空闲对端
func (s *Server) sweep(now time.Time) {
	for key, p := range s.peers {
		if p.onTick != nil {
			p.onTick(now)
		}
		if s.cfg.IdleTimeout > 0 && now.Sub(p.lastSeen) >= s.cfg.IdleTimeout {
			s.logger.Debug("udp peer idle, evicted", zap.String("remote", key))
			p.close()
			delete(s.peers, key)
			s.active.Add(-1)
		}
	}
}

func (s *Server) closeAll() {
	for key, p := range s.peers {
		p.close()
		delete(s.peers, key)
	}
	s.active.Store(0)
}

// ActiveConnections 当前对端数
func (s *Server) ActiveConnections() int { return int(s.active.Load()) }

// MaxConnections 对端上限（0 表示不限）
func (s *Server) MaxConnections() int { return s.cfg.MaxPeers }

// Stats 接入统计
type Stats struct {
	ActivePeers int   `json:"active_peers"`
	MaxPeers    int   `json:"max_peers"`
	Packets     int64 `json:"packets"`
	Rejected    int64 `json:"rejected"`
}

func (s *Server) Stats() Stats {
	return Stats{
		ActivePeers: s.ActiveConnections(),
		MaxPeers:    s.cfg.MaxPeers,
		Packets:     s.packets.Load(),
		Rejected:    s.rejected.Load(),
	}
}

// Shutdown 关闭监听，回收全部对端
func (s *Server) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		_ = s.conn.Close()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	}
}
