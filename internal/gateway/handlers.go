package gateway

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lcd-gateway/internal/sink"
	"github.com/taoyao-code/lcd-gateway/internal/tcpserver"
	"github.com/taoyao-code/lcd-gateway/internal/udpserver"
)

// ErrBindFailed 首包绑定失败，后续数据一律丢弃
var ErrBindFailed = errors.New("gateway: decoder binding failed")

// lazyBinding 首包到达时才选定协议（未固定协议时需要首包初判）
type lazyBinding struct {
	b      *Binder
	fixed  string
	src    sink.Source
	bd     *Binding
	failed bool
}

func (l *lazyBinding) feed(chunk []byte, now time.Time) error {
	if l.failed {
		return ErrBindFailed
	}
	if l.bd == nil {
		l.src.Protocol = l.b.Resolve(l.fixed, chunk)
		bd, err := l.b.Bind(l.src)
		if err != nil {
			l.failed = true
			l.b.logger.Warn("bind decoder failed",
				zap.String("conn_id", l.src.ConnID),
				zap.String("remote", l.src.Remote),
				zap.String("protocol", l.src.Protocol),
				zap.Error(err))
			return errors.Join(ErrBindFailed, err)
		}
		l.bd = bd
	}
	return l.bd.Feed(chunk, now)
}

func (l *lazyBinding) tick(now time.Time) {
	if l.bd != nil {
		l.bd.Tick(now)
	}
}

func (l *lazyBinding) close() {
	if l.bd != nil {
		l.bd.Close()
	}
}

// NewTCPHandler 构建 TCP 连接处理器：每条连接一个解码实例，绑定失败即断开
func NewTCPHandler(b *Binder, fixed string) func(*tcpserver.ConnContext) {
	return func(cc *tcpserver.ConnContext) {
		lb := &lazyBinding{b: b, fixed: fixed, src: sink.Source{
			Transport: "tcp",
			ConnID:    cc.ID(),
			Remote:    cc.RemoteAddr().String(),
		}}
		cc.SetOnRead(func(chunk []byte) {
			if err := lb.feed(chunk, time.Now()); err != nil {
				_ = cc.Close()
				return
			}
			if cc.Protocol() == "" {
				cc.SetProtocol(lb.src.Protocol)
			}
		})
		cc.SetOnTick(lb.tick)
		cc.OnClose(lb.close)
	}
}

// NewUDPHandler 构建 UDP 对端处理器：每个源地址一个解码实例
func NewUDPHandler(b *Binder, fixed string) udpserver.PeerHandler {
	return func(p *udpserver.Peer) error {
		lb := &lazyBinding{b: b, fixed: fixed, src: sink.Source{
			Transport: "udp",
			ConnID:    p.ID(),
			Remote:    p.RemoteAddr().String(),
		}}
		p.SetOnPacket(func(chunk []byte) {
			if err := lb.feed(chunk, time.Now()); err == nil && p.Protocol() == "" {
				p.SetProtocol(lb.src.Protocol)
			}
		})
		p.SetOnTick(lb.tick)
		p.OnClose(lb.close)
		return nil
	}
}
