package udpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
)

type recorder struct {
	mu      sync.Mutex
	packets map[string][][]byte
	closed  []string
	ticks   atomic.Int64
}

func newRecorder() *recorder { return &recorder{packets: map[string][][]byte{}} }

func (r *recorder) handler(p *Peer) error {
	key := p.RemoteAddr().String()
	p.SetProtocol("lcd320")
	p.SetOnPacket(func(b []byte) {
		r.mu.Lock()
		r.packets[key] = append(r.packets[key], append([]byte(nil), b...))
		r.mu.Unlock()
	})
	p.SetOnTick(func(time.Time) { r.ticks.Add(1) })
	p.OnClose(func() {
		r.mu.Lock()
		r.closed = append(r.closed, key)
		r.mu.Unlock()
	})
	return nil
}

func (r *recorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets[key])
}

func (r *recorder) closedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closed)
}

func start(t *testing.T, cfg cfgpkg.UDPConfig, h PeerHandler) *Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	s := New(cfg, nil)
	s.SetPeerHandler(h)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	c, err := net.Dial("udp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServer_PeerPerSourceAddress(t *testing.T) {
	rec := newRecorder()
	s := start(t, cfgpkg.UDPConfig{ReadTimeout: 20 * time.Millisecond}, rec.handler)

	a, b := dial(t, s), dial(t, s)
	_, _ = a.Write([]byte{1, 2})
	_, _ = a.Write([]byte{3})
	_, _ = b.Write([]byte{9})

	require.Eventually(t, func() bool {
		return rec.count(a.LocalAddr().String()) == 2 && rec.count(b.LocalAddr().String()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, s.ActiveConnections())
	assert.EqualValues(t, 3, s.Stats().Packets)
}

func TestServer_IdleEviction(t *testing.T) {
	rec := newRecorder()
	s := start(t, cfgpkg.UDPConfig{ReadTimeout: 10 * time.Millisecond, IdleTimeout: 50 * time.Millisecond}, rec.handler)

	c := dial(t, s)
	_, _ = c.Write([]byte{1})
	require.Eventually(t, func() bool { return rec.closedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.ActiveConnections())
	assert.Greater(t, rec.ticks.Load(), int64(0))

	// 再次发送会建立新对端
	_, _ = c.Write([]byte{2})
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServer_MaxPeersAndHandlerRefusal(t *testing.T) {
	rec := newRecorder()
	s := start(t, cfgpkg.UDPConfig{ReadTimeout: 20 * time.Millisecond, MaxPeers: 1}, rec.handler)

	a, b := dial(t, s), dial(t, s)
	_, _ = a.Write([]byte{1})
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)
	_, _ = b.Write([]byte{1})
	require.Eventually(t, func() bool { return s.Stats().Rejected == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, rec.count(b.LocalAddr().String()))

	refusing := start(t, cfgpkg.UDPConfig{ReadTimeout: 20 * time.Millisecond}, func(*Peer) error {
		return errors.New("unknown protocol")
	})
	c := dial(t, refusing)
	_, _ = c.Write([]byte{1})
	require.Eventually(t, func() bool { return refusing.Stats().Rejected == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, refusing.ActiveConnections())
}

func TestServer_ShutdownClosesPeers(t *testing.T) {
	rec := newRecorder()
	s := New(cfgpkg.UDPConfig{Addr: "127.0.0.1:0", ReadTimeout: 20 * time.Millisecond}, nil)
	s.SetPeerHandler(rec.handler)
	require.NoError(t, s.Start())

	c := dial(t, s)
	_, _ = c.Write([]byte{1})
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, 1, rec.closedCount())
}
