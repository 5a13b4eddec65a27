package tcpserver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/lcd-gateway/internal/config"
)

func startServer(t *testing.T, cfg cfgpkg.TCPConfig, h func(*ConnContext), setup ...func(*Server)) *Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	s := New(cfg, nil)
	s.SetConnHandler(h)
	for _, fn := range setup {
		fn(s)
	}
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestServer_ReadAndClose(t *testing.T) {
	var (
		mu       sync.Mutex
		got      []byte
		closed   = make(chan string, 1)
		recvSeen atomic.Int64
	)
	s := startServer(t, cfgpkg.TCPConfig{ReadTimeout: 20 * time.Millisecond}, func(cc *ConnContext) {
		cc.SetProtocol("lcd480")
		cc.SetOnRead(func(b []byte) {
			mu.Lock()
			got = append(got, b...)
			mu.Unlock()
		})
		cc.OnClose(func() { closed <- cc.Protocol() })
	}, func(s *Server) {
		s.SetMetricsCallbacks(nil, nil, func(n int) { recvSeen.Add(int64(n)) })
	})

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 4, recvSeen.Load())
	assert.Equal(t, 1, s.ActiveConnections())

	require.NoError(t, conn.Close())
	select {
	case p := <-closed:
		assert.Equal(t, "lcd480", p)
	case <-time.After(time.Second):
		t.Fatal("close callback not called")
	}
	require.Eventually(t, func() bool { return s.ActiveConnections() == 0 }, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, s.Stats().AcceptedTotal)
}

func TestServer_TickAndIdleTimeout(t *testing.T) {
	var ticks atomic.Int64
	done := make(chan struct{})
	s := startServer(t, cfgpkg.TCPConfig{
		ReadTimeout: 10 * time.Millisecond,
		IdleTimeout: 80 * time.Millisecond,
	}, func(cc *ConnContext) {
		cc.SetOnTick(func(time.Time) { ticks.Add(1) })
		cc.OnClose(func() { close(done) })
	})

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("idle connection was not closed")
	}
	assert.GreaterOrEqual(t, ticks.Load(), int64(2))
}

func TestServer_ConnectionLimit(t *testing.T) {
	var rejected atomic.Int64
	s := startServer(t, cfgpkg.TCPConfig{
		ReadTimeout:    20 * time.Millisecond,
		MaxConnections: 1,
		AcquireTimeout: 20 * time.Millisecond,
	}, nil, func(s *Server) {
		s.SetMetricsCallbacks(nil, func(reason string) {
			if reason == RejectLimit {
				rejected.Add(1)
			}
		}, nil)
	})

	c1, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c1.Close()
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	c2, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer c2.Close()

	// 被拒绝的连接由服务端关闭
	_ = c2.SetReadDeadline(time.Now().Add(time.Second))
	_, err = c2.Read(make([]byte, 1))
	assert.Error(t, err)
	require.Eventually(t, func() bool { return rejected.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, s.Stats().RejectedByLimit)
	assert.Equal(t, 1.0, s.Stats().Utilization)
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	done := make(chan struct{})
	cfg := cfgpkg.TCPConfig{Addr: "127.0.0.1:0", ReadTimeout: 50 * time.Millisecond}
	s := New(cfg, nil)
	s.SetConnHandler(func(cc *ConnContext) { cc.OnClose(func() { close(done) }) })
	require.NoError(t, s.Start())

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	<-done
	assert.Equal(t, 0, s.ActiveConnections())
}
