package health

import "sync/atomic"

// Readiness 接入层就绪标记：启用的监听全部启动后才就绪
type Readiness struct {
	needTCP, needUDP   bool
	tcpReady, udpReady atomic.Bool
}

func NewReadiness(needTCP, needUDP bool) *Readiness {
	return &Readiness{needTCP: needTCP, needUDP: needUDP}
}

func (r *Readiness) SetTCPReady(v bool) { r.tcpReady.Store(v) }
func (r *Readiness) SetUDPReady(v bool) { r.udpReady.Store(v) }

func (r *Readiness) Ready() bool {
	if r.needTCP && !r.tcpReady.Load() {
		return false
	}
	if r.needUDP && !r.udpReady.Load() {
		return false
	}
	return true
}
