package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
)

type fakeTarget struct {
	state  coremodel.DecoderState
	resets int
}

func (f *fakeTarget) State() coremodel.DecoderState { return f.state }
func (f *fakeTarget) Reset() {
	f.resets++
	f.state = coremodel.StateIdle
}

func TestGuard_ResetsStalledFrame(t *testing.T) {
	tgt := &fakeTarget{state: coremodel.StateAccumulating}
	var stalledFor time.Duration
	g := New(tgt, time.Second, func(d time.Duration) { stalledFor = d })

	t0 := time.Now()
	g.Observe(t0)
	assert.False(t, g.Check(t0.Add(500*time.Millisecond)))
	assert.Equal(t, 0, tgt.resets)

	assert.True(t, g.Check(t0.Add(1500*time.Millisecond)))
	assert.Equal(t, 1, tgt.resets)
	assert.Equal(t, 1500*time.Millisecond, stalledFor)

	// 已回到 Idle，不再复位
	assert.False(t, g.Check(t0.Add(10*time.Second)))
	assert.Equal(t, 1, tgt.resets)
}

func TestGuard_ProgressDefersReset(t *testing.T) {
	tgt := &fakeTarget{state: coremodel.StateAccumulating}
	g := New(tgt, time.Second, nil)

	t0 := time.Now()
	g.Observe(t0)
	g.Observe(t0.Add(900 * time.Millisecond))
	assert.False(t, g.Check(t0.Add(1500*time.Millisecond)))
}

func TestGuard_IdleOrDisabled(t *testing.T) {
	idle := &fakeTarget{state: coremodel.StateIdle}
	g := New(idle, time.Millisecond, nil)
	assert.False(t, g.Check(time.Now().Add(time.Hour)))

	busy := &fakeTarget{state: coremodel.StateAccumulating}
	off := New(busy, 0, nil)
	assert.False(t, off.Check(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, busy.resets)
}
