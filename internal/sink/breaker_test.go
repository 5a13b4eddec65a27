package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardedSink_TripsAndRecovers(t *testing.T) {
	inner := &recordingSink{err: errors.New("backend down")}
	g := NewGuardedSink(inner, 3, time.Minute, nil)
	clock := time.Unix(1000, 0)
	g.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, g.HandleFrame(ctx, Envelope{}))
	}
	assert.Equal(t, BreakerOpen, g.State())

	// 冷却期内不触达下游
	assert.ErrorIs(t, g.HandleFrame(ctx, Envelope{}), ErrSinkOpen)
	assert.Len(t, inner.all(), 3)

	// 冷却结束，试探失败再次熔断
	clock = clock.Add(2 * time.Minute)
	require.Error(t, g.HandleFrame(ctx, Envelope{}))
	assert.Equal(t, BreakerOpen, g.State())
	assert.EqualValues(t, 2, g.Stats().Trips)

	// 下游恢复后试探成功即闭合
	clock = clock.Add(2 * time.Minute)
	inner.mu.Lock()
	inner.err = nil
	inner.mu.Unlock()
	require.NoError(t, g.HandleFrame(ctx, Envelope{}))
	assert.Equal(t, BreakerClosed, g.State())

	st := g.Stats()
	assert.Equal(t, "closed", st.State)
	assert.Equal(t, 0, st.Failures)
	assert.EqualValues(t, 1, st.Skipped)
	assert.Equal(t, "recording", g.Name())
}

func TestGuardedSink_SuccessResetsFailures(t *testing.T) {
	inner := &recordingSink{err: errors.New("x")}
	g := NewGuardedSink(inner, 2, time.Minute, nil)
	ctx := context.Background()

	_ = g.HandleFrame(ctx, Envelope{})
	inner.err = nil
	require.NoError(t, g.HandleFrame(ctx, Envelope{}))
	inner.err = errors.New("x")
	_ = g.HandleFrame(ctx, Envelope{})
	assert.Equal(t, BreakerClosed, g.State())
}
