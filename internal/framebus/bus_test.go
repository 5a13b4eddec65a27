package framebus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
)

func frameOf(b byte) coremodel.DecodedFrame {
	return coremodel.DecodedFrame{Data: []byte{b}}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan coremodel.DecodedFrame, 4)
	require.NoError(t, bus.Subscribe("a", ch))

	bus.Publish(frameOf(1))
	bus.Publish(frameOf(2))

	assert.Equal(t, byte(1), (<-ch).Data[0])
	assert.Equal(t, byte(2), (<-ch).Data[0])
	assert.Equal(t, uint64(2), bus.Published())
}

func TestBus_MultipleSubscribersKeepOrder(t *testing.T) {
	bus := New()
	a := make(chan coremodel.DecodedFrame, 8)
	b := make(chan coremodel.DecodedFrame, 8)
	require.NoError(t, bus.Subscribe("a", a))
	require.NoError(t, bus.Subscribe("b", b))

	for i := byte(0); i < 5; i++ {
		bus.Publish(frameOf(i))
	}
	for i := byte(0); i < 5; i++ {
		assert.Equal(t, i, (<-a).Data[0])
		assert.Equal(t, i, (<-b).Data[0])
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := New()
	slow := make(chan coremodel.DecodedFrame, 1)
	require.NoError(t, bus.Subscribe("slow", slow))

	done := make(chan struct{})
	go func() {
		bus.Publish(frameOf(1))
		bus.Publish(frameOf(2))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked on full subscriber")
	}

	st, err := bus.Stats("slow")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Sent)
	assert.Equal(t, uint64(1), st.Dropped)
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestBus_SubscribeErrors(t *testing.T) {
	bus := New()
	ch := make(chan coremodel.DecodedFrame, 1)

	assert.True(t, errors.Is(bus.Subscribe("x", nil), ErrNilChannel))
	require.NoError(t, bus.Subscribe("x", ch))
	assert.True(t, errors.Is(bus.Subscribe("x", ch), ErrSubscriberExists))
	assert.True(t, errors.Is(bus.Unsubscribe("missing"), ErrSubscriberNotFound))

	require.NoError(t, bus.Unsubscribe("x"))
	assert.Equal(t, 0, bus.Len())

	bus.Close()
	bus.Close()
	assert.True(t, errors.Is(bus.Subscribe("y", ch), ErrBusClosed))
	bus.Publish(frameOf(1))
	assert.Equal(t, uint64(0), bus.Published())
}
