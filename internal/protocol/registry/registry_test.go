package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/lcd-gateway/internal/coremodel"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/lcd320"
	"github.com/taoyao-code/lcd-gateway/internal/protocol/lcd480"
)

func TestCreate_UnknownProtocol(t *testing.T) {
	r := Default(adapter.Options{})
	dec, _, err := r.Create("unregistered-protocol")
	assert.Nil(t, dec)
	assert.True(t, errors.Is(err, ErrUnknownProtocol))
}

func TestCreate_FreshInstances(t *testing.T) {
	r := Default(adapter.Options{})

	a, capsA, err := r.Create(DefaultProtocol)
	require.NoError(t, err)
	b, capsB, err := r.Create(DefaultProtocol)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, capsA, capsB)

	chA := make(chan coremodel.DecodedFrame, 4)
	chB := make(chan coremodel.DecodedFrame, 4)
	require.NoError(t, a.Subscribe("a", chA))
	require.NoError(t, b.Subscribe("b", chB))

	// a 进入累积态，b 保持空闲
	require.NoError(t, a.ProcessBytes(append(lcd480.EncodeHeader(lcd480.CompressionNone, 480, 480, 4), 0x10, 0x11)))
	assert.Equal(t, coremodel.StateAccumulating, a.State())
	assert.Equal(t, coremodel.StateIdle, b.State())

	// 发往 b 的续包不会补全 a 的帧
	require.NoError(t, b.ProcessBytes([]byte{0x12, 0x13}))
	assert.Empty(t, chA)
	assert.Empty(t, chB)
	assert.Equal(t, uint64(1), b.Stats().DroppedChunks)

	require.NoError(t, a.ProcessBytes([]byte{0x12, 0x13}))
	ev := <-chA
	assert.Equal(t, []byte{0x10, 0x11, 0x12, 0x13}, ev.Data)
	assert.Empty(t, chB)

	b.Dispose()
	assert.NoError(t, a.ProcessBytes([]byte{0x00}))
}

func TestRegister_Validation(t *testing.T) {
	r := New(adapter.Options{})
	caps := lcd480.Capability()

	assert.True(t, errors.Is(r.Register("", lcd480.NewDecoder, caps), ErrInvalidRegistration))
	assert.True(t, errors.Is(r.Register("x", nil, caps), ErrInvalidRegistration))
	assert.True(t, errors.Is(r.Register("x", lcd480.NewDecoder, coremodel.Capability{}), ErrInvalidRegistration))

	require.NoError(t, r.Register("x", lcd480.NewDecoder, caps))
	assert.True(t, errors.Is(r.Register("x", lcd480.NewDecoder, caps), ErrDuplicateProtocol))

	r.Seal()
	assert.True(t, r.Sealed())
	assert.True(t, errors.Is(r.Register("y", lcd480.NewDecoder, caps), ErrRegistrySealed))
	assert.Panics(t, func() { r.MustRegister("z", lcd480.NewDecoder, caps) })
}

func TestProtocolsAndCapability(t *testing.T) {
	r := Default(adapter.Options{})
	assert.Equal(t, []string{lcd480.ID, lcd320.ID}, r.Protocols())

	caps, ok := r.Capability(lcd320.ID)
	require.True(t, ok)
	assert.Equal(t, 320, caps.Width)

	_, ok = r.Capability("nope")
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	r := Default(adapter.Options{})

	id, ok := r.Detect(lcd320.EncodeHeader(lcd320.FormatJPEG, 320, 240, 10))
	assert.True(t, ok)
	assert.Equal(t, lcd320.ID, id)

	id, ok = r.Detect(lcd480.EncodeHeader(lcd480.CompressionNone, 480, 480, 10))
	assert.True(t, ok)
	assert.Equal(t, lcd480.ID, id)

	_, ok = r.Detect([]byte{0x7F, 0x7F})
	assert.False(t, ok)
}

func TestCreate_ConcurrentLookups(t *testing.T) {
	r := Default(adapter.Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				dec, _, err := r.Create(lcd320.ID)
				if err != nil {
					t.Error(err)
					return
				}
				dec.Dispose()
			}
		}()
	}
	wg.Wait()
}

func TestRegister_ConcurrentWithLookupsBeforeSeal(t *testing.T) {
	r := New(adapter.Options{})
	r.MustRegister(lcd480.ID, lcd480.NewDecoder, lcd480.Capability())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = r.Register(fmt.Sprintf("extra-%d", i), lcd320.NewDecoder, lcd320.Capability())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			dec, _, err := r.Create(lcd480.ID)
			if err != nil {
				t.Error(err)
				return
			}
			dec.Dispose()
			_, _ = r.Capability("extra-1")
			_ = r.Protocols()
			_, _ = r.Detect([]byte{0x00})
		}
	}()
	wg.Wait()

	r.Seal()
	assert.Len(t, r.Protocols(), 51)
}
