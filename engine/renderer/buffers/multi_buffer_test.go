package buffers

import (
	"bytes"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/memory"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func TestMultiBufferRotation(t *testing.T) {
	backend := newTestBackend(t)
	mb := newTestMultiBuffer(t, backend, 4, 1024)

	assert.Equal(t, 4, mb.SlotCount())
	start := mb.CurrentSlot()
	seen := map[*metadata.RenderBuffer]bool{}
	for i := 0; i < mb.SlotCount(); i++ {
		seen[mb.CurrentBuffer()] = true
		mb.NextFrame()
	}
	assert.Equal(t, start, mb.CurrentSlot())
	assert.Equal(t, 4, len(seen))
}

func TestMultiBufferSlotsAreIndependent(t *testing.T) {
	backend := newTestBackend(t)
	mb := newTestMultiBuffer(t, backend, 4, 1024)

	payload := bytes.Repeat([]byte{0xAB}, 100)
	w := mb.Writer()
	_, err := w.Begin(metadata.AlignUniform, 0)
	assert.NoError(t, err)
	_, err = w.Write(payload)
	assert.NoError(t, err)
	r, err := w.End()
	assert.NoError(t, err)
	assert.Equal(t, metadata.BufferRange{FirstByteOffset: 0, ByteCount: 100}, r)

	mb.NextFrame()
	assert.Equal(t, 1, mb.CurrentSlot())
	assert.Equal(t, metadata.BufferRange{}, mb.Writer().Range)
	assert.Equal(t, uint64(0), mb.Writer().WriteOffset)

	_, err = w.Begin(metadata.AlignUniform, 0)
	assert.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte{0xCD}, 200))
	assert.NoError(t, err)
	_, err = w.End()
	assert.NoError(t, err)

	slot0, err := mb.Buffer(0)
	assert.NoError(t, err)
	assert.Equal(t, payload, slot0.Memory[:100])
	slot1, err := mb.Buffer(1)
	assert.NoError(t, err)
	assert.Equal(t, byte(0xCD), slot1.Memory[0])
}

func TestMultiBufferAllocate(t *testing.T) {
	t.Run("default slot count", func(t *testing.T) {
		mb, err := NewMultiBuffer(newTestBackend(t), "default", 0)
		assert.NoError(t, err)
		assert.Equal(t, 4, mb.SlotCount())
	})

	t.Run("invalid slot count", func(t *testing.T) {
		_, err := NewMultiBuffer(newTestBackend(t), "bad", -1)
		assert.True(t, errors.Is(err, ErrInvalidSlotCount))
	})

	t.Run("unchanged parameters are a no-op", func(t *testing.T) {
		backend := newTestBackend(t)
		mb := newTestMultiBuffer(t, backend, 3, 512)
		first := mb.CurrentBuffer()
		assert.NoError(t, mb.Allocate(metadata.BufferTargetUniform, 0, 512))
		assert.True(t, first == mb.CurrentBuffer())
		assert.Equal(t, 3, backend.LiveBuffers())

		assert.NoError(t, mb.Allocate(metadata.BufferTargetUniform, 5, 512))
		assert.True(t, first == mb.CurrentBuffer())
		assert.Equal(t, uint32(5), mb.BindingPoint())
	})

	t.Run("resize recreates the slots", func(t *testing.T) {
		backend := newTestBackend(t)
		mb := newTestMultiBuffer(t, backend, 2, 512)
		assert.NoError(t, mb.Allocate(metadata.BufferTargetStorage, 1, 2048))
		assert.Equal(t, 2, backend.LiveBuffers())
		assert.Equal(t, uint64(2048), mb.Capacity())
		assert.Equal(t, uint64(2048), mb.CurrentBuffer().Capacity)
		assert.Equal(t, "test 1", mustBuffer(t, mb, 1).Name)
	})

	t.Run("open bracket blocks allocate", func(t *testing.T) {
		mb := newTestMultiBuffer(t, newTestBackend(t), 2, 512)
		_, err := mb.Writer().Begin(metadata.AlignNone, 0)
		assert.NoError(t, err)
		assert.True(t, errors.Is(mb.Allocate(metadata.BufferTargetUniform, 0, 1024), ErrWriterOpen))
		assert.Equal(t, uint64(512), mb.Capacity())
	})

	t.Run("zero capacity", func(t *testing.T) {
		mb, err := NewMultiBuffer(newTestBackend(t), "zero", 2)
		assert.NoError(t, err)
		assert.True(t, errors.Is(mb.Allocate(metadata.BufferTargetUniform, 0, 0), ErrInvalidCapacity))
	})

	t.Run("release", func(t *testing.T) {
		backend := newTestBackend(t)
		mb := newTestMultiBuffer(t, backend, 2, 64)
		assert.NoError(t, mb.Release())
		assert.Equal(t, 0, backend.LiveBuffers())
		assert.False(t, mb.IsAllocated())
		_, err := mb.Buffer(0)
		assert.True(t, errors.Is(err, ErrNotAllocated))
	})
}

func TestMultiBufferOverflow(t *testing.T) {
	mb := newTestMultiBuffer(t, newTestBackend(t), 2, 128)
	w := mb.Writer()
	_, err := w.Begin(metadata.AlignNone, 0)
	assert.NoError(t, err)
	_, err = w.Write(make([]byte, 129))
	assert.True(t, errors.Is(err, ErrBufferOverflow))
}

func TestMultiBufferBind(t *testing.T) {
	backend := newTestBackend(t)
	mb, err := NewMultiBuffer(backend, "camera", 2)
	assert.NoError(t, err)
	assert.NoError(t, mb.Allocate(metadata.BufferTargetUniform, 3, 512))

	assert.NoError(t, mb.Bind(metadata.BufferRange{}))
	assert.Equal(t, 0, len(backend.CommandsOfKind(memory.CommandBindBufferRange)))

	mb.NextFrame()
	assert.NoError(t, mb.Bind(metadata.BufferRange{FirstByteOffset: 256, ByteCount: 144}))
	binds := backend.CommandsOfKind(memory.CommandBindBufferRange)
	assert.Equal(t, 1, len(binds))
	assert.Equal(t, "camera 1", binds[0].Buffer)
	assert.Equal(t, uint32(3), binds[0].BindingPoint)

	_, err = mb.Buffer(2)
	assert.True(t, errors.Is(err, ErrInvalidSlot))
}

func mustBuffer(t *testing.T, mb *MultiBuffer, slot int) *metadata.RenderBuffer {
	t.Helper()
	b, err := mb.Buffer(slot)
	assert.NoError(t, err)
	return b
}
