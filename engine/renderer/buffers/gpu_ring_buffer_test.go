package buffers

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func TestGPURingBuffer(t *testing.T) {
	t.Run("wraps once the reader moved on", func(t *testing.T) {
		rb, err := NewGPURingBuffer(newTestBackend(t), "ring", metadata.BufferTargetUniform, 256)
		assert.NoError(t, err)

		rb.SetFrame(0)
		r0, ok := rb.Acquire(16, 100)
		assert.True(t, ok)
		assert.Equal(t, uint64(0), r0.ByteOffset)
		assert.NoError(t, rb.Close(&r0, 100))

		rb.SetFrame(1)
		r1, ok := rb.Acquire(16, 100)
		assert.True(t, ok)
		assert.Equal(t, uint64(112), r1.ByteOffset)
		assert.NoError(t, rb.Close(&r1, 100))
		assert.Equal(t, 2, rb.PendingFrames())

		rb.SetFrame(2)
		_, ok = rb.Acquire(16, 100)
		assert.False(t, ok)

		rb.FrameCompleted(0)
		assert.Equal(t, 1, rb.PendingFrames())
		r2, ok := rb.Acquire(16, 100)
		assert.True(t, ok)
		assert.Equal(t, uint64(0), r2.ByteOffset)
		assert.Equal(t, r0.WrapCount+1, r2.WrapCount)

		// Frame 1 still holds [112, 212).
		_, ok = rb.Acquire(16, 100)
		assert.False(t, ok)
	})

	t.Run("ranges of one frame are merged", func(t *testing.T) {
		rb, err := NewGPURingBuffer(newTestBackend(t), "ring", metadata.BufferTargetStorage, 1024)
		assert.NoError(t, err)

		rb.SetFrame(5)
		for i := 0; i < 3; i++ {
			r, ok := rb.Acquire(16, 64)
			assert.True(t, ok)
			assert.NoError(t, rb.Close(&r, 64))
		}
		assert.Equal(t, 1, rb.PendingFrames())

		rb.FrameCompleted(5)
		assert.Equal(t, 0, rb.PendingFrames())
	})

	t.Run("zero byte count takes what is available", func(t *testing.T) {
		rb, err := NewGPURingBuffer(newTestBackend(t), "ring", metadata.BufferTargetStorage, 128)
		assert.NoError(t, err)
		r, ok := rb.Acquire(1, 0)
		assert.True(t, ok)
		assert.Equal(t, 128, len(r.Span))

		_, ok = rb.Acquire(1, 0)
		assert.False(t, ok)
	})

	t.Run("closing twice", func(t *testing.T) {
		rb, err := NewGPURingBuffer(newTestBackend(t), "ring", metadata.BufferTargetStorage, 128)
		assert.NoError(t, err)
		r, ok := rb.Acquire(1, 8)
		assert.True(t, ok)
		assert.NoError(t, rb.Close(&r, 8))
		assert.True(t, errors.Is(rb.Close(&r, 8), ErrRangeClosed))
	})

	t.Run("release", func(t *testing.T) {
		backend := newTestBackend(t)
		rb, err := NewGPURingBuffer(backend, "ring", metadata.BufferTargetStorage, 128)
		assert.NoError(t, err)
		assert.NoError(t, rb.Release())
		assert.Equal(t, 0, backend.LiveBuffers())
	})
}
