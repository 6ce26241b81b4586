package buffers

import (
	"bytes"
	"errors"
	stdmath "math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/memory"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func newTestWriter(t *testing.T, capacity uint64) (*BufferWriter, *metadata.RenderBuffer, *memory.Backend) {
	t.Helper()
	backend := newTestBackend(t)
	buffer, err := backend.RenderBufferCreate(&metadata.BufferCreateInfo{Name: "writer", Target: metadata.BufferTargetStorage, Capacity: capacity})
	assert.NoError(t, err)
	return NewBufferWriter(backend, buffer), buffer, backend
}

func TestBufferWriterAlignment(t *testing.T) {
	for _, kind := range []metadata.AlignmentKind{metadata.AlignNone, metadata.AlignStorage, metadata.AlignUniform} {
		for _, lead := range []uint64{0, 1, 15, 16, 17, 100, 255, 256, 257} {
			w, _, backend := newTestWriter(t, 4096)
			alignment := backend.Limits().Alignment(kind)

			_, err := w.BeginAligned(1, 0)
			assert.NoError(t, err)
			assert.NoError(t, w.Advance(lead))
			_, err = w.End()
			assert.NoError(t, err)

			before := w.WriteOffset
			_, err = w.Begin(kind, 64)
			assert.NoError(t, err)
			first := w.Range.FirstByteOffset
			assert.Equal(t, uint64(0), first%alignment)
			assert.True(t, first >= before)
			assert.True(t, first-before < alignment)
		}
	}
}

func TestBufferWriterBracket(t *testing.T) {
	t.Run("writes inside a bracket are packed", func(t *testing.T) {
		w, buffer, _ := newTestWriter(t, 1024)

		span, err := w.Begin(metadata.AlignUniform, 0)
		assert.NoError(t, err)
		assert.Equal(t, 1024, len(span))

		n, err := w.Write([]byte{1, 2, 3})
		assert.NoError(t, err)
		assert.Equal(t, 3, n)
		_, err = w.Write([]byte{4, 5})
		assert.NoError(t, err)
		assert.NoError(t, w.WriteAt(0, []byte{9}))

		r, err := w.End()
		assert.NoError(t, err)
		assert.Equal(t, metadata.BufferRange{FirstByteOffset: 0, ByteCount: 5}, r)
		assert.Equal(t, []byte{9, 2, 3, 4, 5}, buffer.Memory[:5])

		_, err = w.Begin(metadata.AlignUniform, 0)
		assert.NoError(t, err)
		assert.Equal(t, uint64(256), w.Range.FirstByteOffset)
	})

	t.Run("nested begin is rejected", func(t *testing.T) {
		w, _, _ := newTestWriter(t, 1024)
		_, err := w.Begin(metadata.AlignNone, 0)
		assert.NoError(t, err)
		_, _ = w.Write([]byte{1, 2})
		before := *w

		_, err = w.Begin(metadata.AlignStorage, 0)
		assert.True(t, errors.Is(err, ErrBracketOpen))
		assert.Equal(t, before.Range, w.Range)
		assert.Equal(t, before.WriteOffset, w.WriteOffset)
		assert.Equal(t, before.WriteEnd, w.WriteEnd)
	})

	t.Run("writes outside a bracket are rejected", func(t *testing.T) {
		w, _, _ := newTestWriter(t, 64)
		_, err := w.Write([]byte{1})
		assert.True(t, errors.Is(err, ErrNoOpenBracket))
		_, err = w.End()
		assert.True(t, errors.Is(err, ErrNoOpenBracket))
		assert.True(t, errors.Is(w.Advance(1), ErrNoOpenBracket))
	})

	t.Run("overflow leaves the writer untouched", func(t *testing.T) {
		w, buffer, _ := newTestWriter(t, 64)
		_, err := w.Begin(metadata.AlignNone, 8)
		assert.NoError(t, err)
		_, err = w.Write(bytes.Repeat([]byte{7}, 6))
		assert.NoError(t, err)

		n, err := w.Write([]byte{1, 2, 3})
		assert.True(t, errors.Is(err, ErrBufferOverflow))
		assert.Equal(t, 0, n)
		assert.Equal(t, uint64(6), w.WriteOffset)
		assert.Equal(t, byte(0), buffer.Memory[6])
		assert.True(t, errors.Is(w.WriteAt(7, []byte{1, 2}), ErrBufferOverflow))
		assert.Equal(t, uint64(2), w.Remaining())
	})

	t.Run("huge counts do not wrap around", func(t *testing.T) {
		w, _, _ := newTestWriter(t, 64)
		_, err := w.BeginAligned(1, 0)
		assert.NoError(t, err)
		_, err = w.Write([]byte{1, 2, 3, 4, 5})
		assert.NoError(t, err)

		assert.True(t, errors.Is(w.Advance(stdmath.MaxUint64-2), ErrBufferOverflow))
		assert.Equal(t, uint64(5), w.WriteOffset)
		assert.True(t, errors.Is(w.WriteAt(stdmath.MaxUint64, []byte{9}), ErrBufferOverflow))
		assert.True(t, errors.Is(w.WriteAt(1, make([]byte, 64)), ErrBufferOverflow))

		r, err := w.End()
		assert.NoError(t, err)
		assert.Equal(t, metadata.BufferRange{FirstByteOffset: 0, ByteCount: 5}, r)
	})

	t.Run("aligned start past the end overflows", func(t *testing.T) {
		w, _, _ := newTestWriter(t, 300)
		_, err := w.BeginAligned(1, 0)
		assert.NoError(t, err)
		assert.NoError(t, w.Advance(10))
		_, err = w.End()
		assert.NoError(t, err)

		_, err = w.BeginAligned(512, 16)
		assert.True(t, errors.Is(err, ErrBufferOverflow))
		assert.False(t, w.IsOpen())
		assert.Equal(t, uint64(10), w.WriteOffset)
	})

	t.Run("end flushes the written range", func(t *testing.T) {
		w, _, backend := newTestWriter(t, 64)
		_, err := w.Begin(metadata.AlignNone, 0)
		assert.NoError(t, err)
		_, _ = w.Write([]byte{1, 2, 3, 4})
		_, err = w.End()
		assert.NoError(t, err)

		flushes := backend.CommandsOfKind(memory.CommandFlush)
		assert.Equal(t, 1, len(flushes))
		assert.Equal(t, metadata.BufferRange{FirstByteOffset: 0, ByteCount: 4}, flushes[0].Range)
	})

	t.Run("reset zeroes everything", func(t *testing.T) {
		w, _, _ := newTestWriter(t, 64)
		_, _ = w.Begin(metadata.AlignNone, 0)
		_, _ = w.Write([]byte{1})
		w.Reset()
		assert.False(t, w.IsOpen())
		assert.Equal(t, metadata.BufferRange{}, w.Range)
		assert.Equal(t, uint64(0), w.WriteOffset)
		assert.Equal(t, uint64(0), w.WriteEnd)
	})
}
