package buffers

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// BufferWriter sub-allocates aligned ranges from one buffer. Every
// allocation is a Begin/End bracket. Only the start of a bracket is aligned,
// writes inside the bracket are packed.
//
// A BufferWriter is not safe for concurrent use.
type BufferWriter struct {
	// Range is the bracket currently open, or the last one closed.
	Range metadata.BufferRange
	// WriteOffset is the absolute offset of the next byte to be written.
	WriteOffset uint64
	// WriteEnd is the absolute offset one past the last writable byte of the
	// open bracket.
	WriteEnd uint64

	backend Backend
	buffer  *metadata.RenderBuffer
	open    bool
}

func NewBufferWriter(backend Backend, buffer *metadata.RenderBuffer) *BufferWriter {
	return &BufferWriter{
		backend: backend,
		buffer:  buffer,
	}
}

// Buffer returns the buffer the writer is bound to.
func (w *BufferWriter) Buffer() *metadata.RenderBuffer {
	return w.buffer
}

// SetBuffer rebinds the writer and resets it.
func (w *BufferWriter) SetBuffer(buffer *metadata.RenderBuffer) {
	w.buffer = buffer
	w.Reset()
}

func (w *BufferWriter) IsOpen() bool {
	return w.open
}

// Begin opens a bracket aligned for kind. See BeginAligned.
func (w *BufferWriter) Begin(kind metadata.AlignmentKind, maxByteCount uint64) ([]byte, error) {
	return w.BeginAligned(w.backend.Limits().Alignment(kind), maxByteCount)
}

// BeginAligned aligns WriteOffset up to alignment, opens a bracket there and
// returns the writable span. The span ends maxByteCount bytes after the
// aligned start, or at the end of the buffer, whichever comes first. A
// maxByteCount of zero means the rest of the buffer.
func (w *BufferWriter) BeginAligned(alignment, maxByteCount uint64) ([]byte, error) {
	if w.open {
		return nil, fmt.Errorf("%w: %s", ErrBracketOpen, w.name())
	}
	if w.buffer == nil {
		return nil, ErrNotAllocated
	}

	capacity := w.buffer.Capacity
	start := math.AlignUp(w.WriteOffset, alignment)
	if start > capacity || (maxByteCount > 0 && start == capacity) {
		return nil, fmt.Errorf("%w: aligned start %d, capacity %d in '%s'", ErrBufferOverflow, start, capacity, w.name())
	}

	end := capacity
	if maxByteCount > 0 && maxByteCount < capacity-start {
		end = start + maxByteCount
	}

	w.WriteOffset = start
	w.WriteEnd = end
	w.Range = metadata.BufferRange{FirstByteOffset: start}
	w.open = true
	return w.buffer.Memory[start:end], nil
}

// Write copies p at WriteOffset and advances past it. The write is
// rejected as a whole when it does not fit in the open bracket.
func (w *BufferWriter) Write(p []byte) (int, error) {
	if err := w.check(w.WriteOffset, uint64(len(p))); err != nil {
		return 0, err
	}
	n := copy(w.buffer.Memory[w.WriteOffset:], p)
	w.WriteOffset += uint64(n)
	return n, nil
}

// WriteAt copies p at relOffset from the start of the open bracket. The
// cursor is not moved.
func (w *BufferWriter) WriteAt(relOffset uint64, p []byte) error {
	if w.open && relOffset > w.WriteEnd-w.Range.FirstByteOffset {
		return fmt.Errorf("%w: offset %d past the bracket in '%s'", ErrBufferOverflow, relOffset, w.name())
	}
	at := w.Range.FirstByteOffset + relOffset
	if err := w.check(at, uint64(len(p))); err != nil {
		return err
	}
	copy(w.buffer.Memory[at:], p)
	return nil
}

// Advance moves the cursor forward by n bytes, typically after the caller
// filled the span returned by Begin directly.
func (w *BufferWriter) Advance(n uint64) error {
	if err := w.check(w.WriteOffset, n); err != nil {
		return err
	}
	w.WriteOffset += n
	return nil
}

// Remaining returns how many bytes can still be written in the open bracket.
func (w *BufferWriter) Remaining() uint64 {
	if !w.open {
		return 0
	}
	return w.WriteEnd - w.WriteOffset
}

// End closes the bracket and flushes what was written in it.
func (w *BufferWriter) End() (metadata.BufferRange, error) {
	if !w.open {
		return metadata.BufferRange{}, fmt.Errorf("%w: %s", ErrNoOpenBracket, w.name())
	}
	w.open = false
	w.Range.ByteCount = w.WriteOffset - w.Range.FirstByteOffset
	if w.Range.IsEmpty() {
		return w.Range, nil
	}
	if err := w.backend.RenderBufferFlush(w.buffer, w.Range); err != nil {
		return w.Range, err
	}
	return w.Range, nil
}

// Reset zeroes all offsets and the range and drops any open bracket.
func (w *BufferWriter) Reset() {
	w.Range = metadata.BufferRange{}
	w.WriteOffset = 0
	w.WriteEnd = 0
	w.open = false
}

func (w *BufferWriter) check(at, n uint64) error {
	if !w.open {
		return fmt.Errorf("%w: %s", ErrNoOpenBracket, w.name())
	}
	// n is compared against the room left so that huge counts cannot wrap.
	if at < w.Range.FirstByteOffset || at > w.WriteEnd || n > w.WriteEnd-at {
		return fmt.Errorf("%w: %d bytes at %d, bracket ends at %d in '%s'", ErrBufferOverflow, n, at, w.WriteEnd, w.name())
	}
	return nil
}

func (w *BufferWriter) name() string {
	if w.buffer == nil {
		return "<unallocated>"
	}
	return w.buffer.Name
}
