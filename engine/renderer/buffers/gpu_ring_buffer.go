package buffers

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/containers"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// MaxPendingSyncFrames bounds how many frames may be waiting for completion
// at the same time.
const MaxPendingSyncFrames = 2 * core.MaxFrameResourceCount

// RingRange is a span handed out by GPURingBuffer.Acquire.
type RingRange struct {
	// Span is the mapped memory of the range.
	Span       []byte
	WrapCount  uint64
	ByteOffset uint64
	closed     bool
}

func (r *RingRange) IsValid() bool {
	return r != nil && r.Span != nil
}

type syncEntry struct {
	waitingForFrame uint64
	wrapCount       uint64
	byteOffset      uint64
	byteCount       uint64
}

// GPURingBuffer streams transient data through a single buffer. Writes move
// forward and wrap to the start once the GPU is done with it. Completion is
// tracked per frame. Whatever was written while frame F was current may be
// overwritten once FrameCompleted(F) has been called.
//
// The write cursor may lap the read cursor by at most one wrap.
type GPURingBuffer struct {
	mu            sync.Mutex
	backend       Backend
	buffer        *metadata.RenderBuffer
	frame         uint64
	writeWrap     uint64
	writePosition uint64
	readWrap      uint64
	readOffset    uint64
	syncEntries   *containers.RingQueue[syncEntry]
}

func NewGPURingBuffer(backend Backend, name string, target metadata.BufferTarget, capacity uint64) (*GPURingBuffer, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidCapacity, name)
	}
	buffer, err := backend.RenderBufferCreate(&metadata.BufferCreateInfo{
		Name:     name,
		Target:   target,
		Capacity: capacity,
	})
	if err != nil {
		return nil, err
	}
	entries, err := containers.NewRingQueue[syncEntry](MaxPendingSyncFrames)
	if err != nil {
		return nil, err
	}
	// The reader starts one wrap behind at the end of the buffer, so the
	// whole buffer is writable.
	return &GPURingBuffer{
		backend:     backend,
		buffer:      buffer,
		writeWrap:   1,
		readWrap:    0,
		readOffset:  capacity,
		syncEntries: entries,
	}, nil
}

func (rb *GPURingBuffer) Buffer() *metadata.RenderBuffer {
	return rb.buffer
}

// SetFrame sets the frame that ranges closed from now on are attributed to.
func (rb *GPURingBuffer) SetFrame(frame uint64) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.frame = frame
}

// available returns the alignment padding and the bytes writable without
// wrapping, and the bytes writable after a wrap.
func (rb *GPURingBuffer) available(alignment uint64) (padding, withoutWrap, withWrap uint64) {
	aligned := math.AlignUp(rb.writePosition, alignment)
	padding = aligned - rb.writePosition

	switch {
	case rb.writeWrap == rb.readWrap+1:
		// The reader is still in the previous lap, only the gap up to it is free.
		withoutWrap = rb.readOffset - rb.writePosition
		withWrap = 0
	case rb.writeWrap == rb.readWrap:
		withoutWrap = rb.buffer.Capacity - rb.writePosition
		withWrap = rb.readOffset
	default:
		core.LogFatal("ring buffer '%s': write wrap %d, read wrap %d", rb.buffer.Name, rb.writeWrap, rb.readWrap)
	}

	if withoutWrap > padding {
		withoutWrap -= padding
	} else {
		padding = 0
		withoutWrap = 0
	}
	return padding, withoutWrap, withWrap
}

// Acquire reserves byteCount bytes starting on alignment. A byteCount of
// zero reserves as much as is currently available. It returns false when
// the GPU still holds too much of the buffer.
func (rb *GPURingBuffer) Acquire(alignment, byteCount uint64) (RingRange, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	padding, withoutWrap, withWrap := rb.available(alignment)
	if byteCount == 0 {
		byteCount = max(withoutWrap, withWrap)
		if byteCount == 0 {
			return RingRange{}, false
		}
	}

	wrap := byteCount > withoutWrap
	if wrap && byteCount > withWrap {
		return RingRange{}, false
	}

	if wrap {
		rb.writeWrap++
		rb.writePosition = 0
	} else {
		rb.writePosition += padding
	}

	r := RingRange{
		Span:       rb.buffer.Memory[rb.writePosition : rb.writePosition+byteCount],
		WrapCount:  rb.writeWrap,
		ByteOffset: rb.writePosition,
	}
	rb.writePosition += byteCount
	rb.sanityCheck()
	return r, true
}

// Close flushes the first written bytes of r and makes the range wait for
// the current frame.
func (rb *GPURingBuffer) Close(r *RingRange, written uint64) error {
	if !r.IsValid() {
		return nil
	}
	if r.closed {
		return ErrRangeClosed
	}
	r.closed = true
	written = min(written, uint64(len(r.Span)))

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if written > 0 {
		br := metadata.BufferRange{FirstByteOffset: r.ByteOffset, ByteCount: written}
		if err := rb.backend.RenderBufferFlush(rb.buffer, br); err != nil {
			return err
		}
	}
	return rb.makeSyncEntry(r.WrapCount, r.ByteOffset, uint64(len(r.Span)))
}

// Entries are queued in frame order, so only the newest one can belong to the
// current frame and wrap.
func (rb *GPURingBuffer) makeSyncEntry(wrapCount, byteOffset, byteCount uint64) error {
	if last := rb.syncEntries.Back(); last != nil && last.waitingForFrame == rb.frame && last.wrapCount == wrapCount {
		if byteOffset+byteCount > last.byteOffset+last.byteCount {
			last.byteOffset = byteOffset
			last.byteCount = byteCount
		}
		return nil
	}

	err := rb.syncEntries.Enqueue(syncEntry{
		waitingForFrame: rb.frame,
		wrapCount:       wrapCount,
		byteOffset:      byteOffset,
		byteCount:       byteCount,
	})
	if err != nil {
		return fmt.Errorf("%w: '%s' at frame %d", ErrTooManySyncFrames, rb.buffer.Name, rb.frame)
	}
	return nil
}

// FrameCompleted releases everything written while frame, or any earlier
// frame, was current.
func (rb *GPURingBuffer) FrameCompleted(frame uint64) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for !rb.syncEntries.IsEmpty() {
		entry, _ := rb.syncEntries.Peek()
		if entry.waitingForFrame > frame {
			break
		}
		_, _ = rb.syncEntries.Dequeue()

		end := entry.byteOffset + entry.byteCount
		if entry.wrapCount > rb.readWrap || (entry.wrapCount == rb.readWrap && end > rb.readOffset) {
			rb.readWrap = entry.wrapCount
			rb.readOffset = end
			rb.sanityCheck()
		}
	}
}

// PendingFrames returns how many sync entries still wait for completion.
func (rb *GPURingBuffer) PendingFrames() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.syncEntries.Len()
}

// Release destroys the backing buffer.
func (rb *GPURingBuffer) Release() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.buffer == nil {
		return nil
	}
	err := rb.backend.RenderBufferDestroy(rb.buffer)
	rb.buffer = nil
	return err
}

func (rb *GPURingBuffer) sanityCheck() {
	if rb.writePosition > rb.buffer.Capacity {
		core.LogFatal("ring buffer '%s': write position %d past capacity %d", rb.buffer.Name, rb.writePosition, rb.buffer.Capacity)
	}
	switch {
	case rb.writeWrap == rb.readWrap+1:
		if rb.readOffset < rb.writePosition {
			core.LogFatal("ring buffer '%s': writer overtook reader (%d < %d)", rb.buffer.Name, rb.readOffset, rb.writePosition)
		}
	case rb.writeWrap == rb.readWrap:
		if rb.writePosition < rb.readOffset {
			core.LogFatal("ring buffer '%s': reader ahead of writer (%d > %d)", rb.buffer.Name, rb.readOffset, rb.writePosition)
		}
	default:
		core.LogFatal("ring buffer '%s': write wrap %d, read wrap %d", rb.buffer.Name, rb.writeWrap, rb.readWrap)
	}
}
