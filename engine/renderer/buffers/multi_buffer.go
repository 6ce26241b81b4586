package buffers

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// MultiBuffer rotates writes over a fixed number of frame resources. The
// slot written in frame F is not written again before frame F+N, which gives
// the GPU N-1 frames to consume it without explicit synchronization.
//
// A MultiBuffer is meant to be driven from the render goroutine only.
type MultiBuffer struct {
	name         string
	backend      Backend
	slotCount    int
	buffers      []*metadata.RenderBuffer
	target       metadata.BufferTarget
	bindingPoint uint32
	capacity     uint64
	currentSlot  int
	writer       *BufferWriter
}

// NewMultiBuffer creates an unallocated multi buffer. A frameResourceCount
// of zero selects core.DefaultFrameResourceCount.
func NewMultiBuffer(backend Backend, name string, frameResourceCount int) (*MultiBuffer, error) {
	if frameResourceCount == 0 {
		frameResourceCount = core.DefaultFrameResourceCount
	}
	if frameResourceCount < 0 || frameResourceCount > core.MaxFrameResourceCount {
		return nil, fmt.Errorf("%w: %d for '%s'", ErrInvalidSlotCount, frameResourceCount, name)
	}
	return &MultiBuffer{
		name:      name,
		backend:   backend,
		slotCount: frameResourceCount,
		writer:    NewBufferWriter(backend, nil),
	}, nil
}

// Allocate (re)creates every slot with byteCount bytes. Calling it again
// with unchanged parameters does nothing. Changing only the binding point
// keeps the existing slots.
func (m *MultiBuffer) Allocate(target metadata.BufferTarget, bindingPoint uint32, byteCount uint64) error {
	if m.writer.IsOpen() {
		return fmt.Errorf("%w: '%s'", ErrWriterOpen, m.name)
	}
	if byteCount == 0 {
		return fmt.Errorf("%w: '%s'", ErrInvalidCapacity, m.name)
	}

	if m.IsAllocated() && m.target == target && m.capacity == byteCount {
		m.bindingPoint = bindingPoint
		return nil
	}

	if err := m.Release(); err != nil {
		return err
	}

	buffers := make([]*metadata.RenderBuffer, 0, m.slotCount)
	for slot := 0; slot < m.slotCount; slot++ {
		buffer, err := m.backend.RenderBufferCreate(&metadata.BufferCreateInfo{
			Name:     fmt.Sprintf("%s %d", m.name, slot),
			Target:   target,
			Capacity: byteCount,
		})
		if err != nil {
			for _, b := range buffers {
				err = multierr.Append(err, m.backend.RenderBufferDestroy(b))
			}
			return err
		}
		buffers = append(buffers, buffer)
	}

	m.buffers = buffers
	m.target = target
	m.bindingPoint = bindingPoint
	m.capacity = byteCount
	m.currentSlot = 0
	m.writer.SetBuffer(m.buffers[m.currentSlot])
	core.LogDebug("multi buffer '%s': %d x %d bytes (%s, binding point %d)", m.name, m.slotCount, byteCount, target, bindingPoint)
	return nil
}

// Release destroys every slot. The multi buffer can be allocated again.
func (m *MultiBuffer) Release() error {
	var err error
	for _, b := range m.buffers {
		err = multierr.Append(err, m.backend.RenderBufferDestroy(b))
	}
	m.buffers = nil
	m.capacity = 0
	m.writer.SetBuffer(nil)
	return err
}

// NextFrame advances to the next slot and resets the writer onto it. It must
// be called once per frame before any write of that frame.
func (m *MultiBuffer) NextFrame() {
	if m.writer.IsOpen() {
		core.LogWarn("multi buffer '%s': bracket still open at next frame, dropped", m.name)
	}
	m.currentSlot = (m.currentSlot + 1) % m.slotCount
	if m.IsAllocated() {
		m.writer.SetBuffer(m.buffers[m.currentSlot])
	} else {
		m.writer.Reset()
	}
}

// Writer returns the writer bound to the current slot.
func (m *MultiBuffer) Writer() *BufferWriter {
	return m.writer
}

// CurrentBuffer returns the buffer of the current slot, or nil before
// Allocate.
func (m *MultiBuffer) CurrentBuffer() *metadata.RenderBuffer {
	if !m.IsAllocated() {
		return nil
	}
	return m.buffers[m.currentSlot]
}

// Buffer returns the buffer of an arbitrary slot.
func (m *MultiBuffer) Buffer(slot int) (*metadata.RenderBuffer, error) {
	if !m.IsAllocated() {
		return nil, fmt.Errorf("%w: '%s'", ErrNotAllocated, m.name)
	}
	if slot < 0 || slot >= m.slotCount {
		return nil, fmt.Errorf("%w: %d of %d in '%s'", ErrInvalidSlot, slot, m.slotCount, m.name)
	}
	return m.buffers[slot], nil
}

// Bind binds r of the current buffer to the configured binding point. An
// empty range has nothing to bind and is ignored.
func (m *MultiBuffer) Bind(r metadata.BufferRange) error {
	if r.IsEmpty() {
		return nil
	}
	if !m.IsAllocated() {
		return fmt.Errorf("%w: '%s'", ErrNotAllocated, m.name)
	}
	return m.backend.RenderBufferBindRange(m.buffers[m.currentSlot], m.bindingPoint, r)
}

func (m *MultiBuffer) IsAllocated() bool {
	return len(m.buffers) > 0
}

func (m *MultiBuffer) CurrentSlot() int {
	return m.currentSlot
}

func (m *MultiBuffer) SlotCount() int {
	return m.slotCount
}

func (m *MultiBuffer) Name() string {
	return m.name
}

func (m *MultiBuffer) Target() metadata.BufferTarget {
	return m.target
}

func (m *MultiBuffer) BindingPoint() uint32 {
	return m.bindingPoint
}

// Capacity returns the size of each slot in bytes.
func (m *MultiBuffer) Capacity() uint64 {
	return m.capacity
}
