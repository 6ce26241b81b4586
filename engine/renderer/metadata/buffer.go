package metadata

import "fmt"

/** @brief What a buffer is bound as when the draw that follows reads it. */
type BufferTarget int

const (
	/** @brief Buffer is used for index data. */
	BufferTargetIndex BufferTarget = iota
	/** @brief Buffer is used for vertex data. */
	BufferTargetVertex
	/** @brief Buffer is used for uniform blocks. */
	BufferTargetUniform
	/** @brief Buffer is used for shader storage blocks. */
	BufferTargetStorage
	/** @brief Buffer holds indirect draw commands. */
	BufferTargetDrawIndirect
)

func (t BufferTarget) String() string {
	switch t {
	case BufferTargetIndex:
		return "index"
	case BufferTargetVertex:
		return "vertex"
	case BufferTargetUniform:
		return "uniform"
	case BufferTargetStorage:
		return "storage"
	case BufferTargetDrawIndirect:
		return "draw_indirect"
	}
	return fmt.Sprintf("BufferTarget(%d)", int(t))
}

/** @brief Selects which offset alignment a writer bracket starts on. */
type AlignmentKind int

const (
	AlignNone AlignmentKind = iota
	AlignUniform
	AlignStorage
)

/** @brief A contiguous region of a buffer. */
type BufferRange struct {
	FirstByteOffset uint64
	ByteCount       uint64
}

// End returns the offset one past the last byte of the range.
func (r BufferRange) End() uint64 {
	return r.FirstByteOffset + r.ByteCount
}

func (r BufferRange) IsEmpty() bool {
	return r.ByteCount == 0
}

// Overlaps reports whether r and other share at least one byte.
func (r BufferRange) Overlaps(other BufferRange) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.FirstByteOffset < other.End() && other.FirstByteOffset < r.End()
}

func (r BufferRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.FirstByteOffset, r.End())
}

/** @brief Device limits the upload paths have to honor. */
type Limits struct {
	/** @brief Offset alignment required when binding uniform blocks. */
	UniformBufferOffsetAlignment uint64
	/** @brief Offset alignment required when binding storage blocks. */
	StorageBufferOffsetAlignment uint64
}

// Alignment returns the offset alignment for kind. AlignNone yields 1.
func (l Limits) Alignment(kind AlignmentKind) uint64 {
	switch kind {
	case AlignUniform:
		return max(l.UniformBufferOffsetAlignment, 1)
	case AlignStorage:
		return max(l.StorageBufferOffsetAlignment, 1)
	}
	return 1
}

type BufferCreateInfo struct {
	Name     string
	Target   BufferTarget
	Capacity uint64
}

/**
 * @brief A buffer created by the renderer backend. Memory is the persistently
 * mapped, host visible view of the buffer contents.
 */
type RenderBuffer struct {
	Name     string
	Target   BufferTarget
	Capacity uint64
	Memory   []byte
	/** @brief Contains internal data for the renderer-API-specific buffer. */
	InternalData interface{}
}
