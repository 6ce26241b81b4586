package systems

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// Binding points of the blocks written by the systems.
const (
	CameraBindingPoint   uint32 = 0
	MaterialBindingPoint uint32 = 1
	JointBindingPoint    uint32 = 2
)

// upload writes count entries of entrySize bytes into a single bracket of the
// current slot of mb and returns the range written. encode appends entry i
// to dst.
func upload(mb *buffers.MultiBuffer, kind metadata.AlignmentKind, entrySize, count int, encode func(dst []byte, i int) []byte) (metadata.BufferRange, error) {
	if count == 0 {
		return metadata.BufferRange{}, nil
	}

	w := mb.Writer()
	byteCount := uint64(entrySize * count)
	span, err := w.Begin(kind, byteCount)
	if err != nil {
		return metadata.BufferRange{}, err
	}
	if uint64(len(span)) < byteCount {
		_, _ = w.End()
		return metadata.BufferRange{}, fmt.Errorf("%w: %d entries of %d bytes do not fit in '%s'", buffers.ErrBufferOverflow, count, entrySize, mb.Name())
	}

	out := span[:0]
	for i := 0; i < count; i++ {
		out = encode(out, i)
	}
	if err := w.Advance(uint64(len(out))); err != nil {
		_, _ = w.End()
		return metadata.BufferRange{}, err
	}
	return w.End()
}
