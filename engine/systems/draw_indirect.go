package systems

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// DrawIndirectCommandSize is the size of an indexed indirect draw command.
const DrawIndirectCommandSize = 5 * 4

/** @brief An indexed draw, in the layout the GPU reads from an indirect buffer. */
type DrawIndirectCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	BaseInstance  uint32
}

func (c DrawIndirectCommand) appendBytes(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, c.IndexCount)
	dst = binary.LittleEndian.AppendUint32(dst, c.InstanceCount)
	dst = binary.LittleEndian.AppendUint32(dst, c.FirstIndex)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(c.BaseVertex))
	return binary.LittleEndian.AppendUint32(dst, c.BaseInstance)
}

type DrawIndirectSystemConfig struct {
	MaxDrawCount       int
	FrameResourceCount int
}

// DrawIndirectSystem packs draw commands. Commands need no alignment beyond
// their own size.
type DrawIndirectSystem struct {
	Config *DrawIndirectSystemConfig
	mu     sync.Mutex
	buffer *buffers.MultiBuffer
}

func NewDrawIndirectSystem(backend buffers.Backend, config *DrawIndirectSystemConfig) (*DrawIndirectSystem, error) {
	if config.MaxDrawCount <= 0 {
		err := fmt.Errorf("func NewDrawIndirectSystem - config.MaxDrawCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	mb, err := buffers.NewMultiBuffer(backend, "draw indirect", config.FrameResourceCount)
	if err != nil {
		return nil, err
	}
	ds := &DrawIndirectSystem{Config: config, buffer: mb}
	if err := ds.allocate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func (ds *DrawIndirectSystem) allocate() error {
	return ds.buffer.Allocate(metadata.BufferTargetDrawIndirect, 0, uint64(DrawIndirectCommandSize*ds.Config.MaxDrawCount))
}

// Update writes draws into the current frame resource. The returned range
// and draw count are what the backend's DrawIndirect takes.
func (ds *DrawIndirectSystem) Update(draws []DrawIndirectCommand) (metadata.BufferRange, uint32, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	r, err := upload(ds.buffer, metadata.AlignNone, DrawIndirectCommandSize, len(draws), func(dst []byte, i int) []byte {
		return draws[i].appendBytes(dst)
	})
	if err != nil {
		return r, 0, err
	}
	return r, uint32(len(draws)), nil
}

func (ds *DrawIndirectSystem) Buffer() *buffers.MultiBuffer {
	return ds.buffer
}

func (ds *DrawIndirectSystem) Shutdown() error {
	return ds.buffer.Release()
}
