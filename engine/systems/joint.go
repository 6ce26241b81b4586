package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type JointSystemConfig struct {
	MaxJointCount      int
	FrameResourceCount int
}

// JointSystem uploads skinning matrices. Every skin writes its own block,
// so a frame may call Update once per skinned mesh.
type JointSystem struct {
	Config *JointSystemConfig
	mu     sync.Mutex
	buffer *buffers.MultiBuffer
}

func NewJointSystem(backend buffers.Backend, config *JointSystemConfig) (*JointSystem, error) {
	if config.MaxJointCount <= 0 {
		err := fmt.Errorf("func NewJointSystem - config.MaxJointCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	mb, err := buffers.NewMultiBuffer(backend, "joint", config.FrameResourceCount)
	if err != nil {
		return nil, err
	}
	js := &JointSystem{Config: config, buffer: mb}
	if err := js.allocate(backend.Limits()); err != nil {
		return nil, err
	}
	return js, nil
}

func (js *JointSystem) allocate(limits metadata.Limits) error {
	byteCount := uint64(math.Mat4Size*js.Config.MaxJointCount) + limits.Alignment(metadata.AlignStorage)
	return js.buffer.Allocate(metadata.BufferTargetStorage, JointBindingPoint, byteCount)
}

// Update writes the joint matrices of one skin into the current frame
// resource.
func (js *JointSystem) Update(joints []math.Mat4) (metadata.BufferRange, error) {
	js.mu.Lock()
	defer js.mu.Unlock()
	return upload(js.buffer, metadata.AlignStorage, math.Mat4Size, len(joints), func(dst []byte, i int) []byte {
		return joints[i].AppendBytes(dst)
	})
}

func (js *JointSystem) Bind(r metadata.BufferRange) error {
	return js.buffer.Bind(r)
}

func (js *JointSystem) Buffer() *buffers.MultiBuffer {
	return js.buffer
}

func (js *JointSystem) Shutdown() error {
	return js.buffer.Release()
}
