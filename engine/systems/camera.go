package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// CameraBlockSize is the size of one camera uniform block: projection, view
// and the camera position.
const CameraBlockSize = 2*math.Mat4Size + math.Vec4Size

/** @brief What the shaders know about a camera. */
type CameraData struct {
	Projection math.Mat4
	View       math.Mat4
	Position   math.Vec3
	/** @brief Exposure, written in the w component of the position. */
	Exposure float32
}

// NewCameraData builds a perspective camera looking from position to target.
func NewCameraData(position, target math.Vec3, fovDegrees float32, viewport metadata.Viewport) CameraData {
	return CameraData{
		Projection: math.NewMat4Perspective(math.DegToRad(fovDegrees), viewport.AspectRatio(), 0.1, 1000.0),
		View:       math.NewMat4LookAt(position, target, math.NewVec3(0, 1, 0)),
		Position:   position,
		Exposure:   1.0,
	}
}

// AppendBytes appends the uniform block layout of c to dst.
func (c CameraData) AppendBytes(dst []byte) []byte {
	dst = c.Projection.AppendBytes(dst)
	dst = c.View.AppendBytes(dst)
	return c.Position.ToVec4(c.Exposure).AppendBytes(dst)
}

/** @brief The camera buffer system configuration. */
type CameraSystemConfig struct {
	/** @brief The maximum number of cameras written in a single frame. */
	MaxCameraCount int
	/** @brief The number of rotating frame resources. */
	FrameResourceCount int
}

// CameraSystem uploads camera uniform blocks. Every camera gets its own
// bracket so it can be bound on its own. Update may be called from
// concurrently executing passes.
type CameraSystem struct {
	Config *CameraSystemConfig
	mu     sync.Mutex
	buffer *buffers.MultiBuffer
}

func NewCameraSystem(backend buffers.Backend, config *CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount <= 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	mb, err := buffers.NewMultiBuffer(backend, "camera", config.FrameResourceCount)
	if err != nil {
		return nil, err
	}
	cs := &CameraSystem{Config: config, buffer: mb}
	if err := cs.allocate(backend.Limits()); err != nil {
		return nil, err
	}
	return cs, nil
}

// Every block may need a full alignment worth of padding.
func (cs *CameraSystem) allocate(limits metadata.Limits) error {
	stride := math.AlignUp(uint64(CameraBlockSize), limits.Alignment(metadata.AlignUniform))
	return cs.buffer.Allocate(metadata.BufferTargetUniform, CameraBindingPoint, stride*uint64(cs.Config.MaxCameraCount))
}

// Update writes one uniform block per camera into the current frame
// resource and returns the range of each.
func (cs *CameraSystem) Update(cameras []CameraData) ([]metadata.BufferRange, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	ranges := make([]metadata.BufferRange, 0, len(cameras))
	for i := range cameras {
		r, err := upload(cs.buffer, metadata.AlignUniform, CameraBlockSize, 1, func(dst []byte, _ int) []byte {
			return cameras[i].AppendBytes(dst)
		})
		if err != nil {
			return ranges, fmt.Errorf("camera %d: %w", i, err)
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// Bind binds the camera block at r.
func (cs *CameraSystem) Bind(r metadata.BufferRange) error {
	return cs.buffer.Bind(r)
}

func (cs *CameraSystem) Buffer() *buffers.MultiBuffer {
	return cs.buffer
}

func (cs *CameraSystem) Shutdown() error {
	return cs.buffer.Release()
}
