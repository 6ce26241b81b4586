package systems

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// MaterialEntrySize is the size of one material in the storage buffer.
const MaterialEntrySize = math.Vec4Size + 16

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief Shading parameters of a material. */
type MaterialData struct {
	Name      string
	BaseColor math.Vec4
	Roughness float32
	Metallic  float32
	/** @brief Index of the base color texture, or InvalidTextureIndex. */
	BaseColorTexture uint32
}

const InvalidTextureIndex uint32 = stdmath.MaxUint32

func DefaultMaterial() MaterialData {
	return MaterialData{
		Name:             DefaultMaterialName,
		BaseColor:        math.NewVec4(1, 1, 1, 1),
		Roughness:        0.5,
		BaseColorTexture: InvalidTextureIndex,
	}
}

func (m MaterialData) appendBytes(dst []byte) []byte {
	dst = m.BaseColor.AppendBytes(dst)
	dst = binary.LittleEndian.AppendUint32(dst, stdmath.Float32bits(m.Roughness))
	dst = binary.LittleEndian.AppendUint32(dst, stdmath.Float32bits(m.Metallic))
	dst = binary.LittleEndian.AppendUint32(dst, m.BaseColorTexture)
	// Pad to 16 bytes.
	return binary.LittleEndian.AppendUint32(dst, 0)
}

/** @brief The material buffer system configuration. */
type MaterialSystemConfig struct {
	MaxMaterialCount   int
	FrameResourceCount int
}

// MaterialSystem uploads all materials of a frame as one storage block.
type MaterialSystem struct {
	Config *MaterialSystemConfig
	mu     sync.Mutex
	buffer *buffers.MultiBuffer
}

func NewMaterialSystem(backend buffers.Backend, config *MaterialSystemConfig) (*MaterialSystem, error) {
	if config.MaxMaterialCount <= 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	mb, err := buffers.NewMultiBuffer(backend, "material", config.FrameResourceCount)
	if err != nil {
		return nil, err
	}
	ms := &MaterialSystem{Config: config, buffer: mb}
	if err := ms.allocate(backend.Limits()); err != nil {
		return nil, err
	}
	return ms, nil
}

func (ms *MaterialSystem) allocate(limits metadata.Limits) error {
	byteCount := uint64(MaterialEntrySize*ms.Config.MaxMaterialCount) + limits.Alignment(metadata.AlignStorage)
	return ms.buffer.Allocate(metadata.BufferTargetStorage, MaterialBindingPoint, byteCount)
}

// Update writes materials into the current frame resource. Material i is
// found at index i of the block.
func (ms *MaterialSystem) Update(materials []MaterialData) (metadata.BufferRange, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(materials) > ms.Config.MaxMaterialCount {
		return metadata.BufferRange{}, fmt.Errorf("%w: %d materials, max %d", buffers.ErrBufferOverflow, len(materials), ms.Config.MaxMaterialCount)
	}
	return upload(ms.buffer, metadata.AlignStorage, MaterialEntrySize, len(materials), func(dst []byte, i int) []byte {
		return materials[i].appendBytes(dst)
	})
}

func (ms *MaterialSystem) Bind(r metadata.BufferRange) error {
	return ms.buffer.Bind(r)
}

func (ms *MaterialSystem) Buffer() *buffers.MultiBuffer {
	return ms.buffer
}

func (ms *MaterialSystem) Shutdown() error {
	return ms.buffer.Release()
}
