package systems

import (
	"go.uber.org/multierr"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/buffers"
)

// SystemManager owns the per-frame upload systems and advances their frame
// resources together.
type SystemManager struct {
	backend buffers.Backend
	config  core.RendererConfig
	frame   uint64

	cameraSystem       *CameraSystem
	materialSystem     *MaterialSystem
	jointSystem        *JointSystem
	drawIndirectSystem *DrawIndirectSystem
}

func NewSystemManager(backend buffers.Backend, config core.RendererConfig) (*SystemManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	sm := &SystemManager{backend: backend, config: config}
	if err := sm.create(); err != nil {
		return nil, multierr.Append(err, sm.Shutdown())
	}
	return sm, nil
}

func (sm *SystemManager) create() error {
	var err error
	frames := sm.config.FrameResourceCount
	b := sm.config.Buffers

	sm.cameraSystem, err = NewCameraSystem(sm.backend, &CameraSystemConfig{
		MaxCameraCount:     b.MaxCameraCount,
		FrameResourceCount: frames,
	})
	if err != nil {
		return err
	}
	sm.materialSystem, err = NewMaterialSystem(sm.backend, &MaterialSystemConfig{
		MaxMaterialCount:   b.MaxMaterialCount,
		FrameResourceCount: frames,
	})
	if err != nil {
		return err
	}
	sm.jointSystem, err = NewJointSystem(sm.backend, &JointSystemConfig{
		MaxJointCount:      b.MaxJointCount,
		FrameResourceCount: frames,
	})
	if err != nil {
		return err
	}
	sm.drawIndirectSystem, err = NewDrawIndirectSystem(sm.backend, &DrawIndirectSystemConfig{
		MaxDrawCount:       b.MaxDrawCount,
		FrameResourceCount: frames,
	})
	return err
}

/**
 * @brief Moves every system to its next frame resource. Must be called once
 * per frame, before anything of that frame is uploaded.
 */
func (sm *SystemManager) NextFrame() {
	sm.frame++
	for _, mb := range sm.multiBuffers() {
		mb.NextFrame()
	}
}

/**
 * @brief Applies new buffer capacities. Systems whose capacity did not change
 * keep their buffers. A new frame resource count recreates every system.
 * Must be called between frames.
 *
 * @param config The new renderer configuration.
 */
func (sm *SystemManager) Reallocate(config core.RendererConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if config.FrameResourceCount != sm.config.FrameResourceCount {
		core.LogInfo("frame resource count changed from %d to %d, recreating upload buffers", sm.config.FrameResourceCount, config.FrameResourceCount)
		if err := sm.Shutdown(); err != nil {
			return err
		}
		sm.config = config
		return sm.create()
	}

	sm.config = config
	limits := sm.backend.Limits()
	b := config.Buffers
	sm.cameraSystem.Config.MaxCameraCount = b.MaxCameraCount
	sm.materialSystem.Config.MaxMaterialCount = b.MaxMaterialCount
	sm.jointSystem.Config.MaxJointCount = b.MaxJointCount
	sm.drawIndirectSystem.Config.MaxDrawCount = b.MaxDrawCount

	var err error
	err = multierr.Append(err, sm.cameraSystem.allocate(limits))
	err = multierr.Append(err, sm.materialSystem.allocate(limits))
	err = multierr.Append(err, sm.jointSystem.allocate(limits))
	err = multierr.Append(err, sm.drawIndirectSystem.allocate())
	return err
}

// Frame returns how many times NextFrame has been called.
func (sm *SystemManager) Frame() uint64 {
	return sm.frame
}

func (sm *SystemManager) Config() core.RendererConfig {
	return sm.config
}

func (sm *SystemManager) CameraSystem() *CameraSystem {
	return sm.cameraSystem
}

func (sm *SystemManager) MaterialSystem() *MaterialSystem {
	return sm.materialSystem
}

func (sm *SystemManager) JointSystem() *JointSystem {
	return sm.jointSystem
}

func (sm *SystemManager) DrawIndirectSystem() *DrawIndirectSystem {
	return sm.drawIndirectSystem
}

// Shutdown releases every buffer. Systems that were never created are
// skipped.
func (sm *SystemManager) Shutdown() error {
	var err error
	if sm.drawIndirectSystem != nil {
		err = multierr.Append(err, sm.drawIndirectSystem.Shutdown())
		sm.drawIndirectSystem = nil
	}
	if sm.jointSystem != nil {
		err = multierr.Append(err, sm.jointSystem.Shutdown())
		sm.jointSystem = nil
	}
	if sm.materialSystem != nil {
		err = multierr.Append(err, sm.materialSystem.Shutdown())
		sm.materialSystem = nil
	}
	if sm.cameraSystem != nil {
		err = multierr.Append(err, sm.cameraSystem.Shutdown())
		sm.cameraSystem = nil
	}
	return err
}

func (sm *SystemManager) multiBuffers() []*buffers.MultiBuffer {
	var out []*buffers.MultiBuffer
	if sm.cameraSystem != nil {
		out = append(out, sm.cameraSystem.buffer)
	}
	if sm.materialSystem != nil {
		out = append(out, sm.materialSystem.buffer)
	}
	if sm.jointSystem != nil {
		out = append(out, sm.jointSystem.buffer)
	}
	if sm.drawIndirectSystem != nil {
		out = append(out, sm.drawIndirectSystem.buffer)
	}
	return out
}
