// Package views holds the render passes of the engine as rendergraph nodes.
//
// Passes upload through the shared systems of a SystemManager. The scene is
// uploaded once per frame, by whichever pass runs first, and every pass draws
// from that upload. Passes of the same depth may run concurrently under
// Rendergraph.ExecuteParallel.
package views

import (
	"sync"

	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

// Resource keys shared by the passes.
const (
	KeyShadowMaps rendergraph.Key = iota + 1
	KeyViewport
	KeyTexture
)

// Texture unit the shadow maps are bound to.
const ShadowMapTextureUnit uint32 = 0

type Camera struct {
	Position   math.Vec3
	Target     math.Vec3
	FOVDegrees float32
}

// Data returns the shader view of the camera for a viewport.
func (c Camera) Data(viewport metadata.Viewport) systems.CameraData {
	return systems.NewCameraData(c.Position, c.Target, c.FOVDegrees, viewport)
}

// Light is a directional light casting shadows. Extent is the half size of
// the area covered by its shadow map.
type Light struct {
	Position math.Vec3
	Target   math.Vec3
	Extent   float32
}

func (l Light) Data() systems.CameraData {
	return systems.CameraData{
		Projection: math.NewMat4Orthographic(-l.Extent, l.Extent, -l.Extent, l.Extent, 0.1, 1000.0),
		View:       math.NewMat4LookAt(l.Position, l.Target, math.NewVec3(0, 1, 0)),
		Position:   l.Position,
		Exposure:   1.0,
	}
}

// Scene is what the passes draw. Its fields are updated between frames and
// read by the passes during a frame. A Scene must not be copied.
type Scene struct {
	Camera    Camera
	Lights    []Light
	Materials []systems.MaterialData
	Joints    []math.Mat4
	Draws     []systems.DrawIndirectCommand

	mu       sync.Mutex
	uploaded *sceneUpload
}

// sceneUpload is one frame's upload of the scene.
type sceneUpload struct {
	systems   *systems.SystemManager
	frame     uint64
	materials metadata.BufferRange
	joints    metadata.BufferRange
	draws     metadata.BufferRange
	drawCount uint32
	err       error
}

// upload writes the materials, joints and draws of the scene into the
// current frame resources of sm. Later calls within the same frame return
// the result of the first.
func (s *Scene) upload(sm *systems.SystemManager) (*sceneUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := sm.Frame()
	if u := s.uploaded; u != nil && u.systems == sm && u.frame == frame {
		return u, u.err
	}

	u := &sceneUpload{systems: sm, frame: frame}
	u.materials, u.err = sm.MaterialSystem().Update(s.Materials)
	if u.err == nil {
		u.joints, u.err = sm.JointSystem().Update(s.Joints)
	}
	if u.err == nil {
		u.draws, u.drawCount, u.err = sm.DrawIndirectSystem().Update(s.Draws)
	}
	s.uploaded = u
	return u, u.err
}
