package testbed

import (
	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/renderer/views"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	scene *views.Scene
	angle float32
}

func NewTestGame(config core.Config) *TestGame {
	red := systems.DefaultMaterial()
	red.Name = "red"
	red.BaseColor = math.NewVec4(0.8, 0.1, 0.1, 1)

	tg := &TestGame{
		Game: &engine.Game{
			Config: config,
			State: &gameState{
				scene: &views.Scene{
					Camera: views.Camera{
						Position:   math.NewVec3(0, 2, 6),
						Target:     math.NewVec3(0, 0, 0),
						FOVDegrees: 60,
					},
					Lights: []views.Light{
						{Position: math.NewVec3(8, 12, 4), Extent: 15},
						{Position: math.NewVec3(-6, 10, -4), Extent: 15},
					},
					Materials: []systems.MaterialData{systems.DefaultMaterial(), red},
					Joints:    []math.Mat4{math.NewMat4Identity()},
					Draws: []systems.DrawIndirectCommand{
						// Ground plane, then a cube.
						{IndexCount: 6, InstanceCount: 1},
						{IndexCount: 36, InstanceCount: 1, FirstIndex: 6, BaseVertex: 4},
					},
				},
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// Initialize builds shadow -> viewport -> hdr color -> window.
func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	scene := g.state().scene

	shadow, err := views.NewShadowNode("shadow", g.Renderer, g.SystemManager, scene)
	if err != nil {
		return err
	}
	viewport, err := views.NewViewportNode("main viewport", g.Renderer, g.SystemManager, scene)
	if err != nil {
		return err
	}
	color, err := views.NewTextureNode("hdr color", g.Renderer, metadata.TextureFormatRGBA16F)
	if err != nil {
		return err
	}
	window, err := views.NewPresentNode("window", g.Renderer)
	if err != nil {
		return err
	}

	rg := g.Rendergraph
	handles := make([]rendergraph.Handle, 0, 4)
	for _, node := range []rendergraph.Node{shadow, viewport, color, window} {
		h, err := rg.Register(node)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	if err := rg.Connect(views.KeyShadowMaps, handles[0], handles[1]); err != nil {
		return err
	}
	if err := rg.Connect(views.KeyViewport, handles[1], handles[2]); err != nil {
		return err
	}
	if err := rg.Connect(views.KeyTexture, handles[2], handles[3]); err != nil {
		return err
	}
	return rg.AutomaticLayout(100)
}

// Update orbits the camera around the origin.
func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	s.angle += float32(0.5 * deltaTime)
	rotation := math.NewMat4RotationY(s.angle)
	offset := rotation.MulVec4(math.NewVec4(0, 2, 6, 1))
	s.scene.Camera.Position = math.NewVec3(offset.X, offset.Y, offset.Z)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	return nil
}
