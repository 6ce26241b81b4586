package views

import (
	"errors"

	"go.uber.org/multierr"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

// ViewportNode draws the scene from the scene camera. It renders into
// whatever its consumer provides, a window or an intermediate texture, and
// samples the shadow maps of its producer when one is connected.
type ViewportNode struct {
	*rendergraph.NodeBase

	renderer *renderer.Renderer
	systems  *systems.SystemManager
	scene    *Scene
}

func NewViewportNode(name string, r *renderer.Renderer, sm *systems.SystemManager, scene *Scene) (*ViewportNode, error) {
	n := &ViewportNode{
		NodeBase: rendergraph.NewNodeBase(name),
		renderer: r,
		systems:  sm,
		scene:    scene,
	}
	if err := n.RegisterInput(rendergraph.ResourceProvidedByProducer, "shadow_maps", KeyShadowMaps); err != nil {
		return nil, err
	}
	if err := n.RegisterOutput(rendergraph.ResourceProvidedByConsumer, "viewport", KeyViewport); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *ViewportNode) Execute(ctx *rendergraph.ExecutionContext) error {
	viewport, err := ctx.ProducerOutputViewport(rendergraph.ResourceProvidedByConsumer, KeyViewport)
	if err != nil {
		return err
	}
	if viewport.IsEmpty() {
		core.LogDebug("viewport node '%s': empty viewport, skipping", n.Name())
		return nil
	}

	// A nil target is the default framebuffer.
	target, err := ctx.ProducerOutputTexture(rendergraph.ResourceProvidedByConsumer, KeyViewport)
	if err != nil {
		return err
	}

	backend := n.renderer.Backend()
	shadowMaps, err := ctx.ConsumerInputTexture(rendergraph.ResourceProvidedByProducer, KeyShadowMaps)
	switch {
	case errors.Is(err, rendergraph.ErrNotConnected):
	case err != nil:
		return err
	case shadowMaps != nil:
		if err := backend.TextureBind(shadowMaps, ShadowMapTextureUnit); err != nil {
			return err
		}
	}

	uploaded, err := n.upload(viewport)
	if err != nil {
		return err
	}

	if err := backend.RenderPassBegin(n.Name(), target, viewport); err != nil {
		return err
	}
	if uploaded.drawCount > 0 {
		err = backend.DrawIndirect(n.systems.DrawIndirectSystem().Buffer().CurrentBuffer(), uploaded.draws, uploaded.drawCount)
	}
	return multierr.Append(err, backend.RenderPassEnd(n.Name()))
}

// upload writes the camera of this viewport, and binds it along with the
// materials and joints of the scene.
func (n *ViewportNode) upload(viewport metadata.Viewport) (*sceneUpload, error) {
	cameras := n.systems.CameraSystem()
	ranges, err := cameras.Update([]systems.CameraData{n.scene.Camera.Data(viewport)})
	if err != nil {
		return nil, err
	}
	if err := cameras.Bind(ranges[0]); err != nil {
		return nil, err
	}

	uploaded, err := n.scene.upload(n.systems)
	if err != nil {
		return nil, err
	}
	if err := n.systems.MaterialSystem().Bind(uploaded.materials); err != nil {
		return nil, err
	}
	if err := n.systems.JointSystem().Bind(uploaded.joints); err != nil {
		return nil, err
	}
	return uploaded, nil
}
