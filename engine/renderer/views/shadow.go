package views

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

var ErrStreamExhausted = errors.New("stream ring buffer exhausted")

// ShadowNode renders one shadow map layer per light. The light cameras are
// streamed through the renderer ring buffer.
type ShadowNode struct {
	*rendergraph.NodeBase

	renderer *renderer.Renderer
	systems  *systems.SystemManager
	scene    *Scene

	mu      sync.Mutex
	texture *metadata.Texture
}

func NewShadowNode(name string, r *renderer.Renderer, sm *systems.SystemManager, scene *Scene) (*ShadowNode, error) {
	n := &ShadowNode{
		NodeBase: rendergraph.NewNodeBase(name),
		renderer: r,
		systems:  sm,
		scene:    scene,
	}
	if err := n.RegisterOutput(rendergraph.ResourceProvidedByProducer, "shadow_maps", KeyShadowMaps); err != nil {
		return nil, err
	}
	return n, nil
}

// ShadowMaps returns the shadow map array, (re)creating it when the
// configured size or the light count changed.
func (n *ShadowNode) ShadowMaps() (*metadata.Texture, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	size := n.renderer.Config().ShadowMapSize
	layers := uint32(max(1, len(n.scene.Lights)))
	if n.texture.Matches(size, size, metadata.TextureFormatDepth32F) && n.texture.LayerCount == layers {
		return n.texture, nil
	}

	backend := n.renderer.Backend()
	generation := uint32(0)
	if n.texture != nil {
		generation = n.texture.Generation + 1
		backend.RenderTargetDestroy(n.texture)
		n.texture = nil
	}
	texture := &metadata.Texture{
		Name:        n.Name() + " shadow maps",
		TextureType: metadata.TextureType2dArray,
		Format:      metadata.TextureFormatDepth32F,
		Width:       size,
		Height:      size,
		LayerCount:  layers,
		SampleCount: 1,
		Generation:  generation,
	}
	if err := backend.RenderTargetCreate(texture); err != nil {
		return nil, err
	}
	core.LogDebug("shadow node '%s': %dx%d shadow maps, %d layers", n.Name(), size, size, layers)
	n.texture = texture
	return texture, nil
}

func (n *ShadowNode) Execute(ctx *rendergraph.ExecutionContext) error {
	texture, err := n.ShadowMaps()
	if err != nil {
		return err
	}
	if len(n.scene.Lights) == 0 {
		return nil
	}

	uploaded, err := n.scene.upload(n.systems)
	if err != nil {
		return err
	}
	draws := n.systems.DrawIndirectSystem().Buffer().CurrentBuffer()

	backend := n.renderer.Backend()
	ring := n.renderer.Stream()
	alignment := backend.Limits().Alignment(metadata.AlignUniform)
	viewport := metadata.Viewport{Width: int32(texture.Width), Height: int32(texture.Height)}

	for layer, light := range n.scene.Lights {
		rr, ok := ring.Acquire(alignment, systems.CameraBlockSize)
		if !ok {
			return fmt.Errorf("%w: light %d of '%s'", ErrStreamExhausted, layer, n.Name())
		}
		light.Data().AppendBytes(rr.Span[:0])
		if err := ring.Close(&rr, systems.CameraBlockSize); err != nil {
			return err
		}
		cameraRange := metadata.BufferRange{FirstByteOffset: rr.ByteOffset, ByteCount: systems.CameraBlockSize}
		if err := backend.RenderBufferBindRange(ring.Buffer(), systems.CameraBindingPoint, cameraRange); err != nil {
			return err
		}

		pass := fmt.Sprintf("%s layer %d", n.Name(), layer)
		if err := backend.RenderPassBegin(pass, texture, viewport); err != nil {
			return err
		}
		if uploaded.drawCount > 0 {
			err = backend.DrawIndirect(draws, uploaded.draws, uploaded.drawCount)
		}
		if err = multierr.Append(err, backend.RenderPassEnd(pass)); err != nil {
			return err
		}
	}
	return nil
}

func (n *ShadowNode) ResolveProducerOutput(res rendergraph.Resources, self rendergraph.Handle, q rendergraph.Query) (interface{}, error) {
	switch q.Kind {
	case rendergraph.ResourceTexture:
		return n.ShadowMaps()
	case rendergraph.ResourceViewport:
		size := int32(n.renderer.Config().ShadowMapSize)
		return metadata.Viewport{Width: size, Height: size}, nil
	}
	return nil, fmt.Errorf("%w: %s from '%s'", rendergraph.ErrResourceType, q.Kind, n.Name())
}

// Release destroys the shadow maps.
func (n *ShadowNode) Release() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.texture != nil {
		n.renderer.Backend().RenderTargetDestroy(n.texture)
		n.texture = nil
	}
}
