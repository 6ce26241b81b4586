package views

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
)

// TextureNode is an intermediate render target. Its producer renders into a
// texture the node owns, sized after the viewport of its own consumer, and
// the consumer reads that texture.
type TextureNode struct {
	*rendergraph.NodeBase

	renderer *renderer.Renderer
	format   metadata.TextureFormat

	mu      sync.Mutex
	texture *metadata.Texture
}

func NewTextureNode(name string, r *renderer.Renderer, format metadata.TextureFormat) (*TextureNode, error) {
	n := &TextureNode{
		NodeBase: rendergraph.NewNodeBase(name),
		renderer: r,
		format:   format,
	}
	if err := n.RegisterInput(rendergraph.ResourceProvidedByConsumer, "viewport", KeyViewport); err != nil {
		return nil, err
	}
	if err := n.RegisterOutput(rendergraph.ResourceProvidedByProducer, "texture", KeyTexture); err != nil {
		return nil, err
	}
	return n, nil
}

// Texture returns the current render target, nil before the first frame.
func (n *TextureNode) Texture() *metadata.Texture {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.texture
}

func (n *TextureNode) Execute(ctx *rendergraph.ExecutionContext) error {
	_, err := ctx.ConsumerInputTexture(rendergraph.ResourceProvidedByConsumer, KeyViewport)
	return err
}

// The viewport comes from downstream. It starts at the origin of the
// texture whatever its offset in the final target.
func (n *TextureNode) viewport(res rendergraph.Resources, self rendergraph.Handle, depth int) (metadata.Viewport, error) {
	v, err := res.ForwardProducerOutput(self, rendergraph.Query{
		Kind:    rendergraph.ResourceViewport,
		Routing: rendergraph.ResourceProvidedByConsumer,
		Key:     KeyTexture,
		Depth:   depth,
	})
	if err != nil {
		return metadata.Viewport{}, err
	}
	viewport, ok := v.(metadata.Viewport)
	if !ok {
		return metadata.Viewport{}, fmt.Errorf("%w: want viewport, got %T", rendergraph.ErrResourceType, v)
	}
	viewport.X, viewport.Y = 0, 0
	return viewport, nil
}

func (n *TextureNode) ensureTexture(viewport metadata.Viewport) (*metadata.Texture, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	width, height := uint32(max(viewport.Width, 1)), uint32(max(viewport.Height, 1))
	if n.texture.Matches(width, height, n.format) {
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
		Name:        n.Name(),
		TextureType: metadata.TextureType2d,
		Format:      n.format,
		Width:       width,
		Height:      height,
		LayerCount:  1,
		SampleCount: 1,
		Generation:  generation,
	}
	if err := backend.RenderTargetCreate(texture); err != nil {
		return nil, err
	}
	core.LogDebug("texture node '%s': render target %dx%d, generation %d", n.Name(), width, height, generation)
	n.texture = texture
	return texture, nil
}

func (n *TextureNode) resolve(res rendergraph.Resources, self rendergraph.Handle, q rendergraph.Query) (interface{}, error) {
	viewport, err := n.viewport(res, self, q.Depth)
	if err != nil {
		return nil, err
	}
	switch q.Kind {
	case rendergraph.ResourceViewport:
		return viewport, nil
	case rendergraph.ResourceTexture:
		return n.ensureTexture(viewport)
	}
	return nil, fmt.Errorf("%w: %s from '%s'", rendergraph.ErrResourceType, q.Kind, n.Name())
}

// ResolveConsumerInput answers the producer rendering into the texture.
func (n *TextureNode) ResolveConsumerInput(res rendergraph.Resources, self rendergraph.Handle, q rendergraph.Query) (interface{}, error) {
	if q.Key != KeyViewport {
		return nil, fmt.Errorf("%w: '%s' has no input %d", rendergraph.ErrPinNotFound, n.Name(), q.Key)
	}
	return n.resolve(res, self, q)
}

// ResolveProducerOutput answers the consumer reading the texture.
func (n *TextureNode) ResolveProducerOutput(res rendergraph.Resources, self rendergraph.Handle, q rendergraph.Query) (interface{}, error) {
	if q.Key != KeyTexture {
		return nil, fmt.Errorf("%w: '%s' has no output %d", rendergraph.ErrPinNotFound, n.Name(), q.Key)
	}
	return n.resolve(res, self, q)
}

// Release destroys the render target.
func (n *TextureNode) Release() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.texture != nil {
		n.renderer.Backend().RenderTargetDestroy(n.texture)
		n.texture = nil
	}
}
