package views

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
)

// PresentNode is the window. Passes connected to its viewport input render
// straight into the default framebuffer, a texture connected to its texture
// input is copied to it.
type PresentNode struct {
	rendergraph.SinkNodeBase

	renderer *renderer.Renderer
}

func NewPresentNode(name string, r *renderer.Renderer) (*PresentNode, error) {
	n := &PresentNode{
		SinkNodeBase: rendergraph.NewSinkNodeBase(name),
		renderer:     r,
	}
	if err := n.RegisterInput(rendergraph.ResourceProvidedByConsumer, "window", KeyViewport); err != nil {
		return nil, err
	}
	if err := n.RegisterInput(rendergraph.ResourceProvidedByProducer, "texture", KeyTexture); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *PresentNode) ResolveConsumerInput(res rendergraph.Resources, self rendergraph.Handle, q rendergraph.Query) (interface{}, error) {
	switch q.Kind {
	case rendergraph.ResourceViewport:
		return n.renderer.WindowViewport(), nil
	case rendergraph.ResourceTexture:
		if q.Key == KeyTexture {
			return res.ForwardConsumerInput(self, q)
		}
		return (*metadata.Texture)(nil), nil
	}
	return nil, fmt.Errorf("%w: %s from '%s'", rendergraph.ErrResourceType, q.Kind, n.Name())
}

func (n *PresentNode) Execute(ctx *rendergraph.ExecutionContext) error {
	source, err := ctx.ConsumerInputTexture(rendergraph.ResourceProvidedByProducer, KeyTexture)
	if err != nil && !errors.Is(err, rendergraph.ErrNotConnected) {
		return err
	}
	return n.renderer.Backend().Present(source, n.renderer.WindowViewport())
}
