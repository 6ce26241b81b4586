package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// MaxResolveDepth bounds how many hops a resource query may travel.
const MaxResolveDepth = 10

type ResourceKind int

const (
	ResourceTexture ResourceKind = iota
	ResourceViewport
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceTexture:
		return "texture"
	case ResourceViewport:
		return "viewport"
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// Query asks for a resource of Kind flowing through pins with Key. Depth
// counts the hops taken so far.
type Query struct {
	Kind    ResourceKind
	Routing Routing
	Key     Key
	Depth   int
}

func (q Query) next() Query {
	q.Depth++
	return q
}

// Resources answers resource queries between nodes.
//
// ProducerOutput asks node what it produces on its output q.Key, and
// ConsumerInput what it consumes on its input q.Key. Nodes implementing
// ProducerOutputResolver or ConsumerInputResolver answer themselves. For the
// others the query travels towards the side providing the resource: queries
// with ResourceProvidedByConsumer routing go downstream, all others go
// upstream. A node that does not answer passes the query through to its pin
// with the same key on the other side.
//
// ForwardProducerOutput crosses the first edge connected to the output
// q.Key and asks the consumer. ForwardConsumerInput crosses the first edge
// connected to the input q.Key and asks the producer.
type Resources interface {
	ProducerOutput(node Handle, q Query) (interface{}, error)
	ConsumerInput(node Handle, q Query) (interface{}, error)
	ForwardProducerOutput(node Handle, q Query) (interface{}, error)
	ForwardConsumerInput(node Handle, q Query) (interface{}, error)
}

// ProducerOutputResolver is implemented by nodes that own the resource of
// one of their outputs, like a pass rendering into its own texture. To pass
// a query on, call one of the Forward methods of res with self.
type ProducerOutputResolver interface {
	ResolveProducerOutput(res Resources, self Handle, q Query) (interface{}, error)
}

// ConsumerInputResolver is implemented by nodes that own the resource of one
// of their inputs, like a window that is rendered into. To pass a query on,
// call one of the Forward methods of res with self.
type ConsumerInputResolver interface {
	ResolveConsumerInput(res Resources, self Handle, q Query) (interface{}, error)
}

// resolver implements Resources. The caller holds the graph lock.
type resolver struct {
	g *Rendergraph
}

func (r resolver) ProducerOutput(node Handle, q Query) (interface{}, error) {
	slot, err := r.enter(node, q)
	if err != nil {
		return nil, err
	}
	if custom, ok := slot.node.(ProducerOutputResolver); ok {
		return custom.ResolveProducerOutput(r, node, q)
	}
	if q.Routing == RoutingNone {
		return nil, fmt.Errorf("%w: no %s flows on output %d of '%s'", ErrRoutingMismatch, q.Kind, q.Key, slot.node.Name())
	}
	if q.Routing == ResourceProvidedByConsumer {
		return r.ForwardProducerOutput(node, q)
	}
	return r.ForwardConsumerInput(node, q)
}

func (r resolver) ConsumerInput(node Handle, q Query) (interface{}, error) {
	slot, err := r.enter(node, q)
	if err != nil {
		return nil, err
	}
	if custom, ok := slot.node.(ConsumerInputResolver); ok {
		return custom.ResolveConsumerInput(r, node, q)
	}
	if q.Routing == RoutingNone {
		return nil, fmt.Errorf("%w: no %s flows on input %d of '%s'", ErrRoutingMismatch, q.Kind, q.Key, slot.node.Name())
	}
	if q.Routing == ResourceProvidedByConsumer {
		return r.ForwardProducerOutput(node, q)
	}
	return r.ForwardConsumerInput(node, q)
}

func (r resolver) ForwardProducerOutput(node Handle, q Query) (interface{}, error) {
	slot, err := r.enter(node, q)
	if err != nil {
		return nil, err
	}
	if !slot.node.OutputsAllowed() {
		return nil, fmt.Errorf("%w: '%s' asked for %s %d", ErrOutputsNotAllowed, slot.node.Name(), q.Kind, q.Key)
	}
	if findPin(slot.node.Outputs(), q.Key) == nil {
		return nil, fmt.Errorf("%w: '%s' has no output %d", ErrPinNotFound, slot.node.Name(), q.Key)
	}
	for _, e := range r.g.edges {
		if e.Producer == node && e.Key == q.Key {
			return r.ConsumerInput(e.Consumer, q.next())
		}
	}
	return nil, fmt.Errorf("%w: output %d of '%s'", ErrNotConnected, q.Key, slot.node.Name())
}

func (r resolver) ForwardConsumerInput(node Handle, q Query) (interface{}, error) {
	slot, err := r.enter(node, q)
	if err != nil {
		return nil, err
	}
	if !slot.node.InputsAllowed() {
		return nil, fmt.Errorf("%w: '%s' asked for %s %d", ErrInputsNotAllowed, slot.node.Name(), q.Kind, q.Key)
	}
	if findPin(slot.node.Inputs(), q.Key) == nil {
		return nil, fmt.Errorf("%w: '%s' has no input %d", ErrPinNotFound, slot.node.Name(), q.Key)
	}
	for _, e := range r.g.edges {
		if e.Consumer == node && e.Key == q.Key {
			return r.ProducerOutput(e.Producer, q.next())
		}
	}
	return nil, fmt.Errorf("%w: input %d of '%s'", ErrNotConnected, q.Key, slot.node.Name())
}

func (r resolver) enter(node Handle, q Query) (*nodeSlot, error) {
	if q.Depth >= MaxResolveDepth {
		return nil, fmt.Errorf("%w: %s %d after %d hops", ErrMaxDepthExceeded, q.Kind, q.Key, q.Depth)
	}
	return r.g.lookup(node)
}

// ProducerOutputViewport asks node what viewport it renders to on its
// output key.
func (g *Rendergraph) ProducerOutputViewport(node Handle, routing Routing, key Key) (metadata.Viewport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return viewportOf(resolver{g: g}.ProducerOutput(node, Query{Kind: ResourceViewport, Routing: routing, Key: key}))
}

// ConsumerInputViewport asks node what viewport it reads on its input key.
func (g *Rendergraph) ConsumerInputViewport(node Handle, routing Routing, key Key) (metadata.Viewport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return viewportOf(resolver{g: g}.ConsumerInput(node, Query{Kind: ResourceViewport, Routing: routing, Key: key}))
}

func (g *Rendergraph) ProducerOutputTexture(node Handle, routing Routing, key Key) (*metadata.Texture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return textureOf(resolver{g: g}.ProducerOutput(node, Query{Kind: ResourceTexture, Routing: routing, Key: key}))
}

func (g *Rendergraph) ConsumerInputTexture(node Handle, routing Routing, key Key) (*metadata.Texture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return textureOf(resolver{g: g}.ConsumerInput(node, Query{Kind: ResourceTexture, Routing: routing, Key: key}))
}

func viewportOf(v interface{}, err error) (metadata.Viewport, error) {
	if err != nil {
		return metadata.Viewport{}, err
	}
	viewport, ok := v.(metadata.Viewport)
	if !ok {
		return metadata.Viewport{}, fmt.Errorf("%w: want viewport, got %T", ErrResourceType, v)
	}
	return viewport, nil
}

func textureOf(v interface{}, err error) (*metadata.Texture, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	texture, ok := v.(*metadata.Texture)
	if !ok {
		return nil, fmt.Errorf("%w: want texture, got %T", ErrResourceType, v)
	}
	return texture, nil
}
