package rendergraph

import (
	"fmt"
	"slices"
	"sync"

	"golang.org/x/image/math/f32"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// Edge connects the output pin Key of Producer to the input pin Key of
// Consumer. Routing is the routing resolved when the edge was connected.
type Edge struct {
	Key      Key
	Producer Handle
	Consumer Handle
	Routing  Routing
}

type nodeSlot struct {
	node     Node
	handle   Handle
	sequence uint64
}

// Rendergraph owns a set of nodes and the edges between them, and executes
// the nodes in dependency order.
//
// Registration and connection may happen from any goroutine. Execute holds
// the same lock for the whole frame, so mutations wait for the frame to end.
type Rendergraph struct {
	mu           sync.Mutex
	ids          *core.IdentifierPool
	live         []*nodeSlot
	edges        []Edge
	order        []Handle
	orderValid   bool
	nextSequence uint64
	frame        uint64
}

func New() *Rendergraph {
	core.LogInfo("rendergraph created")
	return &Rendergraph{
		ids:        core.NewIdentifierPool(16),
		orderValid: true,
	}
}

// Register adds node to the graph and returns its handle.
func (g *Rendergraph) Register(node Node) (Handle, error) {
	if node == nil {
		return Handle{}, ErrNilNode
	}
	// A node embedding a nil *NodeBase was never built with NewNodeBase.
	b := node.base()
	if b == nil {
		return Handle{}, ErrNilNode
	}
	if b.Graph() != nil {
		core.LogError("rendergraph node '%s' is already registered", node.Name())
		return Handle{}, fmt.Errorf("%w: '%s'", ErrNodeAlreadyRegistered, node.Name())
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	slot := &nodeSlot{node: node, sequence: g.nextSequence}
	id, generation := g.ids.Acquire(slot)
	slot.handle = newHandle(id, generation)
	if err := b.attach(g, slot.handle); err != nil {
		_ = g.ids.Release(id)
		core.LogError("rendergraph node '%s' is already registered", node.Name())
		return Handle{}, err
	}

	g.nextSequence++
	g.live = append(g.live, slot)
	b.SetPosition(f32.Vec2{float32(len(g.live)) * 250, 0})
	g.invalidate()
	core.LogDebug("registered rendergraph node '%s' as %s", node.Name(), slot.handle)
	return slot.handle, nil
}

// Unregister removes the node and every edge it is part of.
func (g *Rendergraph) Unregister(h Handle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, err := g.lookup(h)
	if err != nil {
		core.LogError("rendergraph unregister: %s", err)
		return err
	}

	removed := 0
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		if e.Producer == h || e.Consumer == h {
			removed++
			return true
		}
		return false
	})
	g.live = slices.DeleteFunc(g.live, func(s *nodeSlot) bool {
		return s == slot
	})
	if err := g.ids.Release(h.slot()); err != nil {
		return err
	}
	slot.node.base().detach()
	g.invalidate()
	core.LogDebug("unregistered rendergraph node '%s' (%d edges removed)", slot.node.Name(), removed)
	return nil
}

// UnregisterNode is Unregister for callers holding the node.
func (g *Rendergraph) UnregisterNode(node Node) error {
	if node == nil || node.base() == nil {
		return ErrNilNode
	}
	return g.Unregister(node.base().Handle())
}

// Connect adds an edge from the output pin key of producer to the input pin
// key of consumer. On error the graph is left unchanged.
func (g *Rendergraph) Connect(key Key, producer, consumer Handle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	edge, err := g.checkConnect(key, producer, consumer)
	if err != nil {
		core.LogError("rendergraph connect key %d: %s", key, err)
		return err
	}
	g.edges = append(g.edges, edge)
	g.invalidate()
	core.LogDebug("rendergraph connected key %d from '%s' to '%s' (%s)", key, g.name(producer), g.name(consumer), edge.Routing)
	return nil
}

func (g *Rendergraph) checkConnect(key Key, producer, consumer Handle) (Edge, error) {
	p, err := g.lookup(producer)
	if err != nil {
		return Edge{}, fmt.Errorf("producer: %w", err)
	}
	c, err := g.lookup(consumer)
	if err != nil {
		return Edge{}, fmt.Errorf("consumer: %w", err)
	}
	if producer == consumer {
		return Edge{}, fmt.Errorf("%w: '%s' cannot consume its own output", ErrCycleDetected, p.node.Name())
	}
	if !p.node.OutputsAllowed() {
		return Edge{}, fmt.Errorf("%w: '%s'", ErrOutputsNotAllowed, p.node.Name())
	}
	if !c.node.InputsAllowed() {
		return Edge{}, fmt.Errorf("%w: '%s'", ErrInputsNotAllowed, c.node.Name())
	}

	output := findPin(p.node.Outputs(), key)
	if output == nil {
		return Edge{}, fmt.Errorf("%w: '%s' has no output %d", ErrPinNotFound, p.node.Name(), key)
	}
	input := findPin(c.node.Inputs(), key)
	if input == nil {
		return Edge{}, fmt.Errorf("%w: '%s' has no input %d", ErrPinNotFound, c.node.Name(), key)
	}

	routing, err := ResolveRouting(output.Routing, input.Routing)
	if err != nil {
		return Edge{}, err
	}

	for _, e := range g.edges {
		if e.Key != key {
			continue
		}
		if e.Producer == producer && e.Consumer == consumer {
			return Edge{}, fmt.Errorf("%w: key %d from '%s' to '%s'", ErrEdgeExists, key, p.node.Name(), c.node.Name())
		}
		// A resource provided by the producer needs a single producer, one
		// provided by the consumer needs a single consumer.
		if e.Consumer == consumer && (routing == ResourceProvidedByProducer || e.Routing == ResourceProvidedByProducer) {
			return Edge{}, fmt.Errorf("%w: input %d of '%s' already has a producer", ErrRoutingMismatch, key, c.node.Name())
		}
		if e.Producer == producer && (routing == ResourceProvidedByConsumer || e.Routing == ResourceProvidedByConsumer) {
			return Edge{}, fmt.Errorf("%w: output %d of '%s' already has a consumer", ErrRoutingMismatch, key, p.node.Name())
		}
	}

	if g.reachable(consumer, producer) {
		return Edge{}, fmt.Errorf("%w: '%s' already depends on '%s'", ErrCycleDetected, p.node.Name(), c.node.Name())
	}

	return Edge{Key: key, Producer: producer, Consumer: consumer, Routing: routing}, nil
}

// Disconnect removes the edge added by Connect with the same arguments.
func (g *Rendergraph) Disconnect(key Key, producer, consumer Handle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.lookup(producer); err != nil {
		return fmt.Errorf("producer: %w", err)
	}
	if _, err := g.lookup(consumer); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}

	i := slices.IndexFunc(g.edges, func(e Edge) bool {
		return e.Key == key && e.Producer == producer && e.Consumer == consumer
	})
	if i < 0 {
		return fmt.Errorf("%w: key %d from '%s' to '%s'", ErrEdgeNotFound, key, g.name(producer), g.name(consumer))
	}
	g.edges = slices.Delete(g.edges, i, i+1)
	g.invalidate()
	core.LogDebug("rendergraph disconnected key %d from '%s' to '%s'", key, g.name(producer), g.name(consumer))
	return nil
}

// Node returns the node registered under h.
func (g *Rendergraph) Node(h Handle) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, err := g.lookup(h)
	if err != nil {
		return nil, false
	}
	return slot.node, true
}

// Handle returns the handle of node if it is registered in g.
func (g *Rendergraph) Handle(node Node) (Handle, bool) {
	if node == nil {
		return Handle{}, false
	}
	b := node.base()
	if b.Graph() != g {
		return Handle{}, false
	}
	return b.Handle(), true
}

// Nodes returns the registered nodes in registration order.
func (g *Rendergraph) Nodes() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := make([]Node, 0, len(g.live))
	for _, s := range g.live {
		nodes = append(nodes, s.node)
	}
	return nodes
}

// Edges returns a copy of the edges in connection order.
func (g *Rendergraph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.edges)
}

func (g *Rendergraph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

// OrderValid reports whether the cached execution order reflects the
// current nodes and edges.
func (g *Rendergraph) OrderValid() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orderValid
}

// Order returns the execution order, sorting first if needed.
func (g *Rendergraph) Order() ([]Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.sort(); err != nil {
		return nil, err
	}
	return slices.Clone(g.order), nil
}

func (g *Rendergraph) invalidate() {
	g.orderValid = false
}

func (g *Rendergraph) lookup(h Handle) (*nodeSlot, error) {
	if !h.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotRegistered, h)
	}
	owner, ok := g.ids.Owner(h.slot(), h.generation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotRegistered, h)
	}
	return owner.(*nodeSlot), nil
}

func (g *Rendergraph) name(h Handle) string {
	if slot, err := g.lookup(h); err == nil {
		return slot.node.Name()
	}
	return h.String()
}

// reachable reports whether to can be reached from from by following edges.
func (g *Rendergraph) reachable(from, to Handle) bool {
	visited := make(map[Handle]bool, len(g.live))
	stack := []Handle{from}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == to {
			return true
		}
		if visited[h] {
			continue
		}
		visited[h] = true
		for _, e := range g.edges {
			if e.Producer == h && !visited[e.Consumer] {
				stack = append(stack, e.Consumer)
			}
		}
	}
	return false
}
