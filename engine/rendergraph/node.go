package rendergraph

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/image/math/f32"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// Pin is a keyed input or output of a node.
type Pin struct {
	Key     Key
	Label   string
	Routing Routing
}

// Node is a render pass. Implementations embed *NodeBase, which provides
// everything except Execute.
type Node interface {
	ID() uuid.UUID
	Name() string
	Inputs() []Pin
	Outputs() []Pin
	InputsAllowed() bool
	OutputsAllowed() bool
	Enabled() bool
	// Execute runs the pass. It is called once per Rendergraph.Execute, after
	// every producer of the node. It must not register, unregister, connect
	// or disconnect nodes of the graph executing it.
	Execute(ctx *ExecutionContext) error

	base() *NodeBase
}

// NodeBase holds the pins and graph bookkeeping of a node.
type NodeBase struct {
	mu             sync.Mutex
	id             uuid.UUID
	name           string
	inputs         []Pin
	outputs        []Pin
	inputsAllowed  bool
	outputsAllowed bool
	enabled        bool

	// Owned by the graph the node is registered in.
	graph    *Rendergraph
	handle   Handle
	depth    int
	position f32.Vec2
	size     *f32.Vec2
}

func NewNodeBase(name string) *NodeBase {
	return &NodeBase{
		id:             uuid.New(),
		name:           name,
		inputsAllowed:  true,
		outputsAllowed: true,
		enabled:        true,
	}
}

func (b *NodeBase) base() *NodeBase {
	return b
}

func (b *NodeBase) ID() uuid.UUID {
	return b.id
}

func (b *NodeBase) Name() string {
	return b.name
}

// Inputs returns a copy of the input pins in registration order.
func (b *NodeBase) Inputs() []Pin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.inputs)
}

// Outputs returns a copy of the output pins in registration order.
func (b *NodeBase) Outputs() []Pin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.outputs)
}

func (b *NodeBase) InputsAllowed() bool {
	return b.inputsAllowed
}

func (b *NodeBase) OutputsAllowed() bool {
	return b.outputsAllowed
}

func (b *NodeBase) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// SetEnabled toggles the node. Disabled nodes keep their place in the graph
// but are skipped by Execute.
func (b *NodeBase) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// RegisterInput declares an input pin. Keys are unique per node.
func (b *NodeBase) RegisterInput(routing Routing, label string, key Key) error {
	if !b.inputsAllowed {
		core.LogError("node '%s' inputs are not allowed (label = %s, key = %d)", b.name, label, key)
		return fmt.Errorf("%w: '%s'", ErrInputsNotAllowed, b.name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if findPin(b.inputs, key) != nil {
		core.LogError("node '%s' input key '%d' is already registered", b.name, key)
		return fmt.Errorf("%w: input %d of '%s'", ErrDuplicatePin, key, b.name)
	}
	b.inputs = append(b.inputs, Pin{Key: key, Label: label, Routing: routing})
	return nil
}

// RegisterOutput declares an output pin. Keys are unique per node. Sinks
// reject every output.
func (b *NodeBase) RegisterOutput(routing Routing, label string, key Key) error {
	if !b.outputsAllowed {
		core.LogError("node '%s' outputs are not allowed (label = %s, key = %d)", b.name, label, key)
		return fmt.Errorf("%w: '%s'", ErrOutputsNotAllowed, b.name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if findPin(b.outputs, key) != nil {
		core.LogError("node '%s' output key '%d' is already registered", b.name, key)
		return fmt.Errorf("%w: output %d of '%s'", ErrDuplicatePin, key, b.name)
	}
	b.outputs = append(b.outputs, Pin{Key: key, Label: label, Routing: routing})
	return nil
}

// Handle returns the handle of the node in the graph it is registered in.
func (b *NodeBase) Handle() Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// Graph returns the graph the node is registered in, or nil.
func (b *NodeBase) Graph() *Rendergraph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graph
}

// Depth is the length of the longest producer chain leading to the node, as
// of the last sort.
func (b *NodeBase) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth
}

func (b *NodeBase) Position() f32.Vec2 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

func (b *NodeBase) SetPosition(position f32.Vec2) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = position
}

// SetSize overrides the size used by AutomaticLayout.
func (b *NodeBase) SetSize(size f32.Vec2) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = &size
}

func (b *NodeBase) attach(g *Rendergraph, h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.graph != nil {
		return fmt.Errorf("%w: '%s' as %s", ErrNodeAlreadyRegistered, b.name, b.handle)
	}
	b.graph = g
	b.handle = h
	b.depth = 0
	return nil
}

func (b *NodeBase) detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graph = nil
	b.handle = Handle{}
}

func (b *NodeBase) setDepth(depth int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth = depth
}

func (b *NodeBase) explicitSize() (f32.Vec2, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == nil {
		return f32.Vec2{}, false
	}
	return *b.size, true
}

func findPin(pins []Pin, key Key) *Pin {
	for i := range pins {
		if pins[i].Key == key {
			return &pins[i]
		}
	}
	return nil
}
