package rendergraph

// SinkNodeBase is the base of terminal nodes, such as the one presenting to
// a window. A sink consumes but never produces: RegisterOutput always fails
// and a sink cannot be the producer of an edge.
type SinkNodeBase struct {
	*NodeBase
}

func NewSinkNodeBase(name string) SinkNodeBase {
	b := NewNodeBase(name)
	b.outputsAllowed = false
	return SinkNodeBase{NodeBase: b}
}

func (s SinkNodeBase) OutputsAllowed() bool {
	return false
}
