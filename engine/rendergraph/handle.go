package rendergraph

import "fmt"

// Handle refers to a node registered in a Rendergraph. A handle outlives
// neither the registration nor the graph. Handles of unregistered nodes are
// detected, even when the slot has been reused.
//
// The zero Handle refers to nothing.
type Handle struct {
	id         uint32
	generation uint32
}

func newHandle(slot, generation uint32) Handle {
	return Handle{id: slot + 1, generation: generation}
}

func (h Handle) IsValid() bool {
	return h.id != 0
}

func (h Handle) slot() uint32 {
	return h.id - 1
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "Handle(invalid)"
	}
	return fmt.Sprintf("Handle(%d#%d)", h.slot(), h.generation)
}
