package rendergraph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// Sort recomputes the execution order if the graph changed since the last
// sort.
func (g *Rendergraph) Sort() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sort()
}

// sort runs Kahn's algorithm. Among the nodes whose producers have all been
// placed, the one registered first goes next, which makes the order
// deterministic for a given graph. Depths are updated on success.
func (g *Rendergraph) sort() error {
	if g.orderValid {
		return nil
	}

	slots := make(map[Handle]*nodeSlot, len(g.live))
	inDegree := make(map[Handle]int, len(g.live))
	children := make(map[Handle][]Handle, len(g.live))
	for _, s := range g.live {
		slots[s.handle] = s
		inDegree[s.handle] = 0
	}
	for _, e := range g.edges {
		inDegree[e.Consumer]++
		children[e.Producer] = append(children[e.Producer], e.Consumer)
	}

	// g.live is in registration order, so ready starts out sorted.
	var ready []*nodeSlot
	for _, s := range g.live {
		if inDegree[s.handle] == 0 {
			ready = append(ready, s)
		}
	}

	depth := make(map[Handle]int, len(g.live))
	order := make([]Handle, 0, len(g.live))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current.handle)

		for _, child := range children[current.handle] {
			depth[child] = max(depth[child], depth[current.handle]+1)
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = insertSorted(ready, slots[child])
			}
		}
	}

	if len(order) != len(g.live) {
		g.logCycle(order, inDegree)
		return fmt.Errorf("%w: %d of %d nodes could not be ordered", ErrCycleDetected, len(g.live)-len(order), len(g.live))
	}

	for _, s := range g.live {
		s.node.base().setDepth(depth[s.handle])
	}
	g.order = order
	g.orderValid = true
	return nil
}

// insertSorted inserts s into ready keeping it ordered by registration
// sequence.
func insertSorted(ready []*nodeSlot, s *nodeSlot) []*nodeSlot {
	i := sort.Search(len(ready), func(i int) bool {
		return ready[i].sequence >= s.sequence
	})
	return slices.Insert(ready, i, s)
}

func (g *Rendergraph) logCycle(sorted []Handle, inDegree map[Handle]int) {
	core.LogError("no rendergraph node with met dependencies found, graph is not acyclic:")
	for _, s := range g.live {
		core.LogInfo("    node: %s", s.node.Name())
		for _, e := range g.edges {
			if e.Consumer == s.handle {
				core.LogInfo("        input key %d, producer: %s", e.Key, g.name(e.Producer))
			}
		}
	}
	core.LogInfo("sorted nodes:")
	for _, h := range sorted {
		core.LogInfo("    node: %s", g.name(h))
	}
	core.LogInfo("unsorted nodes:")
	for _, s := range g.live {
		if inDegree[s.handle] > 0 {
			core.LogInfo("    node: %s (%d unmet inputs)", s.node.Name(), inDegree[s.handle])
		}
	}
}
