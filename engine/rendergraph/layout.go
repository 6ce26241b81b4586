package rendergraph

import "golang.org/x/image/math/f32"

const (
	DefaultNodeWidth  = 400
	DefaultNodeHeight = 100
	LayoutGapX        = 40
	LayoutGapY        = 20
)

// AutomaticLayout places the nodes for a graph editor view. Every depth gets
// a column, and nodes in a column are stacked in execution order. Nodes are
// scaled to imageSize pixels high, keeping their aspect ratio.
func (g *Rendergraph) AutomaticLayout(imageSize float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.live) == 0 {
		return nil
	}
	if err := g.sort(); err != nil {
		return err
	}

	type placement struct {
		base   *NodeBase
		column int
		size   f32.Vec2
	}

	placements := make([]placement, 0, len(g.order))
	var columnCount []int
	var columnHeight []float32
	var maxColumnHeight float32
	for _, h := range g.order {
		slot, _ := g.lookup(h)
		b := slot.node.base()
		p := placement{base: b, column: b.Depth(), size: g.effectiveSize(h, imageSize)}
		placements = append(placements, p)

		for len(columnCount) <= p.column {
			columnCount = append(columnCount, 0)
			columnHeight = append(columnHeight, 0)
		}
		columnCount[p.column]++
		if columnHeight[p.column] != 0 {
			columnHeight[p.column] += LayoutGapY
		}
		columnHeight[p.column] += p.size[1]
		maxColumnHeight = max(maxColumnHeight, columnHeight[p.column])
	}

	var xOffset float32
	for column := range columnCount {
		var columnWidth, yOffset float32
		for _, p := range placements {
			if p.column != column {
				continue
			}
			columnWidth = max(columnWidth, p.size[0])
			if columnCount[column] == 1 {
				p.base.SetPosition(f32.Vec2{xOffset, (maxColumnHeight - p.size[1]) * 0.5})
			} else {
				p.base.SetPosition(f32.Vec2{xOffset, yOffset})
			}
			yOffset += p.size[1] + LayoutGapY
		}
		xOffset += columnWidth + LayoutGapX
	}
	return nil
}

// effectiveSize scales the node size to height imageSize. The node size is
// the explicit size if one was set, else the largest texture the node
// produces, else the default size.
func (g *Rendergraph) effectiveSize(h Handle, imageSize float32) f32.Vec2 {
	slot, _ := g.lookup(h)
	size, ok := slot.node.base().explicitSize()
	if !ok {
		size = f32.Vec2{DefaultNodeWidth, DefaultNodeHeight}
		found := false
		res := resolver{g: g}
		for _, pin := range slot.node.Outputs() {
			if pin.Routing == RoutingNone {
				continue
			}
			texture, err := textureOf(res.ProducerOutput(h, Query{Kind: ResourceTexture, Routing: pin.Routing, Key: pin.Key}))
			if err != nil || texture == nil || texture.Width < 1 || texture.Height < 1 {
				continue
			}
			w, ht := float32(texture.Width), float32(texture.Height)
			if !found {
				size = f32.Vec2{w, ht}
				found = true
			} else {
				size = f32.Vec2{max(size[0], w), max(size[1], ht)}
			}
		}
	}
	if size[1] <= 0 {
		size = f32.Vec2{DefaultNodeWidth, DefaultNodeHeight}
	}
	aspect := size[0] / size[1]
	return f32.Vec2{aspect * imageSize, imageSize}
}
