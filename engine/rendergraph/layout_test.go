package rendergraph

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"golang.org/x/image/math/f32"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func TestAutomaticLayout(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		assert.NoError(t, New().AutomaticLayout(100))
	})

	t.Run("columns follow depth", func(t *testing.T) {
		g, shadow, viewport, window := shadowViewportPresent(t, nil)
		debug := newTestNode("debug", nil)
		register(t, g, debug)

		assert.NoError(t, g.AutomaticLayout(100))

		// Default nodes are 400x100. Column 0 holds shadow and debug, the
		// other columns a single centered node.
		assert.Equal(t, f32.Vec2{0, 0}, shadow.Position())
		assert.Equal(t, f32.Vec2{0, 120}, debug.Position())
		assert.Equal(t, f32.Vec2{440, 60}, viewport.Position())
		assert.Equal(t, f32.Vec2{880, 60}, window.Position())
	})

	t.Run("node sizes", func(t *testing.T) {
		g := New()
		plain := register(t, g, newTestNode("plain", nil))

		sized := newTestNode("sized", nil)
		sized.SetSize(f32.Vec2{300, 300})
		hSized := register(t, g, sized)

		textured := &textureNode{
			testNode: newTestNode("textured", nil).output(t, ResourceProvidedByProducer, keyColor),
			texture:  &metadata.Texture{Width: 512, Height: 256},
		}
		hTextured := register(t, g, textured)

		assert.Equal(t, f32.Vec2{400, 100}, g.effectiveSize(plain, 100))
		assert.Equal(t, f32.Vec2{100, 100}, g.effectiveSize(hSized, 100))
		assert.Equal(t, f32.Vec2{200, 100}, g.effectiveSize(hTextured, 100))
	})
}
