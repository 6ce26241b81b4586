package rendergraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func TestResourceQueries(t *testing.T) {
	window := metadata.Viewport{Width: 1280, Height: 720}

	t.Run("viewport passes through intermediate nodes", func(t *testing.T) {
		g := New()
		scene := register(t, g, newTestNode("scene", nil).output(t, ResourceProvidedByConsumer, keyViewport))
		post := register(t, g, newTestNode("post", nil).
			input(t, ResourceProvidedByConsumer, keyViewport).
			output(t, ResourceProvidedByConsumer, keyViewport))
		sink := newTestSink("window", nil, window)
		assert.NoError(t, sink.RegisterInput(ResourceProvidedByConsumer, "viewport", keyViewport))
		hs := register(t, g, sink)
		assert.NoError(t, g.Connect(keyViewport, scene, post))
		assert.NoError(t, g.Connect(keyViewport, post, hs))

		v, err := g.ProducerOutputViewport(scene, ResourceProvidedByConsumer, keyViewport)
		assert.NoError(t, err)
		assert.Equal(t, window, v)

		v, err = g.ConsumerInputViewport(post, ResourceProvidedByConsumer, keyViewport)
		assert.NoError(t, err)
		assert.Equal(t, window, v)
	})

	t.Run("unconnected output", func(t *testing.T) {
		g := New()
		scene := register(t, g, newTestNode("scene", nil).output(t, ResourceProvidedByConsumer, keyViewport))
		_, err := g.ProducerOutputViewport(scene, ResourceProvidedByConsumer, keyViewport)
		assert.True(t, errors.Is(err, ErrNotConnected))

		_, err = g.ProducerOutputViewport(scene, ResourceProvidedByConsumer, keyColor)
		assert.True(t, errors.Is(err, ErrPinNotFound))

		_, err = g.ProducerOutputViewport(Handle{}, ResourceProvidedByConsumer, keyViewport)
		assert.True(t, errors.Is(err, ErrNodeNotRegistered))
	})

	t.Run("texture comes from its producer", func(t *testing.T) {
		g := New()
		shadowMaps := &metadata.Texture{Name: "shadow maps", TextureType: metadata.TextureType2dArray, Width: 2048, Height: 2048, LayerCount: 4}
		shadow := &textureNode{
			testNode: newTestNode("shadow", nil).output(t, ResourceProvidedByProducer, keyShadowMaps),
			texture:  shadowMaps,
		}
		hShadow := register(t, g, shadow)
		relay := register(t, g, newTestNode("relay", nil).
			input(t, ResourceProvidedByProducer, keyShadowMaps).
			output(t, ResourceProvidedByProducer, keyShadowMaps))
		viewport := register(t, g, newTestNode("viewport", nil).input(t, RoutingDontCare, keyShadowMaps))
		assert.NoError(t, g.Connect(keyShadowMaps, hShadow, relay))
		assert.NoError(t, g.Connect(keyShadowMaps, relay, viewport))

		texture, err := g.ConsumerInputTexture(viewport, ResourceProvidedByProducer, keyShadowMaps)
		assert.NoError(t, err)
		assert.True(t, texture == shadowMaps)

		texture, err = g.ProducerOutputTexture(relay, ResourceProvidedByProducer, keyShadowMaps)
		assert.NoError(t, err)
		assert.True(t, texture == shadowMaps)
	})

	t.Run("resource of the wrong kind", func(t *testing.T) {
		g := New()
		scene := register(t, g, newTestNode("scene", nil).output(t, ResourceProvidedByConsumer, keyViewport))
		sink := newTestSink("window", nil, window)
		assert.NoError(t, sink.RegisterInput(ResourceProvidedByConsumer, "viewport", keyViewport))
		hs := register(t, g, sink)
		assert.NoError(t, g.Connect(keyViewport, scene, hs))

		_, err := g.ProducerOutputTexture(scene, ResourceProvidedByConsumer, keyViewport)
		assert.True(t, errors.Is(err, ErrResourceType))
	})

	t.Run("routing none carries no resource", func(t *testing.T) {
		g := New()
		p := register(t, g, newTestNode("p", nil).output(t, RoutingNone, keyDepth))
		_, err := g.ProducerOutputViewport(p, RoutingNone, keyDepth)
		assert.True(t, errors.Is(err, ErrRoutingMismatch))
	})

	t.Run("long chains hit the depth limit", func(t *testing.T) {
		build := func(length int, terminated bool) (*Rendergraph, Handle) {
			g := New()
			var handles []Handle
			for i := 0; i < length; i++ {
				n := newTestNode(fmt.Sprintf("n%d", i), nil)
				if i > 0 {
					n.input(t, ResourceProvidedByConsumer, keyViewport)
				}
				n.output(t, ResourceProvidedByConsumer, keyViewport)
				handles = append(handles, register(t, g, n))
			}
			if terminated {
				sink := newTestSink("window", nil, window)
				assert.NoError(t, sink.RegisterInput(ResourceProvidedByConsumer, "viewport", keyViewport))
				handles = append(handles, register(t, g, sink))
			}
			for i := 1; i < len(handles); i++ {
				assert.NoError(t, g.Connect(keyViewport, handles[i-1], handles[i]))
			}
			return g, handles[0]
		}

		g, first := build(MaxResolveDepth-1, true)
		v, err := g.ProducerOutputViewport(first, ResourceProvidedByConsumer, keyViewport)
		assert.NoError(t, err)
		assert.Equal(t, window, v)

		g, first = build(MaxResolveDepth+2, false)
		_, err = g.ProducerOutputViewport(first, ResourceProvidedByConsumer, keyViewport)
		assert.True(t, errors.Is(err, ErrMaxDepthExceeded))
	})
}
