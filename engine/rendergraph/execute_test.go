package rendergraph

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// shadowViewportPresent builds shadow -> viewport -> window, registered in
// reverse order.
func shadowViewportPresent(t *testing.T, rec *recorder) (*Rendergraph, *testNode, *testNode, *testSink) {
	t.Helper()
	g := New()
	window := newTestSink("window", rec, metadata.Viewport{Width: 1920, Height: 1080})
	assert.NoError(t, window.RegisterInput(ResourceProvidedByConsumer, "viewport", keyViewport))
	viewport := newTestNode("viewport", rec).
		input(t, ResourceProvidedByProducer, keyShadowMaps).
		output(t, ResourceProvidedByConsumer, keyViewport)
	shadow := newTestNode("shadow", rec).output(t, ResourceProvidedByProducer, keyShadowMaps)

	hw := register(t, g, window)
	hv := register(t, g, viewport)
	hs := register(t, g, shadow)
	assert.NoError(t, g.Connect(keyShadowMaps, hs, hv))
	assert.NoError(t, g.Connect(keyViewport, hv, hw))
	return g, shadow, viewport, window
}

func TestExecute(t *testing.T) {
	t.Run("shadow viewport present", func(t *testing.T) {
		rec := &recorder{}
		g, _, viewport, _ := shadowViewportPresent(t, rec)

		var seen metadata.Viewport
		viewport.exec = func(ctx *ExecutionContext) error {
			v, err := ctx.ProducerOutputViewport(ResourceProvidedByConsumer, keyViewport)
			seen = v
			return err
		}

		assert.NoError(t, g.Execute())
		assert.Equal(t, []string{"shadow", "viewport", "window"}, rec.list())
		assert.Equal(t, metadata.Viewport{Width: 1920, Height: 1080}, seen)

		assert.NoError(t, g.Execute())
		assert.Equal(t, []string{"shadow", "viewport", "window", "shadow", "viewport", "window"}, rec.list())
	})

	t.Run("disabled nodes are skipped", func(t *testing.T) {
		rec := &recorder{}
		g, shadow, _, _ := shadowViewportPresent(t, rec)
		shadow.SetEnabled(false)

		assert.NoError(t, g.Execute())
		assert.Equal(t, []string{"viewport", "window"}, rec.list())
	})

	t.Run("node errors are collected", func(t *testing.T) {
		errShadow := errors.New("shadow failed")
		errViewport := errors.New("viewport failed")

		rec := &recorder{}
		g, shadow, viewport, _ := shadowViewportPresent(t, rec)
		shadow.exec = func(*ExecutionContext) error { return errShadow }
		viewport.exec = func(*ExecutionContext) error { return errViewport }

		err := g.Execute()
		assert.True(t, errors.Is(err, errShadow))
		assert.True(t, errors.Is(err, errViewport))
		assert.Contains(t, err.Error(), "node 'shadow'")
		// The frame still runs to the end.
		assert.Equal(t, []string{"shadow", "viewport", "window"}, rec.list())
	})

	t.Run("cycle fails the frame", func(t *testing.T) {
		rec := &recorder{}
		g := New()
		a := register(t, g, newTestNode("a", rec).input(t, RoutingNone, keyColor).output(t, RoutingNone, keyColor))
		b := register(t, g, newTestNode("b", rec).input(t, RoutingNone, keyColor).output(t, RoutingNone, keyColor))
		g.mu.Lock()
		g.edges = append(g.edges,
			Edge{Key: keyColor, Producer: a, Consumer: b},
			Edge{Key: keyColor, Producer: b, Consumer: a},
		)
		g.invalidate()
		g.mu.Unlock()

		assert.True(t, errors.Is(g.Execute(), ErrCycleDetected))
		assert.True(t, errors.Is(g.ExecuteParallel(context.Background()), ErrCycleDetected))
		assert.Equal(t, 0, len(rec.list()))
	})

	t.Run("frame counter and context", func(t *testing.T) {
		g := New()
		n := newTestNode("n", nil)
		h := register(t, g, n)

		var frames []uint64
		n.exec = func(ctx *ExecutionContext) error {
			frames = append(frames, ctx.Frame())
			assert.Equal(t, h, ctx.Handle())
			assert.Equal(t, 0, ctx.Depth(h))
			assert.True(t, ctx.Context() != nil)
			return nil
		}
		for i := 0; i < 3; i++ {
			assert.NoError(t, g.Execute())
		}
		assert.Equal(t, []uint64{0, 1, 2}, frames)
	})

	t.Run("nodes may query the graph while it executes", func(t *testing.T) {
		rec := &recorder{}
		g, shadow, _, window := shadowViewportPresent(t, rec)
		shadow.exec = func(ctx *ExecutionContext) error {
			v, err := ctx.Resources().ConsumerInput(window.Handle(), Query{Kind: ResourceViewport, Routing: ResourceProvidedByConsumer, Key: keyViewport})
			if err != nil {
				return err
			}
			assert.Equal(t, metadata.Viewport{Width: 1920, Height: 1080}, v.(metadata.Viewport))
			return nil
		}
		assert.NoError(t, g.Execute())
	})
}

func TestExecuteParallel(t *testing.T) {
	diamond := func(t *testing.T, rec *recorder) (*Rendergraph, map[string]*testNode) {
		t.Helper()
		g := New()
		nodes := map[string]*testNode{}
		handles := map[string]Handle{}
		for _, name := range []string{"d", "c", "b", "a"} {
			nodes[name] = newTestNode(name, rec).input(t, RoutingNone, keyColor).output(t, RoutingNone, keyColor)
			handles[name] = register(t, g, nodes[name])
		}
		for _, pair := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}} {
			assert.NoError(t, g.Connect(keyColor, handles[pair[0]], handles[pair[1]]))
		}
		return g, nodes
	}

	t.Run("levels run in depth order", func(t *testing.T) {
		rec := &recorder{}
		g, _ := diamond(t, rec)
		assert.NoError(t, g.ExecuteParallel(context.Background()))

		names := rec.list()
		assert.Equal(t, 4, len(names))
		assert.Equal(t, "a", names[0])
		assert.Equal(t, "d", names[3])
		assert.Equal(t, map[string]bool{"b": true, "c": true}, map[string]bool{names[1]: true, names[2]: true})
	})

	t.Run("failing level stops the frame", func(t *testing.T) {
		errB := errors.New("b failed")
		rec := &recorder{}
		g, nodes := diamond(t, rec)
		nodes["b"].exec = func(*ExecutionContext) error { return errB }

		err := g.ExecuteParallel(context.Background())
		assert.True(t, errors.Is(err, errB))
		assert.False(t, slices.Contains(rec.list(), "d"))
		assert.True(t, slices.Contains(rec.list(), "c"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		rec := &recorder{}
		g, _ := diamond(t, rec)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := g.ExecuteParallel(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 0, len(rec.list()))
	})

	t.Run("frame counter advances", func(t *testing.T) {
		g, nodes := diamond(t, nil)
		var frame uint64
		nodes["d"].exec = func(ctx *ExecutionContext) error {
			frame = ctx.Frame()
			return nil
		}
		assert.NoError(t, g.ExecuteParallel(context.Background()))
		assert.NoError(t, g.Execute())
		assert.Equal(t, uint64(1), frame)
	})
}
