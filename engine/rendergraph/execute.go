package rendergraph

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// ExecutionContext is handed to Node.Execute. Resource queries made through
// it do not take the graph lock, which Execute already holds.
type ExecutionContext struct {
	ctx    context.Context
	graph  *Rendergraph
	handle Handle
	frame  uint64
}

func (c *ExecutionContext) Context() context.Context {
	return c.ctx
}

// Handle returns the handle of the executing node.
func (c *ExecutionContext) Handle() Handle {
	return c.handle
}

// Frame returns how many times the graph has been executed before.
func (c *ExecutionContext) Frame() uint64 {
	return c.frame
}

// Resources gives access to the unlocked resource queries.
func (c *ExecutionContext) Resources() Resources {
	return resolver{g: c.graph}
}

// Depth returns the depth of node h as of the sort preceding this frame.
func (c *ExecutionContext) Depth(h Handle) int {
	slot, err := c.graph.lookup(h)
	if err != nil {
		return 0
	}
	return slot.node.base().Depth()
}

// ProducerOutputViewport asks what viewport the executing node renders to on
// its output key.
func (c *ExecutionContext) ProducerOutputViewport(routing Routing, key Key) (metadata.Viewport, error) {
	return viewportOf(c.Resources().ProducerOutput(c.handle, Query{Kind: ResourceViewport, Routing: routing, Key: key}))
}

// ConsumerInputViewport asks what viewport the executing node reads on its
// input key.
func (c *ExecutionContext) ConsumerInputViewport(routing Routing, key Key) (metadata.Viewport, error) {
	return viewportOf(c.Resources().ConsumerInput(c.handle, Query{Kind: ResourceViewport, Routing: routing, Key: key}))
}

func (c *ExecutionContext) ProducerOutputTexture(routing Routing, key Key) (*metadata.Texture, error) {
	return textureOf(c.Resources().ProducerOutput(c.handle, Query{Kind: ResourceTexture, Routing: routing, Key: key}))
}

func (c *ExecutionContext) ConsumerInputTexture(routing Routing, key Key) (*metadata.Texture, error) {
	return textureOf(c.Resources().ConsumerInput(c.handle, Query{Kind: ResourceTexture, Routing: routing, Key: key}))
}

// Execute runs every enabled node once, in dependency order, re-sorting
// first if the graph changed. A failing node does not stop the frame; all
// node errors are returned together. A cycle fails the whole frame.
func (g *Rendergraph) Execute() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.sort(); err != nil {
		return err
	}

	var errs error
	for _, h := range g.order {
		errs = multierr.Append(errs, g.executeNode(context.Background(), h))
	}
	g.frame++
	return errs
}

// ExecuteParallel is Execute with the nodes of equal depth running
// concurrently. Every producer still completes before its consumers start.
// Levels after the first failing one, or after ctx is done, are not run.
func (g *Rendergraph) ExecuteParallel(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.sort(); err != nil {
		return err
	}
	defer func() { g.frame++ }()

	var levels [][]Handle
	for _, h := range g.order {
		slot, _ := g.lookup(h)
		d := slot.node.base().Depth()
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], h)
	}

	var (
		errMu sync.Mutex
		errs  error
	)
	for depth, level := range levels {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, fmt.Errorf("rendergraph level %d not run: %w", depth, err))
		}
		eg, egCtx := errgroup.WithContext(ctx)
		for _, h := range level {
			eg.Go(func() error {
				err := g.executeNode(egCtx, h)
				if err != nil {
					errMu.Lock()
					errs = multierr.Append(errs, err)
					errMu.Unlock()
				}
				return err
			})
		}
		if eg.Wait() != nil {
			return errs
		}
	}
	return errs
}

func (g *Rendergraph) executeNode(ctx context.Context, h Handle) error {
	slot, err := g.lookup(h)
	if err != nil {
		return err
	}
	if !slot.node.Enabled() {
		return nil
	}
	err = slot.node.Execute(&ExecutionContext{ctx: ctx, graph: g, handle: h, frame: g.frame})
	if err != nil {
		core.LogError("rendergraph node '%s' failed: %s", slot.node.Name(), err)
		return fmt.Errorf("node '%s': %w", slot.node.Name(), err)
	}
	return nil
}
