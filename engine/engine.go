package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

var (
	ErrInvalidStage = errors.New("invalid engine stage")
	ErrNilGame      = errors.New("game is nil")
)

// releaser is implemented by passes owning backend resources.
type releaser interface {
	Release()
}

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     atomic.Bool
	renderer      *renderer.Renderer
	systemManager *systems.SystemManager
	graph         *rendergraph.Rendergraph
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	width         uint32
	height        uint32

	watcher *core.ConfigWatcher
	// Configuration reloads wait here for the next frame boundary.
	pending chan core.Config
}

func New(g *Game, backend renderer.RendererBackend) (*Engine, error) {
	if g == nil {
		return nil, ErrNilGame
	}
	if err := g.Config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if err := core.SetLogLevel(g.Config.Application.LogLevel); err != nil {
		return nil, err
	}

	r, err := renderer.New(backend, g.Config.Renderer)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		renderer:     r,
		graph:        rendergraph.New(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        g.Config.Application.Width,
		height:       g.Config.Application.Height,
		pending:      make(chan core.Config, 1),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("%w: initialize while %s", ErrInvalidStage, e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	config := e.gameInstance.Config
	if err := e.renderer.Initialize(config.Application.Name, e.width, e.height); err != nil {
		return err
	}

	sm, err := systems.NewSystemManager(e.renderer.Backend(), config.Renderer)
	if err != nil {
		return err
	}
	e.systemManager = sm

	e.gameInstance.Renderer = e.renderer
	e.gameInstance.SystemManager = sm
	e.gameInstance.Rendergraph = e.graph

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	if err := e.graph.Sort(); err != nil {
		return err
	}
	core.LogInfo("engine initialized: %d passes, %d edges", e.graph.Len(), len(e.graph.Edges()))
	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Watches the configuration file at path. Valid changes are applied
 * at the next frame boundary, invalid ones are logged and ignored.
 *
 * @param path The configuration file.
 */
func (e *Engine) WatchConfig(path string) error {
	if e.watcher != nil {
		return fmt.Errorf("%w: already watching %s", ErrInvalidStage, path)
	}
	watcher, err := core.WatchConfig(path, func(data []byte) {
		config, err := core.ParseConfig(data)
		if err != nil {
			core.LogWarn("ignoring configuration change: %s", err)
			return
		}
		e.ApplyConfig(config)
	})
	if err != nil {
		return err
	}
	e.watcher = watcher
	return nil
}

// ApplyConfig queues config for the next frame boundary. A configuration
// queued earlier and not yet applied is replaced.
func (e *Engine) ApplyConfig(config core.Config) {
	for {
		select {
		case e.pending <- config:
			return
		default:
		}
		select {
		case <-e.pending:
		default:
		}
	}
}

func (e *Engine) reconfigure(config core.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := core.SetLogLevel(config.Application.LogLevel); err != nil {
		return err
	}
	if err := e.systemManager.Reallocate(config.Renderer); err != nil {
		return err
	}
	if err := e.renderer.SetConfig(config.Renderer); err != nil {
		return err
	}
	// The window keeps its current size.
	e.gameInstance.Config.Application.Name = config.Application.Name
	e.gameInstance.Config.Application.LogLevel = config.Application.LogLevel
	e.gameInstance.Config.Renderer = config.Renderer
	core.LogInfo("configuration applied (%d frame resources, parallel execution %t)", config.Renderer.FrameResourceCount, config.Renderer.ParallelExecution)
	return nil
}

// Run draws frames until ctx is done, Stop is called or a frame fails.
func (e *Engine) Run(ctx context.Context) error {
	return e.RunFrames(ctx, -1)
}

// RunFrames draws at most count frames. A negative count never stops on its
// own.
func (e *Engine) RunFrames(ctx context.Context, count int) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: run while %s", ErrInvalidStage, e.currentStage)
	}
	e.currentStage = EngineStageRunning
	defer func() { e.currentStage = EngineStageInitialized }()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	e.isRunning.Store(true)
	for frame := 0; e.isRunning.Load() && (count < 0 || frame < count); frame++ {
		if err := ctx.Err(); err != nil {
			core.LogInfo("engine stopping: %s", err)
			break
		}
		if err := e.frame(ctx); err != nil {
			core.LogError("frame %d failed, stopping: %s", e.renderer.FrameNumber(), err)
			e.isRunning.Store(false)
			return err
		}
	}
	e.isRunning.Store(false)
	return nil
}

func (e *Engine) frame(ctx context.Context) error {
	select {
	case config := <-e.pending:
		if err := e.reconfigure(config); err != nil {
			return err
		}
	default:
	}

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return err
		}
	}

	err := e.renderer.DrawFrame(delta, func(packet *metadata.RenderPacket) error {
		e.systemManager.NextFrame()
		if e.renderer.Config().ParallelExecution {
			return e.graph.ExecuteParallel(ctx)
		}
		return e.graph.Execute()
	})
	if err != nil {
		return err
	}

	e.metrics.Update(delta)
	if e.metrics.TotalFrames()%uint64(core.AVG_COUNT) == 0 {
		core.LogDebug("frame time %.3fms, %.0f fps", e.metrics.FrameTime(), e.metrics.FPS())
	}
	return nil
}

// Stop makes Run return after the current frame. It is safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) OnResize(width, height uint32) error {
	e.width, e.height = width, height
	if err := e.renderer.OnResize(width, height); err != nil {
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(width, height)
	}
	return nil
}

// Shutdown releases everything in reverse creation order. Passes owning
// render targets release them before the backend goes away.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.Stop()

	var err error
	if e.watcher != nil {
		err = multierr.Append(err, e.watcher.Close())
		e.watcher = nil
	}
	if e.gameInstance.FnShutdown != nil {
		err = multierr.Append(err, e.gameInstance.FnShutdown())
	}
	for _, node := range e.graph.Nodes() {
		if r, ok := node.(releaser); ok {
			r.Release()
		}
	}
	if e.systemManager != nil {
		err = multierr.Append(err, e.systemManager.Shutdown())
	}
	err = multierr.Append(err, e.renderer.Shutdown())
	e.currentStage = EngineStageShutdown
	return err
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Rendergraph() *rendergraph.Rendergraph {
	return e.graph
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}
