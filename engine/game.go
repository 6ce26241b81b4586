package engine

import (
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/rendergraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

// Game is what the engine runs. The engine fills Renderer, SystemManager and
// Rendergraph before calling FnInitialize, which is where the game registers
// and connects its passes.
type Game struct {
	Config core.Config
	State  interface{}

	Renderer      *renderer.Renderer
	SystemManager *systems.SystemManager
	Rendergraph   *rendergraph.Rendergraph

	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
