package engine

import (
	"github.com/spaghettifunk/vesta/engine/assets"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/jobs"
	"github.com/spaghettifunk/vesta/engine/renderer"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// Game is the application driven by the engine. The engine fills the
// Renderer, Assets, Jobs, Input and Events fields before FnInitialize runs.
// Job callbacks run on the loop goroutine right before FnUpdate.
type Game struct {
	Renderer *renderer.Renderer
	Assets   *assets.AssetManager
	Jobs     *jobs.JobSystem
	Input    *core.InputState
	Events   *core.EventSystem

	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render runs right before the frame is recorded and returns the camera it
// is drawn with. Overlay primitives submitted here show up in the same
// frame.
type Render func(deltaTime float64) (metadata.Camera, error)
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
