package engine

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/assets"
	"github.com/spaghettifunk/vesta/engine/config"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/jobs"
	"github.com/spaghettifunk/vesta/engine/platform"
	"github.com/spaghettifunk/vesta/engine/renderer"
	"github.com/spaghettifunk/vesta/engine/renderer/vulkan"
)

// suspendedPollSeconds bounds how long a minimized engine blocks on window
// events before checking for cancellation again.
const suspendedPollSeconds = 0.1

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config
	isRunning    bool
	isSuspended  bool

	events       *core.EventSystem
	input        *core.InputState
	platform     *platform.Platform
	assetManager *assets.AssetManager
	jobs         *jobs.JobSystem
	backend      *vulkan.VulkanRenderer
	renderer     *renderer.Renderer

	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime float64
}

func New(g *Game, cfg *config.Config) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine needs a game")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		core.LogWarn("unknown log level %q, keeping the default: %s", cfg.Log.Level, err)
	}

	am, err := assets.NewAssetManager(cfg.Assets.Root, cfg.Assets.HotReload)
	if err != nil {
		core.LogError("failed to create the asset manager: %s", err)
		return nil, err
	}

	js, err := jobs.NewJobSystem(cfg.Jobs.Workers, cfg.Jobs.QueueSize)
	if err != nil {
		_ = am.Shutdown()
		return nil, err
	}

	events := core.NewEventSystem()
	input := core.NewInputState(events)

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		events:       events,
		input:        input,
		platform:     platform.New(events, input),
		assetManager: am,
		jobs:         js,
		clock:        core.NewClock(),
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}, nil
}

// Initialize opens the window, brings the renderer up and runs the game's
// initialization. ctx bounds every fence wait of the backend.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.currentStage != EngineStageUninitialized {
		return errors.Newf("engine cannot initialize while %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EventApplicationQuit, e, e.onEvent)
	e.events.Register(core.EventKeyPressed, e, e.onKey)
	e.events.Register(core.EventResized, e, e.onResized)

	w := e.config.Window
	if err := e.platform.Startup(w.Title, w.X, w.Y, w.Width, w.Height); err != nil {
		return err
	}
	e.width, e.height = e.platform.FramebufferSize()

	if err := e.assetManager.Initialize(); err != nil {
		return err
	}

	e.backend = vulkan.New(ctx, e.platform, e.config)
	e.renderer = renderer.New(e.backend, e.assetManager, e.config.Renderer)
	if err := e.renderer.Initialize(); err != nil {
		core.LogError("renderer initialization failed: %s", err)
		return err
	}

	g := e.gameInstance
	g.Renderer = e.renderer
	g.Assets = e.assetManager
	g.Jobs = e.jobs
	g.Input = e.input
	g.Events = e.events
	if g.FnInitialize != nil {
		if err := g.FnInitialize(); err != nil {
			return errors.Wrap(err, "game initialization")
		}
	}
	if g.FnOnResize != nil {
		if err := g.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop until the window closes, a quit event fires or
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run while %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	stats := e.renderer.FrameStats()
	g := e.gameInstance

	for e.isRunning {
		if ctx.Err() != nil {
			core.LogInfo("Context cancelled, shutting down.")
			break
		}

		if e.isSuspended {
			if !e.platform.WaitMessages(suspendedPollSeconds) {
				e.isRunning = false
			}
			continue
		}
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if n := e.renderer.ReloadChangedShaders(e.assetManager.Changed()); n > 0 {
			core.LogInfo("Reloaded %d pipelines after shader changes.", n)
		}

		// finished background work lands before the game update sees the frame
		e.jobs.Update()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if g.FnUpdate != nil {
			if err := g.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				return err
			}
		}

		camera := DefaultCamera(e.width, e.height)
		if g.FnRender != nil {
			c, err := g.FnRender(delta)
			if err != nil {
				core.LogError("Game render failed, shutting down: %s", err)
				return err
			}
			camera = c
		}

		// A dropped frame is already logged by the renderer.
		_ = e.renderer.DrawFrame(camera, float32(currentTime))

		frameElapsed := e.platform.GetAbsoluteTime() - frameStartTime
		if stats.Update(frameElapsed) {
			core.LogDebug("FPS: %.0f, frame time: %.3fms", stats.FPS(), stats.FrameTime())
		}

		// Input state copying should always be the last thing of the frame.
		e.input.Update()
		e.lastTime = currentTime
	}
	return nil
}

// Shutdown releases everything Initialize created, in reverse order.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown || e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	// workers may still be decoding assets, stop them first
	errs := e.jobs.Shutdown()
	if e.gameInstance.FnShutdown != nil && e.renderer != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
	}
	errs = errors.CombineErrors(errs, e.assetManager.Shutdown())
	e.events.Shutdown()
	if e.platform.Window != nil {
		errs = errors.CombineErrors(errs, e.platform.Shutdown())
	}

	e.currentStage = EngineStageShutdown
	return errs
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) onEvent(ctx core.EventContext, _ interface{}) bool {
	if ctx.Code == core.EventApplicationQuit {
		core.LogInfo("Quit event received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(ctx core.EventContext, _ interface{}) bool {
	if ctx.Key == core.KeyEscape {
		// Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EventContext{Code: core.EventApplicationQuit})
		return true
	}
	return false
}

func (e *Engine) onResized(ctx core.EventContext, _ interface{}) bool {
	width, height := ctx.Width, ctx.Height
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if e.renderer != nil {
		e.renderer.OnResize(width, height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize handler failed: %s", err)
		}
	}
	return false
}
