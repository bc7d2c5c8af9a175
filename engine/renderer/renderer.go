package renderer

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/config"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/frame"
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// frameLogInterval throttles messages emitted from inside the frame loop.
const frameLogInterval = time.Second

// AssetSource resolves and loads shaders and images by name.
type AssetSource interface {
	LoadAsset(name string, resourceType loaders.ResourceType, params interface{}) (*loaders.Resource, error)
	Resolve(name string) string
}

// Renderer owns the pipeline and mesh registries and turns them into one
// command buffer per frame. It performs no locking: every call must come from
// the thread driving the frame loop.
type Renderer struct {
	backend RendererBackend
	assets  AssetSource
	config  config.RendererConfig

	pipelines       map[string]*metadata.Pipeline
	currentPipeline string

	meshes []*MeshEntry
	legacy *legacyGeometry

	placeholder *metadata.Texture
	overlay     overlayState
	retired     []retiredTexture

	frame    uint64
	frameLog *core.FrameLogger
	stats    *core.FrameStats
}

func New(backend RendererBackend, assets AssetSource, cfg config.RendererConfig) *Renderer {
	return &Renderer{
		backend:         backend,
		assets:          assets,
		config:          cfg,
		pipelines:       make(map[string]*metadata.Pipeline),
		currentPipeline: metadata.PipelineDefault,
		frameLog:        core.NewFrameLogger(core.Logger(), frameLogInterval),
		stats:           core.NewFrameStats(),
	}
}

// Initialize brings the backend up and registers the built-in pipelines.
// Any failure here is fatal for the renderer.
func (r *Renderer) Initialize() error {
	if err := r.backend.Initialize(); err != nil {
		return errors.Wrap(err, "initializing renderer backend")
	}

	for _, cfg := range builtinPipelines() {
		if err := r.AddPipeline(cfg); err != nil {
			return err
		}
	}

	placeholder, err := r.backend.CreateTexture([]metadata.TextureData{metadata.PlaceholderTexture()})
	if err != nil {
		return errors.Wrap(err, "creating placeholder texture")
	}
	r.placeholder = placeholder

	core.LogInfo("Renderer initialized with %d pipelines.", len(r.pipelines))
	return nil
}

// Shutdown waits for the device and releases everything the renderer created
// before shutting the backend down.
func (r *Renderer) Shutdown() error {
	if err := r.backend.WaitIdle(); err != nil {
		core.LogError("wait idle before shutdown failed: %s", err)
	}

	for i := range r.meshes {
		r.destroyMesh(r.meshes[i])
		r.meshes[i] = nil
	}
	r.destroyLegacy()
	r.destroyOverlay()
	for _, t := range r.retired {
		r.backend.DestroyTexture(t.texture)
	}
	r.retired = nil
	if r.placeholder != nil {
		r.backend.DestroyTexture(r.placeholder)
		r.placeholder = nil
	}
	for name, p := range r.pipelines {
		r.backend.DestroyPipeline(p)
		delete(r.pipelines, name)
	}

	core.LogInfo("%s", r.MemoryStats())
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) {
	r.backend.Resized(width, height)
}

// MemoryStats reports the pooled allocator usage.
func (r *Renderer) MemoryStats() memory.Stats {
	return r.backend.MemoryStats()
}

// FrameStats returns the frame time statistics fed by the engine loop.
func (r *Renderer) FrameStats() *core.FrameStats {
	return r.stats
}

// retiredTexture is destroyed once every frame that could still sample it
// has completed.
type retiredTexture struct {
	texture *metadata.Texture
	frame   uint64
}

func (r *Renderer) retireTexture(t *metadata.Texture) {
	if t == nil || t == r.placeholder {
		return
	}
	r.retired = append(r.retired, retiredTexture{texture: t, frame: r.frame})
}

func (r *Renderer) releaseRetired() {
	kept := r.retired[:0]
	for _, t := range r.retired {
		if r.frame >= t.frame+frame.MaxFramesInFlight {
			r.backend.DestroyTexture(t.texture)
			continue
		}
		kept = append(kept, t)
	}
	r.retired = kept
}
