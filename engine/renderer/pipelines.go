package renderer

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

func shaderPaths(name string) (string, string) {
	return "shaders/" + name + ".vert.spv", "shaders/" + name + ".frag.spv"
}

// builtinPipelines lists the pipelines every renderer registers on start up.
func builtinPipelines() []metadata.PipelineConfig {
	pipeline := func(name string, layout metadata.VertexLayout, push metadata.PushConstantRange, sets ...metadata.DescriptorLayout) metadata.PipelineConfig {
		vert, frag := shaderPaths(name)
		return metadata.PipelineConfig{
			Name:              name,
			VertexShader:      vert,
			FragmentShader:    frag,
			Layout:            layout,
			PushConstants:     []metadata.PushConstantRange{push},
			DescriptorLayouts: sets,
			CullMode:          metadata.CullModeBack,
			FrontFace:         metadata.FrontFaceCounterClockwise,
			DepthTest:         true,
		}
	}

	ui := pipeline(metadata.PipelineUI, metadata.UILayout(), metadata.ScreenPushRange, metadata.DescriptorLayoutTexture)
	ui.CullMode = metadata.CullModeNone
	ui.DepthTest = false
	ui.AlphaBlending = true

	return []metadata.PipelineConfig{
		pipeline(metadata.PipelineDefault, metadata.MeshLayout(), metadata.MVPPushRange),
		pipeline(metadata.PipelineInstanced, metadata.InstancedMeshLayout(), metadata.MVPPushRange),
		pipeline(metadata.PipelineSkinned, metadata.SkinnedLayout(), metadata.TimePushRange, metadata.DescriptorLayoutSkinned),
		pipeline(metadata.PipelineSkinnedInst, metadata.InstancedSkinnedLayout(), metadata.TimePushRange, metadata.DescriptorLayoutSkinned),
		pipeline(metadata.PipelineTextured, metadata.MeshLayout(), metadata.MVPPushRange, metadata.DescriptorLayoutTexture),
		pipeline(metadata.PipelineTextureArray, metadata.TexturedLayout(), metadata.MVPPushRange, metadata.DescriptorLayoutTexture),
		ui,
	}
}

func (r *Renderer) loadShader(name string) ([]uint32, error) {
	res, err := r.assets.LoadAsset(name, loaders.ResourceTypeShader, nil)
	if err != nil {
		return nil, err
	}
	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, errors.Newf("shader %s did not load as SPIR-V", name)
	}
	return code, nil
}

// AddPipeline builds a pipeline and registers it under config.Name. An
// existing pipeline of the same name is replaced once the device is idle.
// Pipelines are never removed.
func (r *Renderer) AddPipeline(config metadata.PipelineConfig) error {
	if config.Name == "" {
		return errors.New("pipeline needs a name")
	}
	vert, err := r.loadShader(config.VertexShader)
	if err != nil {
		return errors.Wrapf(err, "pipeline %s: vertex shader", config.Name)
	}
	frag, err := r.loadShader(config.FragmentShader)
	if err != nil {
		return errors.Wrapf(err, "pipeline %s: fragment shader", config.Name)
	}

	pipeline, err := r.backend.CreatePipeline(&config, vert, frag)
	if err != nil {
		return errors.Wrapf(err, "building pipeline %s", config.Name)
	}

	if old, ok := r.pipelines[config.Name]; ok {
		if err := r.backend.WaitIdle(); err != nil {
			r.backend.DestroyPipeline(pipeline)
			return err
		}
		r.backend.DestroyPipeline(old)
	}
	r.pipelines[config.Name] = pipeline
	core.LogDebug("Pipeline '%s' registered.", config.Name)
	return nil
}

// SetCurrentPipeline selects the pipeline used for legacy geometry.
func (r *Renderer) SetCurrentPipeline(name string) error {
	if _, ok := r.pipelines[name]; !ok {
		return errors.Mark(errors.Newf("pipeline '%s' not found", name), core.ErrPipelineNotFound)
	}
	r.currentPipeline = name
	return nil
}

func (r *Renderer) CurrentPipeline() string {
	return r.currentPipeline
}

func (r *Renderer) Pipeline(name string) (*metadata.Pipeline, bool) {
	p, ok := r.pipelines[name]
	return p, ok
}

// resolvePipeline maps a mesh override onto a registered pipeline. Unknown
// names fall back to the default pipeline.
func (r *Renderer) resolvePipeline(name string) *metadata.Pipeline {
	if name == "" {
		name = metadata.PipelineDefault
	}
	if p, ok := r.pipelines[name]; ok {
		return p
	}
	r.frameLog.Warn("pipeline:"+name, "pipeline '%s' not found, using default", name)
	return r.pipelines[metadata.PipelineDefault]
}

// ReloadChangedShaders drains the changed-file channel and rebuilds every
// pipeline reading one of the files. A pipeline that fails to rebuild keeps
// its previous version.
func (r *Renderer) ReloadChangedShaders(changed <-chan string) int {
	paths := make(map[string]struct{})
drain:
	for {
		select {
		case p, ok := <-changed:
			if !ok {
				break drain
			}
			paths[filepath.Clean(p)] = struct{}{}
		default:
			break drain
		}
	}
	if len(paths) == 0 {
		return 0
	}

	rebuilt := 0
	for _, p := range r.pipelines {
		_, vert := paths[filepath.Clean(r.assets.Resolve(p.Config.VertexShader))]
		_, frag := paths[filepath.Clean(r.assets.Resolve(p.Config.FragmentShader))]
		if !vert && !frag {
			continue
		}
		if err := r.AddPipeline(p.Config); err != nil {
			core.LogError("shader reload of '%s' failed, keeping previous pipeline: %s", p.Name, err)
			continue
		}
		core.LogInfo("Pipeline '%s' reloaded.", p.Name)
		rebuilt++
	}
	return rebuilt
}
