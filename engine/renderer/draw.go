package renderer

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// legacyGeometry is drawn only while no mesh was ever added.
type legacyGeometry struct {
	vertices   *metadata.Buffer
	indices    *metadata.Buffer
	indexCount uint32
}

// SetLegacyGeometry uploads a single mesh drawn with a fixed transform when
// the registry is empty.
func (r *Renderer) SetLegacyGeometry(vertices []metadata.Vertex, indices []uint32) error {
	vb, ib, err := r.uploadGeometry(metadata.SliceBytes(vertices), len(vertices), indices)
	if err != nil {
		return err
	}
	r.destroyLegacy()
	r.legacy = &legacyGeometry{vertices: vb, indices: ib, indexCount: uint32(len(indices))}
	return nil
}

func (r *Renderer) destroyLegacy() {
	if r.legacy == nil {
		return
	}
	r.backend.DestroyBuffer(r.legacy.vertices)
	r.backend.DestroyBuffer(r.legacy.indices)
	r.legacy = nil
}

// frameState tracks what the command buffer of the current frame has bound.
type frameState struct {
	camera   metadata.Camera
	time     float32
	pipeline *metadata.Pipeline
	binds    int
	draws    int
}

func (r *Renderer) bind(fs *frameState, p *metadata.Pipeline) {
	if fs.pipeline != nil && fs.pipeline.Name == p.Name {
		return
	}
	r.backend.BindPipeline(p)
	fs.pipeline = p
	fs.binds++
}

// DrawFrame records and presents one frame: every live mesh in slot order,
// the legacy geometry when the registry is empty, then the overlay. A frame
// that fails to begin or end is logged and dropped; the returned error is
// then marked with core.ErrFrameDropped.
func (r *Renderer) DrawFrame(camera metadata.Camera, time float32) error {
	image, err := r.backend.BeginFrame(r.config.ClearColor)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		r.frameLog.Error("begin", "failed to begin frame, dropping it: %s", err)
		return errors.Mark(err, core.ErrFrameDropped)
	}

	fs := &frameState{camera: camera, time: time}
	for i, m := range r.meshes {
		r.drawMesh(fs, i, m)
	}
	if len(r.meshes) == 0 && r.legacy != nil {
		r.drawLegacy(fs)
	}
	r.drawOverlay(fs)

	err = r.backend.EndFrame(image)
	r.frame++
	r.releaseRetired()
	if err != nil {
		r.frameLog.Error("end", "failed to submit frame, dropping it: %s", err)
		return errors.Mark(err, core.ErrFrameDropped)
	}
	r.frameLog.Debug("frame", "frame recorded on image %d: %d pipeline binds, %d draws", image, fs.binds, fs.draws)
	return nil
}

// drawable reports whether the mesh would emit at least one draw.
func drawable(m *MeshEntry) bool {
	return m != nil && m.Instancing != nil && !m.Instancing.Empty() && m.IndexCount > 0
}

// descriptorFor picks the set bound for a mesh on pipeline p. A pipeline
// that samples a texture falls back to the placeholder.
func (r *Renderer) descriptorFor(m *MeshEntry, p *metadata.Pipeline) (*metadata.DescriptorSet, bool) {
	if len(p.Config.DescriptorLayouts) == 0 {
		return nil, true
	}
	want := p.Config.DescriptorLayouts[0]
	switch {
	case m.Skin != nil && m.Skin.Set != nil && want == metadata.DescriptorLayoutSkinned:
		return m.Skin.Set, true
	case m.Texture != nil && m.Texture.Set != nil && want == metadata.DescriptorLayoutTexture:
		return m.Texture.Set, true
	case want == metadata.DescriptorLayoutTexture && r.placeholder != nil:
		return r.placeholder.Set, true
	}
	return nil, false
}

func (r *Renderer) drawMesh(fs *frameState, index int, m *MeshEntry) {
	if !drawable(m) {
		return
	}
	p := r.resolvePipeline(m.Pipeline)
	if p == nil {
		r.frameLog.Error("no-default", "default pipeline missing, skipping mesh %d", index)
		return
	}
	if !strideMatches(m, p) {
		r.frameLog.Warn("stride:"+strconv.Itoa(index), "mesh %d has %d byte vertices, pipeline '%s' reads %d, skipping", index, m.VertexSize, p.Name, p.Config.Layout.Bindings[0].Stride)
		return
	}
	set, ok := r.descriptorFor(m, p)
	if !ok {
		r.frameLog.Warn("set:"+strconv.Itoa(index), "mesh %d lacks the descriptor set pipeline '%s' reads, skipping", index, p.Name)
		return
	}
	if m.Skin != nil {
		if err := r.writeCamera(m.Skin, fs.camera); err != nil {
			r.frameLog.Error("camera:"+strconv.Itoa(index), "failed to write camera uniforms of mesh %d, skipping it: %s", index, err)
			return
		}
	}

	r.bind(fs, p)
	switch inst := m.Instancing.(type) {
	case metadata.Instanced:
		r.backend.BindVertexBuffers(m.VertexBuffer, inst.Buffer)
		r.backend.BindIndexBuffer(m.IndexBuffer)
		if set != nil {
			r.backend.BindDescriptorSet(p, set)
		}
		r.push(fs, p, m, mgl32.Ident4())
		r.backend.DrawIndexed(m.IndexCount, inst.Count, 0, 0)
		fs.draws++

	case metadata.Individual:
		r.backend.BindVertexBuffers(m.VertexBuffer)
		r.backend.BindIndexBuffer(m.IndexBuffer)
		if set != nil {
			r.backend.BindDescriptorSet(p, set)
		}
		for _, model := range inst.Transforms {
			r.push(fs, p, m, model)
			r.backend.DrawIndexed(m.IndexCount, 1, 0, 0)
			fs.draws++
		}
	}
}

// strideMatches reports whether the mesh's vertex buffer fits the
// pipeline's per-vertex binding.
func strideMatches(m *MeshEntry, p *metadata.Pipeline) bool {
	bindings := p.Config.Layout.Bindings
	if len(bindings) == 0 || m.VertexSize == 0 {
		return true
	}
	return bindings[0].Stride == m.VertexSize
}

// push writes the per-draw constants the pipeline declares: time only, or
// the full model, view, projection and color block.
func (r *Renderer) push(fs *frameState, p *metadata.Pipeline, m *MeshEntry, model mgl32.Mat4) {
	if len(p.Config.PushConstants) == 0 {
		return
	}
	switch pushRange := p.Config.PushConstants[0]; pushRange {
	case metadata.TimePushRange:
		pc := metadata.TimePush{Time: fs.time}
		r.backend.PushConstants(p, pushRange, metadata.AsBytes(&pc))
	case metadata.MVPPushRange:
		pc := metadata.MVPPush{
			Model: model,
			View:  fs.camera.View,
			Proj:  fs.camera.Proj,
			Color: m.Color,
		}
		r.backend.PushConstants(p, pushRange, metadata.AsBytes(&pc))
	default:
		r.frameLog.Warn("push:"+p.Name, "pipeline '%s' declares a %d byte push range no mesh fills", p.Name, pushRange.Size)
	}
}

func (r *Renderer) drawLegacy(fs *frameState) {
	p := r.resolvePipeline(r.currentPipeline)
	if p == nil {
		return
	}
	set, ok := r.descriptorFor(&MeshEntry{}, p)
	if !ok {
		r.frameLog.Warn("legacy", "legacy geometry cannot use pipeline '%s'", p.Name)
		return
	}
	r.bind(fs, p)
	r.backend.BindVertexBuffers(r.legacy.vertices)
	r.backend.BindIndexBuffer(r.legacy.indices)
	if set != nil {
		r.backend.BindDescriptorSet(p, set)
	}
	pc := metadata.MVPPush{
		Model: metadata.LegacyModel(),
		View:  fs.camera.View,
		Proj:  fs.camera.Proj,
		Color: mgl32.Vec4{1, 1, 1, 1},
	}
	r.backend.PushConstants(p, metadata.MVPPushRange, metadata.AsBytes(&pc))
	r.backend.DrawIndexed(r.legacy.indexCount, 1, 0, 0)
	fs.draws++
}
