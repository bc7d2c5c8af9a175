package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/frame"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

type overlayBuffers struct {
	vertices *metadata.Buffer
	indices  *metadata.Buffer
}

type overlayState struct {
	primitives []metadata.ClippedPrimitive
	delta      metadata.TexturesDelta
	textures   map[metadata.TextureID]*metadata.Texture
	// one pair per frame slot, the slot fence guards reuse
	buffers [frame.MaxFramesInFlight]overlayBuffers
}

// SubmitOverlay hands over the paint output of the UI for the next frame.
// Primitives replace any not yet drawn; texture deltas accumulate so no
// upload or release is lost when frames are skipped.
func (r *Renderer) SubmitOverlay(primitives []metadata.ClippedPrimitive, delta metadata.TexturesDelta) {
	r.overlay.primitives = primitives
	r.overlay.delta.Set = append(r.overlay.delta.Set, delta.Set...)
	r.overlay.delta.Free = append(r.overlay.delta.Free, delta.Free...)
}

// OverlayTexture returns the texture uploaded for id.
func (r *Renderer) OverlayTexture(id metadata.TextureID) (*metadata.Texture, bool) {
	t, ok := r.overlay.textures[id]
	return t, ok
}

func (r *Renderer) applyOverlayTextures() {
	if r.overlay.textures == nil {
		r.overlay.textures = make(map[metadata.TextureID]*metadata.Texture)
	}
	for _, u := range r.overlay.delta.Set {
		if err := u.Image.Validate(); err != nil {
			core.LogError("invalid overlay texture %s: %s", u.ID, err)
			continue
		}
		tex, err := r.backend.CreateTexture([]metadata.TextureData{u.Image})
		if err != nil {
			core.LogError("failed to upload overlay texture %s: %s", u.ID, err)
			continue
		}
		tex.ID = u.ID
		if old, ok := r.overlay.textures[u.ID]; ok {
			r.retireTexture(old)
		}
		r.overlay.textures[u.ID] = tex
	}
	r.overlay.delta.Set = nil
}

func (r *Renderer) freeOverlayTextures() {
	for _, id := range r.overlay.delta.Free {
		if t, ok := r.overlay.textures[id]; ok {
			r.retireTexture(t)
			delete(r.overlay.textures, id)
		}
	}
	r.overlay.delta.Free = nil
}

// ensureOverlayBuffer returns a host-visible buffer of at least size bytes,
// replacing a smaller one.
func (r *Renderer) ensureOverlayBuffer(buf **metadata.Buffer, usage metadata.BufferUsage, size uint64) error {
	if *buf != nil && (*buf).Size >= size {
		return nil
	}
	if *buf != nil {
		r.backend.DestroyBuffer(*buf)
		*buf = nil
	}
	b, err := r.backend.CreateBuffer(usage, max(size, 64*1024), true)
	if err != nil {
		return err
	}
	*buf = b
	return nil
}

func (r *Renderer) uploadOverlay(vertices []metadata.UIVertex, indices []uint32) (overlayBuffers, error) {
	slot := &r.overlay.buffers[r.frame%frame.MaxFramesInFlight]
	vdata := metadata.SliceBytes(vertices)
	idata := metadata.SliceBytes(indices)
	if err := r.ensureOverlayBuffer(&slot.vertices, metadata.BufferUsageVertex, uint64(len(vdata))); err != nil {
		return overlayBuffers{}, errors.Wrap(err, "overlay vertex buffer")
	}
	if err := r.ensureOverlayBuffer(&slot.indices, metadata.BufferUsageIndex, uint64(len(idata))); err != nil {
		return overlayBuffers{}, errors.Wrap(err, "overlay index buffer")
	}
	if err := r.backend.WriteBuffer(slot.vertices, 0, vdata); err != nil {
		return overlayBuffers{}, err
	}
	if err := r.backend.WriteBuffer(slot.indices, 0, idata); err != nil {
		return overlayBuffers{}, err
	}
	return *slot, nil
}

// clipToFramebuffer clamps a clip rectangle to the framebuffer.
func clipToFramebuffer(c metadata.Rect, width, height float32) (metadata.Rect, bool) {
	c.MinX = mgl32.Clamp(c.MinX, 0, width)
	c.MinY = mgl32.Clamp(c.MinY, 0, height)
	c.MaxX = mgl32.Clamp(c.MaxX, c.MinX, width)
	c.MaxY = mgl32.Clamp(c.MaxY, c.MinY, height)
	return c, c.MaxX > c.MinX && c.MaxY > c.MinY
}

// drawOverlay paints the submitted primitives on top of the scene and
// consumes them.
func (r *Renderer) drawOverlay(fs *frameState) {
	r.applyOverlayTextures()
	defer r.freeOverlayTextures()

	primitives := r.overlay.primitives
	r.overlay.primitives = nil
	if len(primitives) == 0 {
		return
	}
	p, ok := r.pipelines[metadata.PipelineUI]
	if !ok {
		r.frameLog.Warn("ui", "overlay pipeline missing, skipping overlay")
		return
	}

	var (
		vertices []metadata.UIVertex
		indices  []uint32
	)
	type span struct {
		clip         metadata.Rect
		texture      metadata.TextureID
		firstIndex   uint32
		indexCount   uint32
		vertexOffset int32
	}
	spans := make([]span, 0, len(primitives))
	for _, prim := range primitives {
		if len(prim.Mesh.Indices) == 0 || len(prim.Mesh.Vertices) == 0 {
			continue
		}
		spans = append(spans, span{
			clip:         prim.Clip,
			texture:      prim.Mesh.Texture,
			firstIndex:   uint32(len(indices)),
			indexCount:   uint32(len(prim.Mesh.Indices)),
			vertexOffset: int32(len(vertices)),
		})
		vertices = append(vertices, prim.Mesh.Vertices...)
		indices = append(indices, prim.Mesh.Indices...)
	}
	if len(spans) == 0 {
		return
	}

	bufs, err := r.uploadOverlay(vertices, indices)
	if err != nil {
		r.frameLog.Error("ui-upload", "failed to upload overlay, skipping it: %s", err)
		return
	}

	w, h := r.backend.FramebufferSize()
	screen := metadata.ScreenPush{Size: mgl32.Vec2{float32(w), float32(h)}}

	r.bind(fs, p)
	r.backend.BindVertexBuffers(bufs.vertices)
	r.backend.BindIndexBuffer(bufs.indices)
	r.backend.PushConstants(p, metadata.ScreenPushRange, metadata.AsBytes(&screen))
	for _, s := range spans {
		clip, visible := clipToFramebuffer(s.clip, float32(w), float32(h))
		if !visible {
			continue
		}
		tex, ok := r.overlay.textures[s.texture]
		if !ok {
			tex = r.placeholder
		}
		if tex != nil && tex.Set != nil {
			r.backend.BindDescriptorSet(p, tex.Set)
		}
		r.backend.SetScissor(clip)
		r.backend.DrawIndexed(s.indexCount, 1, s.firstIndex, s.vertexOffset)
		fs.draws++
	}
}

func (r *Renderer) destroyOverlay() {
	for i := range r.overlay.buffers {
		b := &r.overlay.buffers[i]
		if b.vertices != nil {
			r.backend.DestroyBuffer(b.vertices)
		}
		if b.indices != nil {
			r.backend.DestroyBuffer(b.indices)
		}
		*b = overlayBuffers{}
	}
	for id, t := range r.overlay.textures {
		r.backend.DestroyTexture(t)
		delete(r.overlay.textures, id)
	}
}
