package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

var ErrMeshIndex = errors.New("mesh index out of range or removed")

/**
 * @brief One renderable unit: its GPU buffers, how it is replicated, the
 * pipeline it is drawn with and its optional texture and skin.
 */
type MeshEntry struct {
	/** @brief Stable identifier, unchanged by replace and update calls. */
	ID uuid.UUID
	/** @brief Device-local vertex buffer. */
	VertexBuffer *metadata.Buffer
	/** @brief Device-local index buffer of uint32 indices. */
	IndexBuffer *metadata.Buffer
	VertexCount uint32
	VertexSize  uint32
	IndexCount  uint32
	/** @brief Either per-transform draws or one hardware-instanced draw. */
	Instancing metadata.Instancing
	/** @brief Pipeline override; empty means the default pipeline. */
	Pipeline string
	/** @brief Base color pushed with every draw. */
	Color mgl32.Vec4
	/** @brief Optional texture, sampled through its descriptor set. */
	Texture *metadata.Texture
	/** @brief Joint and camera uniforms of skinned meshes. */
	Skin *Skin
}

func (m *MeshEntry) instanced() (metadata.Instanced, bool) {
	inst, ok := m.Instancing.(metadata.Instanced)
	return inst, ok
}

// MeshCount returns the number of mesh slots, removed ones included.
func (r *Renderer) MeshCount() int {
	return len(r.meshes)
}

// Mesh returns the entry at index, or nil for an invalid or removed slot.
func (r *Renderer) Mesh(index int) *MeshEntry {
	if index < 0 || index >= len(r.meshes) {
		return nil
	}
	return r.meshes[index]
}

// FindMesh returns the slot index of the mesh with the given ID.
func (r *Renderer) FindMesh(id uuid.UUID) (int, bool) {
	for i, m := range r.meshes {
		if m != nil && m.ID == id {
			return i, true
		}
	}
	return -1, false
}

// live returns the entry at index or logs and returns nil. Update calls
// treat a nil entry as a no-op.
func (r *Renderer) live(index int, op string) *MeshEntry {
	m := r.Mesh(index)
	if m == nil {
		core.LogWarn("%s ignored: mesh index %d out of range (%d meshes)", op, index, len(r.meshes))
	}
	return m
}

func (r *Renderer) register(m *MeshEntry) int {
	m.ID = uuid.New()
	if m.Color == (mgl32.Vec4{}) {
		m.Color = mgl32.Vec4{1, 1, 1, 1}
	}
	r.meshes = append(r.meshes, m)
	return len(r.meshes) - 1
}

// uploadStatic creates a device-local buffer holding data.
func (r *Renderer) uploadStatic(usage metadata.BufferUsage, data []byte) (*metadata.Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("cannot upload an empty buffer")
	}
	buf, err := r.backend.CreateBuffer(usage|metadata.BufferUsageTransferDst, uint64(len(data)), false)
	if err != nil {
		return nil, err
	}
	if err := r.backend.UploadBuffer(buf, 0, data); err != nil {
		r.backend.DestroyBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// uploadGeometry uploads a vertex and an index array. On failure nothing is
// left allocated.
func (r *Renderer) uploadGeometry(vertices []byte, vertexCount int, indices []uint32) (*metadata.Buffer, *metadata.Buffer, error) {
	if vertexCount == 0 || len(indices) == 0 {
		return nil, nil, errors.Newf("mesh needs vertices and indices, got %d and %d", vertexCount, len(indices))
	}
	vb, err := r.uploadStatic(metadata.BufferUsageVertex, vertices)
	if err != nil {
		return nil, nil, errors.Wrap(err, "uploading vertices")
	}
	ib, err := r.uploadStatic(metadata.BufferUsageIndex, metadata.SliceBytes(indices))
	if err != nil {
		r.backend.DestroyBuffer(vb)
		return nil, nil, errors.Wrap(err, "uploading indices")
	}
	return vb, ib, nil
}

func newGeometryEntry[V any](r *Renderer, vertices []V, indices []uint32) (*MeshEntry, error) {
	data := metadata.SliceBytes(vertices)
	vb, ib, err := r.uploadGeometry(data, len(vertices), indices)
	if err != nil {
		return nil, err
	}
	return &MeshEntry{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexCount:  uint32(len(vertices)),
		VertexSize:   uint32(len(data) / len(vertices)),
		IndexCount:   uint32(len(indices)),
	}, nil
}

// AddMesh uploads a mesh drawn once per transform and returns its index.
func (r *Renderer) AddMesh(vertices []metadata.Vertex, indices []uint32, transforms []mgl32.Mat4) (int, error) {
	m, err := newGeometryEntry(r, vertices, indices)
	if err != nil {
		return -1, err
	}
	m.Instancing = metadata.Individual{Transforms: transforms}
	return r.register(m), nil
}

// AddMeshInstanced uploads a mesh drawn in one instanced call, one instance
// per position.
func (r *Renderer) AddMeshInstanced(vertices []metadata.Vertex, indices []uint32, positions [][3]float32) (int, error) {
	m, err := newGeometryEntry(r, vertices, indices)
	if err != nil {
		return -1, err
	}
	inst, err := r.createInstanceBuffer(positions)
	if err != nil {
		r.destroyMesh(m)
		return -1, err
	}
	m.Instancing = inst
	m.Pipeline = metadata.PipelineInstanced
	return r.register(m), nil
}

func (r *Renderer) createInstanceBuffer(positions [][3]float32) (metadata.Instanced, error) {
	capacity := max(len(positions), 1)
	buf, err := r.backend.CreateBuffer(metadata.BufferUsageVertex, uint64(capacity*instanceStride), true)
	if err != nil {
		return metadata.Instanced{}, errors.Wrap(err, "creating instance buffer")
	}
	if len(positions) > 0 {
		if err := r.backend.WriteBuffer(buf, 0, metadata.SliceBytes(toInstances(positions))); err != nil {
			r.backend.DestroyBuffer(buf)
			return metadata.Instanced{}, err
		}
	}
	return metadata.Instanced{Buffer: buf, Count: uint32(len(positions))}, nil
}

func toInstances(positions [][3]float32) []metadata.InstanceData {
	out := make([]metadata.InstanceData, len(positions))
	for i, p := range positions {
		out[i].Position = p
	}
	return out
}

// ReplaceMesh swaps the geometry of a mesh in place. The index, ID,
// instancing, pipeline, color, texture and skin are kept.
func (r *Renderer) ReplaceMesh(index int, vertices []metadata.Vertex, indices []uint32) error {
	return replaceGeometry(r, index, vertices, indices)
}

// ReplaceSkinnedMesh is ReplaceMesh for skinned vertices.
func (r *Renderer) ReplaceSkinnedMesh(index int, vertices []metadata.SkinnedVertex, indices []uint32) error {
	return replaceGeometry(r, index, vertices, indices)
}

func replaceGeometry[V any](r *Renderer, index int, vertices []V, indices []uint32) error {
	m := r.Mesh(index)
	if m == nil {
		return errors.Wrapf(ErrMeshIndex, "replace mesh %d", index)
	}
	// the pipeline, skin and instancing stay, so the vertex type must too
	if len(vertices) > 0 {
		if stride := uint32(len(metadata.SliceBytes(vertices)) / len(vertices)); stride != m.VertexSize {
			return errors.Newf("mesh %d has %d byte vertices, got %d", index, m.VertexSize, stride)
		}
	}
	fresh, err := newGeometryEntry(r, vertices, indices)
	if err != nil {
		return err
	}
	if err := r.backend.WaitIdle(); err != nil {
		r.destroyMesh(fresh)
		return err
	}
	r.backend.DestroyBuffer(m.VertexBuffer)
	r.backend.DestroyBuffer(m.IndexBuffer)
	m.VertexBuffer = fresh.VertexBuffer
	m.IndexBuffer = fresh.IndexBuffer
	m.VertexCount = fresh.VertexCount
	m.VertexSize = fresh.VertexSize
	m.IndexCount = fresh.IndexCount
	return nil
}

// RemoveMesh frees a mesh and leaves its slot empty. The index is never
// handed out again.
func (r *Renderer) RemoveMesh(index int) {
	m := r.live(index, "remove")
	if m == nil {
		return
	}
	if err := r.backend.WaitIdle(); err != nil {
		core.LogError("wait idle before removing mesh %d failed: %s", index, err)
	}
	r.destroyMesh(m)
	r.meshes[index] = nil
}

func (r *Renderer) destroyMesh(m *MeshEntry) {
	if m == nil {
		return
	}
	if m.VertexBuffer != nil {
		r.backend.DestroyBuffer(m.VertexBuffer)
	}
	if m.IndexBuffer != nil {
		r.backend.DestroyBuffer(m.IndexBuffer)
	}
	if inst, ok := m.instanced(); ok && inst.Buffer != nil {
		r.backend.DestroyBuffer(inst.Buffer)
	}
	if m.Texture != nil {
		r.backend.DestroyTexture(m.Texture)
	}
	if m.Skin != nil {
		r.destroySkin(m.Skin)
	}
	*m = MeshEntry{}
}

// UpdateMeshTransforms sets the per-draw transforms of an individually drawn
// mesh.
func (r *Renderer) UpdateMeshTransforms(index int, transforms []mgl32.Mat4) {
	m := r.live(index, "transforms")
	if m == nil {
		return
	}
	if _, ok := m.instanced(); ok {
		core.LogWarn("transforms ignored for instanced mesh %d", index)
		return
	}
	m.Instancing = metadata.Individual{Transforms: transforms}
}

// UpdateMeshInstances moves the instances of a mesh. Individually drawn
// meshes get one translation per position; instanced meshes get their
// instance buffer rewritten.
func (r *Renderer) UpdateMeshInstances(index int, positions [][3]float32) error {
	m := r.live(index, "instances")
	if m == nil {
		return nil
	}
	if _, ok := m.instanced(); ok {
		return r.UpdateMeshInstanceBuffer(index, metadata.SliceBytes(toInstances(positions)), uint32(len(positions)))
	}
	transforms := make([]mgl32.Mat4, len(positions))
	for i, p := range positions {
		transforms[i] = mgl32.Translate3D(p[0], p[1], p[2])
	}
	m.Instancing = metadata.Individual{Transforms: transforms}
	return nil
}

func (r *Renderer) SetMeshPipeline(index int, name string) {
	if m := r.live(index, "pipeline"); m != nil {
		m.Pipeline = name
	}
}

func (r *Renderer) SetMeshColor(index int, color mgl32.Vec4) {
	if m := r.live(index, "color"); m != nil {
		m.Color = color
	}
}
