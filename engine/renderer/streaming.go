package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

const instanceStride = int(unsafe.Sizeof(metadata.InstanceData{}))

// UpdateMeshVerticesFull overwrites the vertex buffer of a mesh with a new
// array of the same vertex type. The copy goes through the staging buffer and
// the call blocks until the GPU finished it.
func (r *Renderer) UpdateMeshVerticesFull(index int, vertices []metadata.Vertex) error {
	return streamVertices(r, index, vertices)
}

// UpdateSkinnedMeshVerticesFull is UpdateMeshVerticesFull for skinned meshes.
func (r *Renderer) UpdateSkinnedMeshVerticesFull(index int, vertices []metadata.SkinnedVertex) error {
	return streamVertices(r, index, vertices)
}

func streamVertices[V any](r *Renderer, index int, vertices []V) error {
	m := r.live(index, "vertices")
	if m == nil || len(vertices) == 0 {
		return nil
	}
	data := metadata.SliceBytes(vertices)
	if stride := uint32(len(data) / len(vertices)); stride != m.VertexSize {
		return errors.Newf("mesh %d has %d byte vertices, got %d", index, m.VertexSize, stride)
	}
	if uint64(len(data)) > m.VertexBuffer.Size {
		return errors.Newf("mesh %d vertex buffer holds %d bytes, got %d", index, m.VertexBuffer.Size, len(data))
	}
	if err := r.backend.UploadBuffer(m.VertexBuffer, 0, data); err != nil {
		return errors.Wrapf(err, "streaming vertices of mesh %d", index)
	}
	m.VertexCount = uint32(len(vertices))
	return nil
}

// UpdateMeshInstanceBuffer rewrites the instance data of an instanced mesh
// with count entries of raw per-instance data. The buffer grows when needed.
func (r *Renderer) UpdateMeshInstanceBuffer(index int, data []byte, count uint32) error {
	m := r.live(index, "instance buffer")
	if m == nil {
		return nil
	}
	inst, ok := m.instanced()
	if !ok {
		return errors.Newf("mesh %d is not instanced", index)
	}
	if uint64(len(data)) < uint64(count)*uint64(instanceStride) {
		return errors.Newf("%d instances need %d bytes, got %d", count, int(count)*instanceStride, len(data))
	}

	if uint64(len(data)) > inst.Buffer.Size {
		grown, err := r.backend.CreateBuffer(metadata.BufferUsageVertex, uint64(len(data)), true)
		if err != nil {
			return errors.Wrap(err, "growing instance buffer")
		}
		// the old buffer may still be read by frames in flight
		if err := r.backend.WaitIdle(); err != nil {
			r.backend.DestroyBuffer(grown)
			return err
		}
		r.backend.DestroyBuffer(inst.Buffer)
		inst.Buffer = grown
		m.Instancing = inst
	}
	if len(data) > 0 {
		if err := r.backend.WriteBuffer(inst.Buffer, 0, data); err != nil {
			return err
		}
	}
	inst.Count = count
	m.Instancing = inst
	return nil
}
