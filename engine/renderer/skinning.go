package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// Skin holds the uniforms a skinned mesh is drawn with. The camera buffer is
// rewritten every frame the mesh is drawn.
type Skin struct {
	Joints *metadata.Buffer
	Camera *metadata.Buffer
	Set    *metadata.DescriptorSet
}

var (
	jointBufferSize  = uint64(unsafe.Sizeof(metadata.JointMatrices{}))
	cameraBufferSize = uint64(unsafe.Sizeof(metadata.CameraUniforms{}))
)

// AddSkinnedMesh uploads a skinned mesh drawn once per transform.
func (r *Renderer) AddSkinnedMesh(vertices []metadata.SkinnedVertex, indices []uint32, transforms []mgl32.Mat4, joints []mgl32.Mat4) (int, error) {
	m, err := r.newSkinnedEntry(vertices, indices, joints)
	if err != nil {
		return -1, err
	}
	m.Instancing = metadata.Individual{Transforms: transforms}
	m.Pipeline = metadata.PipelineSkinned
	return r.register(m), nil
}

// AddSkinnedMeshInstanced uploads a skinned mesh drawn in one instanced call.
// Every instance shares the same joint matrices.
func (r *Renderer) AddSkinnedMeshInstanced(vertices []metadata.SkinnedVertex, indices []uint32, positions [][3]float32, joints []mgl32.Mat4) (int, error) {
	m, err := r.newSkinnedEntry(vertices, indices, joints)
	if err != nil {
		return -1, err
	}
	inst, err := r.createInstanceBuffer(positions)
	if err != nil {
		r.destroyMesh(m)
		return -1, err
	}
	m.Instancing = inst
	m.Pipeline = metadata.PipelineSkinnedInst
	return r.register(m), nil
}

func (r *Renderer) newSkinnedEntry(vertices []metadata.SkinnedVertex, indices []uint32, joints []mgl32.Mat4) (*MeshEntry, error) {
	m, err := newGeometryEntry(r, vertices, indices)
	if err != nil {
		return nil, err
	}
	skin, err := r.createSkin(joints)
	if err != nil {
		r.destroyMesh(m)
		return nil, err
	}
	m.Skin = skin
	return m, nil
}

func (r *Renderer) createSkin(joints []mgl32.Mat4) (*Skin, error) {
	jointBuf, err := r.backend.CreateBuffer(metadata.BufferUsageUniform, jointBufferSize, true)
	if err != nil {
		return nil, errors.Wrap(err, "creating joint buffer")
	}
	cameraBuf, err := r.backend.CreateBuffer(metadata.BufferUsageUniform, cameraBufferSize, true)
	if err != nil {
		r.backend.DestroyBuffer(jointBuf)
		return nil, errors.Wrap(err, "creating camera buffer")
	}
	skin := &Skin{Joints: jointBuf, Camera: cameraBuf}

	if err := r.backend.WriteBuffer(jointBuf, 0, metadata.AsBytes(metadata.NewJointMatrices(joints))); err != nil {
		r.destroySkin(skin)
		return nil, err
	}
	identity := metadata.CameraUniforms{View: mgl32.Ident4(), Proj: mgl32.Ident4()}
	if err := r.backend.WriteBuffer(cameraBuf, 0, metadata.AsBytes(&identity)); err != nil {
		r.destroySkin(skin)
		return nil, err
	}

	set, err := r.backend.CreateSkinningSet(jointBuf, cameraBuf)
	if err != nil {
		r.destroySkin(skin)
		return nil, errors.Wrap(err, "creating skinning descriptor set")
	}
	skin.Set = set
	return skin, nil
}

func (r *Renderer) destroySkin(s *Skin) {
	if s.Set != nil {
		r.backend.DestroyDescriptorSet(s.Set)
	}
	if s.Joints != nil {
		r.backend.DestroyBuffer(s.Joints)
	}
	if s.Camera != nil {
		r.backend.DestroyBuffer(s.Camera)
	}
}

// UpdateMeshJointMatrices overwrites the joint uniforms of a skinned mesh.
// Matrices past MaxJoints are dropped and missing ones are zeroed.
func (r *Renderer) UpdateMeshJointMatrices(index int, matrices []mgl32.Mat4) error {
	m := r.live(index, "joints")
	if m == nil {
		return nil
	}
	if m.Skin == nil {
		core.LogWarn("joints ignored: mesh %d is not skinned", index)
		return nil
	}
	return r.backend.WriteBuffer(m.Skin.Joints, 0, metadata.AsBytes(metadata.NewJointMatrices(matrices)))
}

// writeCamera copies this frame's view and projection into the skin.
func (r *Renderer) writeCamera(s *Skin, camera metadata.Camera) error {
	u := metadata.CameraUniforms{View: camera.View, Proj: camera.Proj}
	return r.backend.WriteBuffer(s.Camera, 0, metadata.AsBytes(&u))
}
