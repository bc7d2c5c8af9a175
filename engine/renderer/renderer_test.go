package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad() ([]metadata.Vertex, []uint32) {
	white := [4]float32{1, 1, 1, 1}
	vertices := []metadata.Vertex{
		{Position: [3]float32{-0.5, -0.5, 0}, UV: [2]float32{0, 0}, Color: white},
		{Position: [3]float32{0.5, -0.5, 0}, UV: [2]float32{1, 0}, Color: white},
		{Position: [3]float32{0.5, 0.5, 0}, UV: [2]float32{1, 1}, Color: white},
		{Position: [3]float32{-0.5, 0.5, 0}, UV: [2]float32{0, 1}, Color: white},
	}
	return vertices, []uint32{0, 1, 2, 2, 3, 0}
}

func skinnedQuad() ([]metadata.SkinnedVertex, []uint32) {
	vertices, indices := quad()
	out := make([]metadata.SkinnedVertex, len(vertices))
	for i, v := range vertices {
		out[i] = metadata.SkinnedVertex{
			Position: v.Position,
			UV:       v.UV,
			Color:    v.Color,
			Weights:  [4]float32{1, 0, 0, 0},
		}
	}
	return out, indices
}

func testCamera() metadata.Camera {
	return metadata.Camera{
		View: mgl32.LookAtV(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		Proj: metadata.FlipY(mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 100)),
	}
}

func TestInitializeRegistersBuiltinPipelines(t *testing.T) {
	r, backend, assets := newTestRenderer()

	for _, name := range []string{
		metadata.PipelineDefault,
		metadata.PipelineInstanced,
		metadata.PipelineSkinned,
		metadata.PipelineSkinnedInst,
		metadata.PipelineTextured,
		metadata.PipelineTextureArray,
		metadata.PipelineUI,
	} {
		_, ok := r.Pipeline(name)
		assert.True(t, ok, name)
	}
	assert.Equal(t, 7, backend.pipelinesBuilt)
	assert.Contains(t, assets.loaded, "shaders/default.vert.spv")
	assert.Contains(t, assets.loaded, "shaders/default.frag.spv")
	assert.Equal(t, 1, backend.liveTextures, "placeholder texture")
	assert.Equal(t, metadata.PipelineDefault, r.CurrentPipeline())
}

func TestSingleQuadEmitsOneDraw(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	index, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, 1, r.MeshCount())

	require.NoError(t, r.DrawFrame(testCamera(), 0))

	draws := backend.ops("draw")
	require.Len(t, draws, 1)
	assert.EqualValues(t, 6, draws[0].indexCount)
	assert.EqualValues(t, 1, draws[0].instanceCount)

	pushes := backend.ops("push")
	require.Len(t, pushes, 1)
	want := metadata.MVPPush{Model: mgl32.Ident4(), View: testCamera().View, Proj: testCamera().Proj, Color: mgl32.Vec4{1, 1, 1, 1}}
	assert.Equal(t, metadata.AsBytes(&want), pushes[0].data)
}

func TestInstancedMeshEmitsOneInstancedDraw(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	positions := make([][3]float32, 1000)
	for i := range positions {
		positions[i] = [3]float32{float32(i % 10), float32(i / 10 % 10), float32(i / 100)}
	}
	index, err := r.AddMeshInstanced(vertices, indices, positions)
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(testCamera(), 0))

	draws := backend.ops("draw")
	require.Len(t, draws, 1)
	assert.EqualValues(t, 6, draws[0].indexCount)
	assert.EqualValues(t, 1000, draws[0].instanceCount)

	binds := backend.ops("vertex")
	require.Len(t, binds, 1)
	require.Len(t, binds[0].buffers, 2)
	inst, ok := r.Mesh(index).Instancing.(metadata.Instanced)
	require.True(t, ok)
	assert.Same(t, inst.Buffer, binds[0].buffers[1])

	data, err := backend.ReadBuffer(inst.Buffer, 0, 24)
	require.NoError(t, err)
	first := metadata.InstanceData{Position: positions[0]}
	second := metadata.InstanceData{Position: positions[1]}
	assert.Equal(t, append(metadata.AsBytes(&first), metadata.AsBytes(&second)...), data)

	pipelines := backend.ops("pipeline")
	require.Len(t, pipelines, 1)
	assert.Equal(t, metadata.PipelineInstanced, pipelines[0].pipeline)
}

func TestPerTransformPathDrawsOncePerTransform(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	transforms := []mgl32.Mat4{mgl32.Translate3D(1, 0, 0), mgl32.Translate3D(2, 0, 0), mgl32.Translate3D(3, 0, 0)}

	_, err := r.AddMesh(vertices, indices, transforms)
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(testCamera(), 0))

	draws := backend.ops("draw")
	require.Len(t, draws, 3)
	for _, d := range draws {
		assert.EqualValues(t, 1, d.instanceCount)
	}
	assert.Len(t, backend.ops("vertex"), 1)
	assert.Len(t, backend.ops("index"), 1)

	pushes := backend.ops("push")
	require.Len(t, pushes, 3)
	for i, p := range pushes {
		want := metadata.MVPPush{Model: transforms[i], View: testCamera().View, Proj: testCamera().Proj, Color: mgl32.Vec4{1, 1, 1, 1}}
		assert.Equal(t, metadata.AsBytes(&want), p.data)
	}
}

func TestPipelineBindsEqualRuns(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	one := []mgl32.Mat4{mgl32.Ident4()}

	pipelines := []string{
		"",
		metadata.PipelineDefault,
		metadata.PipelineTextured,
		metadata.PipelineTextured,
		metadata.PipelineDefault,
		"does-not-exist", // falls back to default, same run
		metadata.PipelineTextured,
	}
	for _, name := range pipelines {
		i, err := r.AddMesh(vertices, indices, one)
		require.NoError(t, err)
		r.SetMeshPipeline(i, name)
	}

	require.NoError(t, r.DrawFrame(testCamera(), 0))

	var bound []string
	for _, c := range backend.ops("pipeline") {
		bound = append(bound, c.pipeline)
	}
	assert.Equal(t, []string{
		metadata.PipelineDefault,
		metadata.PipelineTextured,
		metadata.PipelineDefault,
		metadata.PipelineTextured,
	}, bound)
	assert.Len(t, backend.ops("draw"), len(pipelines))
}

func TestTexturedPipelineFallsBackToPlaceholder(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	i, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	r.SetMeshPipeline(i, metadata.PipelineTextured)

	require.NoError(t, r.DrawFrame(testCamera(), 0))
	sets := backend.ops("set")
	require.Len(t, sets, 1)
	assert.Same(t, r.placeholder.Set, sets[0].set)

	require.NoError(t, r.SetMeshTextureFromFile(i, "textures/crate.png"))
	require.NoError(t, r.DrawFrame(testCamera(), 0))
	sets = backend.ops("set")
	require.Len(t, sets, 1)
	assert.Same(t, r.Mesh(i).Texture.Set, sets[0].set)
}

func TestSkipRules(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	_, err := r.AddMesh(vertices, indices, nil)
	require.NoError(t, err)
	_, err = r.AddMeshInstanced(vertices, indices, nil)
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(testCamera(), 0))
	assert.Empty(t, backend.ops("draw"))
	assert.Empty(t, backend.ops("pipeline"))
	assert.Equal(t, 1, backend.ends)
}

func TestSkinnedMeshNeedsItsDescriptorSet(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	i, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	r.SetMeshPipeline(i, metadata.PipelineSkinned)
	j, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(testCamera(), 0))

	// only the second mesh is drawn
	draws := backend.ops("draw")
	require.Len(t, draws, 1)
	assert.NotNil(t, r.Mesh(j))
}

func TestSkinnedMeshOnUnknownPipelineIsSkipped(t *testing.T) {
	r, backend, _ := newTestRenderer()
	skinned, skinnedIndices := skinnedQuad()
	vertices, indices := quad()

	i, err := r.AddSkinnedMesh(skinned, skinnedIndices, []mgl32.Mat4{mgl32.Ident4()}, nil)
	require.NoError(t, err)
	r.SetMeshPipeline(i, "typo")
	_, err = r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)

	require.NoError(t, r.DrawFrame(testCamera(), 1))

	// the 80 byte skinned vertices cannot run through "default"
	require.Len(t, backend.ops("draw"), 1)
	pushes := backend.ops("push")
	require.Len(t, pushes, 1)
	assert.Len(t, pushes[0].data, int(metadata.MVPPushRange.Size))
	assert.Equal(t, metadata.PipelineDefault, pushes[0].pipeline)
}

func TestPushFollowsPipelineRange(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	// a mesh pipeline that only takes time
	cfg := builtinPipelines()[0]
	cfg.Name = "timed"
	cfg.PushConstants = []metadata.PushConstantRange{metadata.TimePushRange}
	require.NoError(t, r.AddPipeline(cfg))

	i, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	r.SetMeshPipeline(i, "timed")

	require.NoError(t, r.DrawFrame(testCamera(), 3))
	pushes := backend.ops("push")
	require.Len(t, pushes, 1)
	tp := metadata.TimePush{Time: 3}
	assert.Equal(t, metadata.AsBytes(&tp), pushes[0].data)
}

func TestIndexStability(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	one := []mgl32.Mat4{mgl32.Ident4()}

	var ids []string
	for i := 0; i < 3; i++ {
		index, err := r.AddMesh(vertices, indices, one)
		require.NoError(t, err)
		require.Equal(t, i, index)
		ids = append(ids, r.Mesh(index).ID.String())
	}

	// replace with a triangle
	require.NoError(t, r.ReplaceMesh(1, vertices[:3], []uint32{0, 1, 2}))
	r.UpdateMeshTransforms(1, []mgl32.Mat4{mgl32.Translate3D(1, 2, 3)})
	r.SetMeshColor(1, mgl32.Vec4{1, 0, 0, 1})
	assert.Equal(t, ids[1], r.Mesh(1).ID.String())
	assert.EqualValues(t, 3, r.Mesh(1).IndexCount)

	r.RemoveMesh(0)
	assert.Nil(t, r.Mesh(0))
	assert.Equal(t, 3, r.MeshCount())

	// updates on the removed slot are no-ops
	r.UpdateMeshTransforms(0, one)
	r.SetMeshColor(0, mgl32.Vec4{})
	r.SetMeshPipeline(0, metadata.PipelineTextured)
	require.NoError(t, r.UpdateMeshVerticesFull(0, vertices))
	require.NoError(t, r.UpdateMeshJointMatrices(0, nil))
	r.RemoveMesh(0)
	r.RemoveMesh(42)
	assert.Nil(t, r.Mesh(0))
	assert.Error(t, r.ReplaceMesh(0, vertices, indices))

	index, err := r.AddMesh(vertices, indices, one)
	require.NoError(t, err)
	assert.Equal(t, 3, index)

	found, ok := r.FindMesh(r.Mesh(2).ID)
	require.True(t, ok)
	assert.Equal(t, 2, found)
	assert.Equal(t, ids[2], r.Mesh(2).ID.String())

	require.NoError(t, r.DrawFrame(testCamera(), 0))
	draws := backend.ops("draw")
	require.Len(t, draws, 3)
	assert.EqualValues(t, 3, draws[0].indexCount)
}

func TestRemoveMeshFreesResources(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := skinnedQuad()
	before := backend.liveBuffers

	i, err := r.AddSkinnedMeshInstanced(vertices, indices, [][3]float32{{0, 0, 0}}, nil)
	require.NoError(t, err)
	assert.Equal(t, before+5, backend.liveBuffers)
	assert.Equal(t, 1, backend.liveSets)

	idles := backend.waitIdles
	r.RemoveMesh(i)
	assert.Equal(t, before, backend.liveBuffers)
	assert.Equal(t, 0, backend.liveSets)
	assert.Equal(t, idles+1, backend.waitIdles)
}

func TestJointMatricesRoundTrip(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := skinnedQuad()

	i, err := r.AddSkinnedMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()}, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	skin := r.Mesh(i).Skin
	require.NotNil(t, skin)

	tests := []struct {
		name  string
		count int
	}{
		{"exact", metadata.MaxJoints},
		{"truncated", metadata.MaxJoints + 7},
		{"padded", 3},
		{"empty", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]mgl32.Mat4, tt.count)
			for k := range in {
				in[k] = mgl32.Translate3D(float32(k), float32(-k), 1)
			}
			require.NoError(t, r.UpdateMeshJointMatrices(i, in))

			raw, err := backend.ReadBuffer(skin.Joints, 0, jointBufferSize)
			require.NoError(t, err)
			var want metadata.JointMatrices
			copy(want[:], in)
			assert.Equal(t, metadata.AsBytes(&want), raw)
		})
	}
}

func TestUpdateJointsOnUnskinnedMesh(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	i, err := r.AddMesh(vertices, indices, nil)
	require.NoError(t, err)
	writes := backend.writes
	assert.NoError(t, r.UpdateMeshJointMatrices(i, []mgl32.Mat4{mgl32.Ident4()}))
	assert.Equal(t, writes, backend.writes, "nothing written for an unskinned mesh")
	assert.NoError(t, r.UpdateMeshJointMatrices(99, nil))
}

func TestReplaceMeshKeepsVertexType(t *testing.T) {
	r, backend, _ := newTestRenderer()
	skinned, skinnedIndices := skinnedQuad()
	vertices, indices := quad()

	i, err := r.AddSkinnedMesh(skinned, skinnedIndices, []mgl32.Mat4{mgl32.Ident4()}, nil)
	require.NoError(t, err)
	before := *r.Mesh(i)
	buffers := backend.liveBuffers

	assert.Error(t, r.ReplaceMesh(i, vertices, indices))
	assert.Equal(t, before.VertexSize, r.Mesh(i).VertexSize)
	assert.Same(t, before.VertexBuffer, r.Mesh(i).VertexBuffer)
	assert.Equal(t, buffers, backend.liveBuffers, "nothing uploaded")

	require.NoError(t, r.ReplaceSkinnedMesh(i, skinned[:3], []uint32{0, 1, 2}))
	assert.EqualValues(t, 3, r.Mesh(i).IndexCount)
	assert.NoError(t, r.UpdateSkinnedMeshVerticesFull(i, skinned[:3]))
}

func TestSkinnedMeshWritesCameraAndPushesTime(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := skinnedQuad()

	i, err := r.AddSkinnedMeshInstanced(vertices, indices, [][3]float32{{0, 0, 0}, {1, 0, 0}}, nil)
	require.NoError(t, err)
	camera := testCamera()

	require.NoError(t, r.DrawFrame(camera, 2.5))

	raw, err := backend.ReadBuffer(r.Mesh(i).Skin.Camera, 0, cameraBufferSize)
	require.NoError(t, err)
	want := metadata.CameraUniforms{View: camera.View, Proj: camera.Proj}
	assert.Equal(t, metadata.AsBytes(&want), raw)

	sets := backend.ops("set")
	require.Len(t, sets, 1)
	assert.Same(t, r.Mesh(i).Skin.Set, sets[0].set)

	pushes := backend.ops("push")
	require.Len(t, pushes, 1)
	tp := metadata.TimePush{Time: 2.5}
	assert.Equal(t, metadata.AsBytes(&tp), pushes[0].data)

	draws := backend.ops("draw")
	require.Len(t, draws, 1)
	assert.EqualValues(t, 2, draws[0].instanceCount)
	assert.Equal(t, metadata.PipelineSkinnedInst, backend.ops("pipeline")[0].pipeline)
}

func TestLegacyFallback(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	require.NoError(t, r.SetLegacyGeometry(vertices, indices))
	require.NoError(t, r.DrawFrame(testCamera(), 0))

	draws := backend.ops("draw")
	require.Len(t, draws, 1)
	assert.EqualValues(t, 6, draws[0].indexCount)
	pushes := backend.ops("push")
	require.Len(t, pushes, 1)
	want := metadata.MVPPush{Model: metadata.LegacyModel(), View: testCamera().View, Proj: testCamera().Proj, Color: mgl32.Vec4{1, 1, 1, 1}}
	assert.Equal(t, metadata.AsBytes(&want), pushes[0].data)

	_, err := r.AddMesh(vertices, indices, nil)
	require.NoError(t, err)
	require.NoError(t, r.DrawFrame(testCamera(), 0))
	assert.Empty(t, backend.ops("draw"))
}

func TestDroppedFrames(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	_, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)

	backend.beginErr = errors.New("acquire failed")
	err = r.DrawFrame(testCamera(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFrameDropped))
	assert.Equal(t, 0, backend.ends)

	backend.beginErr = core.ErrSwapchainBooting
	assert.NoError(t, r.DrawFrame(testCamera(), 0))

	backend.beginErr = nil
	backend.endErr = errors.New("present failed")
	err = r.DrawFrame(testCamera(), 0)
	assert.True(t, errors.Is(err, core.ErrFrameDropped))

	backend.endErr = nil
	assert.NoError(t, r.DrawFrame(testCamera(), 0))
	assert.Len(t, backend.ops("draw"), 1)
}

func TestUpdateMeshVerticesFull(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	i, err := r.AddMesh(vertices, indices, nil)
	require.NoError(t, err)

	moved := append([]metadata.Vertex(nil), vertices...)
	for k := range moved {
		moved[k].Position[2] = 1
	}
	uploads := backend.uploads
	require.NoError(t, r.UpdateMeshVerticesFull(i, moved))
	assert.Equal(t, uploads+1, backend.uploads)

	raw, err := backend.ReadBuffer(r.Mesh(i).VertexBuffer, 0, r.Mesh(i).VertexBuffer.Size)
	require.NoError(t, err)
	assert.Equal(t, metadata.SliceBytes(moved), raw)

	assert.Error(t, r.UpdateMeshVerticesFull(i, append(moved, moved...)))
	skinned, _ := skinnedQuad()
	assert.Error(t, r.UpdateSkinnedMeshVerticesFull(i, skinned))
}

func TestUpdateMeshInstances(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()

	inst, err := r.AddMeshInstanced(vertices, indices, [][3]float32{{0, 0, 0}})
	require.NoError(t, err)
	oldBuffer := r.Mesh(inst).Instancing.(metadata.Instanced).Buffer

	grown := [][3]float32{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	require.NoError(t, r.UpdateMeshInstances(inst, grown))
	current := r.Mesh(inst).Instancing.(metadata.Instanced)
	assert.EqualValues(t, 3, current.Count)
	assert.NotSame(t, oldBuffer, current.Buffer)
	raw, err := backend.ReadBuffer(current.Buffer, 0, 36)
	require.NoError(t, err)
	assert.Equal(t, metadata.SliceBytes(toInstances(grown)), raw)

	ind, err := r.AddMesh(vertices, indices, nil)
	require.NoError(t, err)
	require.NoError(t, r.UpdateMeshInstances(ind, grown))
	individual := r.Mesh(ind).Instancing.(metadata.Individual)
	require.Len(t, individual.Transforms, 3)
	assert.Equal(t, mgl32.Translate3D(2, 0, 0), individual.Transforms[1])

	assert.Error(t, r.UpdateMeshInstanceBuffer(ind, nil, 0))
	assert.Error(t, r.UpdateMeshInstanceBuffer(inst, make([]byte, 12), 2))

	// an emptied instance buffer is skipped, the individual mesh still draws
	require.NoError(t, r.UpdateMeshInstanceBuffer(inst, nil, 0))
	require.NoError(t, r.DrawFrame(testCamera(), 0))
	draws := backend.ops("draw")
	require.Len(t, draws, 3)
	for _, d := range draws {
		assert.EqualValues(t, 1, d.instanceCount)
	}
}

func TestAddTexturedMeshResizesLayers(t *testing.T) {
	r, backend, _ := newTestRenderer()
	quadVerts, indices := quad()
	vertices := make([]metadata.TexturedVertex, len(quadVerts))
	for k, v := range quadVerts {
		vertices[k] = metadata.TexturedVertex{Position: v.Position, UV: v.UV, Layer: uint32(k % 2)}
	}
	big := metadata.TextureData{Width: 4, Height: 4, Pixels: make([]uint8, 64)}

	i, err := r.AddTexturedMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()}, []metadata.TextureData{metadata.PlaceholderTexture(), big})
	require.NoError(t, err)
	tex := r.Mesh(i).Texture
	require.NotNil(t, tex)
	assert.EqualValues(t, 2, tex.Layers)
	assert.EqualValues(t, 4, tex.Width)

	_, err = r.AddTexturedMesh(vertices, indices, nil, []metadata.TextureData{{Width: 1, Height: 1}})
	assert.Error(t, err)

	require.NoError(t, r.DrawFrame(testCamera(), 0))
	assert.Equal(t, metadata.PipelineTextureArray, backend.ops("pipeline")[0].pipeline)
}

func TestSetCurrentPipeline(t *testing.T) {
	r, _, _ := newTestRenderer()
	require.NoError(t, r.SetCurrentPipeline(metadata.PipelineTextured))
	assert.Equal(t, metadata.PipelineTextured, r.CurrentPipeline())

	err := r.SetCurrentPipeline("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPipelineNotFound))
	assert.Contains(t, err.Error(), "pipeline 'nope' not found")
}

func TestReloadChangedShaders(t *testing.T) {
	r, backend, _ := newTestRenderer()
	before, _ := r.Pipeline(metadata.PipelineDefault)

	changed := make(chan string, 4)
	changed <- "assets/shaders/default.frag.spv"
	changed <- "assets/shaders/default.vert.spv"
	changed <- "assets/textures/crate.png"

	assert.Equal(t, 1, r.ReloadChangedShaders(changed))
	after, _ := r.Pipeline(metadata.PipelineDefault)
	assert.NotSame(t, before, after)
	assert.Equal(t, 1, backend.pipelinesDestroyed)
	assert.Equal(t, 0, r.ReloadChangedShaders(changed))
}

func TestShutdownReleasesEverything(t *testing.T) {
	r, backend, _ := newTestRenderer()
	vertices, indices := quad()
	skinned, skinnedIndices := skinnedQuad()

	_, err := r.AddMesh(vertices, indices, []mgl32.Mat4{mgl32.Ident4()})
	require.NoError(t, err)
	_, err = r.AddSkinnedMesh(skinned, skinnedIndices, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.SetLegacyGeometry(vertices, indices))
	r.SubmitOverlay(nil, metadata.TexturesDelta{Set: []metadata.TextureUpdate{{Image: metadata.PlaceholderTexture()}}})
	require.NoError(t, r.DrawFrame(testCamera(), 0))

	require.NoError(t, r.Shutdown())
	assert.Equal(t, 0, backend.liveBuffers)
	assert.Equal(t, 0, backend.liveTextures)
	assert.Equal(t, 0, backend.liveSets)
	assert.Equal(t, 7, backend.pipelinesDestroyed)
}
