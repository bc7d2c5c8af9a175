package metadata

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLayouts(t *testing.T) {
	tests := []struct {
		name    string
		layout  VertexLayout
		stride  uint32
		offsets []uint32
	}{
		{"mesh", MeshLayout(), 48, []uint32{0, 12, 24, 32}},
		{"skinned", SkinnedLayout(), 80, []uint32{0, 12, 24, 32, 48, 64}},
		{"textured", TexturedLayout(), 36, []uint32{0, 12, 24, 32}},
		{"ui", UILayout(), 20, []uint32{0, 8, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.layout.Bindings, 1)
			b := tt.layout.Bindings[0]
			assert.Equal(t, tt.stride, b.Stride)
			assert.Equal(t, InputRateVertex, b.InputRate)
			var offsets []uint32
			for _, a := range b.Attributes {
				offsets = append(offsets, a.Offset)
			}
			assert.Equal(t, tt.offsets, offsets)
		})
	}
}

func TestInstancedLayoutAddsInstanceBinding(t *testing.T) {
	l := InstancedMeshLayout()
	require.Len(t, l.Bindings, 2)
	inst := l.Bindings[1]
	assert.EqualValues(t, 1, inst.Binding)
	assert.EqualValues(t, 12, inst.Stride)
	assert.Equal(t, InputRateInstance, inst.InputRate)
	assert.Equal(t, InstanceAttributeLocation, inst.Attributes[0].Location)
	assert.Equal(t, 5, l.Attributes())
}

func TestUniformSizes(t *testing.T) {
	assert.EqualValues(t, 208, MVPPushRange.Size)
	assert.Equal(t, ShaderStageVertex|ShaderStageFragment, MVPPushRange.Stages)
	assert.EqualValues(t, 4, TimePushRange.Size)
	assert.EqualValues(t, 8, ScreenPushRange.Size)
	assert.EqualValues(t, 128, unsafe.Sizeof(CameraUniforms{}))
	assert.EqualValues(t, 128*64, unsafe.Sizeof(JointMatrices{}))
}

func TestNewJointMatricesTruncatesAndPads(t *testing.T) {
	in := make([]mgl32.Mat4, 130)
	for i := range in {
		in[i] = mgl32.Translate3D(float32(i), 0, 0)
	}
	j := NewJointMatrices(in)
	assert.Equal(t, in[127], j[127])

	short := NewJointMatrices(in[:3])
	assert.Equal(t, in[2], short[2])
	assert.Equal(t, mgl32.Mat4{}, short[3])
}

func TestAsBytes(t *testing.T) {
	p := TimePush{Time: 1.5}
	b := AsBytes(&p)
	require.Len(t, b, 4)
	assert.Equal(t, []byte{0x00, 0x00, 0xc0, 0x3f}, b)

	verts := []InstanceData{{Position: [3]float32{1, 2, 3}}, {}}
	assert.Len(t, SliceBytes(verts), 24)
	assert.Nil(t, SliceBytes([]InstanceData{}))
}

func TestFlipYAndLegacyModel(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 10)
	flipped := FlipY(proj)
	assert.Equal(t, -proj[5], flipped[5])
	assert.Equal(t, proj[0], flipped[0])

	m := LegacyModel()
	p := m.Mul4x1(mgl32.Vec4{2, 0, 0, 1})
	assert.InDelta(t, 1.0, p.X(), 1e-6)
	assert.InDelta(t, -2.0, p.Z(), 1e-6)
}

func TestInstancingEmpty(t *testing.T) {
	assert.True(t, Individual{}.Empty())
	assert.False(t, Individual{Transforms: []mgl32.Mat4{mgl32.Ident4()}}.Empty())
	assert.True(t, Instanced{Count: 0}.Empty())
	assert.False(t, Instanced{Count: 2}.Empty())
}

func TestTextureValidate(t *testing.T) {
	require.NoError(t, PlaceholderTexture().Validate())
	assert.Error(t, TextureData{Width: 2, Height: 2, Pixels: make([]uint8, 3)}.Validate())
	assert.Error(t, TextureData{}.Validate())
}
