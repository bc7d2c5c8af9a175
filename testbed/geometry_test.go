package testbed

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProceduralGeometry(t *testing.T) {
	tests := []struct {
		name     string
		vertices int
		indices  []uint32
	}{
		{"cube", 24, func() []uint32 { _, i := cube(1); return i }()},
		{"pyramid", 16, func() []uint32 { _, i := pyramid(1); return i }()},
		{"wave", 5 * 5, func() []uint32 { _, i := wavePlane(4, 1, 0); return i }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, len(tt.indices)%3)
			for _, i := range tt.indices {
				assert.Less(t, int(i), tt.vertices)
			}
		})
	}

	v, _ := cube(0.5)
	for _, vert := range v {
		for _, c := range vert.Position {
			assert.InDelta(t, 0.5, abs(c), 1e-6)
		}
	}
}

func TestSkinnedBarWeights(t *testing.T) {
	vertices, indices := skinnedBar(4, 1, 0.1)
	require.Len(t, vertices, 20)
	assert.Len(t, indices, 4*4*6)
	for _, v := range vertices {
		assert.InDelta(t, 1, v.Weights[0]+v.Weights[1], 1e-6)
	}
	assert.Equal(t, float32(1), vertices[0].Weights[0], "base follows joint 0 only")
	assert.Equal(t, float32(1), vertices[len(vertices)-1].Weights[1], "tip follows joint 1 only")

	joints := barJoints(0)
	require.Len(t, joints, 2)
	assert.True(t, joints[1].ApproxEqual(mgl32.Ident4()), "no bend at rest")
}

func TestCheckerAndGrid(t *testing.T) {
	tex := checker(8, 2, [4]uint8{255, 0, 0, 255}, [4]uint8{0, 0, 255, 255})
	require.NoError(t, tex.Validate())
	assert.Equal(t, []uint8{255, 0, 0, 255}, tex.Pixels[0:4])
	assert.Equal(t, []uint8{0, 0, 255, 255}, tex.Pixels[2*4:3*4])

	assert.Len(t, gridPositions(0), gridSide*gridSide)
	assert.Len(t, cubeTransforms(1), 3)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
