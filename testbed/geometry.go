package testbed

import (
	"github.com/chewxy/math32"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// cubeFaces lists normal, then the u and v axes of each face.
var cubeFaces = [6][3][3]float32{
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
}

// cube builds a 24 vertex cube of the given half extent with one color per
// face.
func cube(half float32) ([]metadata.Vertex, []uint32) {
	vertices := make([]metadata.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	for _, face := range cubeFaces {
		n, u, v := face[0], face[1], face[2]
		color := [4]float32{0.5 + 0.5*n[0], 0.5 + 0.5*n[1], 0.5 + 0.5*n[2], 1}
		base := uint32(len(vertices))
		for _, c := range corners {
			var p [3]float32
			for k := 0; k < 3; k++ {
				p[k] = half * (n[k] + c[0]*u[k] + c[1]*v[k])
			}
			vertices = append(vertices, metadata.Vertex{
				Position: p,
				Normal:   n,
				UV:       [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
				Color:    color,
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}

func pyramid(half float32) ([]metadata.Vertex, []uint32) {
	apex := [3]float32{0, half, 0}
	base := [4][3]float32{{-half, -half, half}, {half, -half, half}, {half, -half, -half}, {-half, -half, -half}}
	var vertices []metadata.Vertex
	var indices []uint32
	for i := range base {
		a, b := base[i], base[(i+1)%4]
		start := uint32(len(vertices))
		for _, p := range [][3]float32{a, b, apex} {
			vertices = append(vertices, metadata.Vertex{Position: p, Color: [4]float32{1, 0.8, 0.2, 1}})
		}
		indices = append(indices, start, start+1, start+2)
	}
	start := uint32(len(vertices))
	for _, p := range base {
		vertices = append(vertices, metadata.Vertex{Position: p, Normal: [3]float32{0, -1, 0}, Color: [4]float32{0.6, 0.4, 0.1, 1}})
	}
	indices = append(indices, start, start+2, start+1, start, start+3, start+2)
	return vertices, indices
}

// wavePlane is a size x size grid in the XZ plane displaced by a sine wave
// at time t. The index list does not change with t.
func wavePlane(size int, extent, t float32) ([]metadata.Vertex, []uint32) {
	vertices := make([]metadata.Vertex, 0, (size+1)*(size+1))
	step := extent / float32(size)
	for z := 0; z <= size; z++ {
		for x := 0; x <= size; x++ {
			px := -extent/2 + float32(x)*step
			pz := -extent/2 + float32(z)*step
			h := 0.15 * math32.Sin(2*px+t) * math32.Cos(2*pz+t)
			vertices = append(vertices, metadata.Vertex{
				Position: [3]float32{px, h, pz},
				Normal:   [3]float32{0, 1, 0},
				UV:       [2]float32{float32(x) / float32(size), float32(z) / float32(size)},
				Color:    [4]float32{0.2, 0.4 + h, 0.9, 1},
			})
		}
	}

	indices := make([]uint32, 0, size*size*6)
	row := uint32(size + 1)
	for z := uint32(0); z < uint32(size); z++ {
		for x := uint32(0); x < uint32(size); x++ {
			i := z*row + x
			indices = append(indices, i, i+row, i+1, i+1, i+row, i+row+1)
		}
	}
	return vertices, indices
}

// skinnedBar is a vertical box of segments, the lower half bound to joint 0
// and the upper half blended towards joint 1.
func skinnedBar(segments int, height, half float32) ([]metadata.SkinnedVertex, []uint32) {
	var vertices []metadata.SkinnedVertex
	for s := 0; s <= segments; s++ {
		y := float32(s) / float32(segments) * height
		w1 := math32.Max(0, math32.Min(1, (y/height-0.3)/0.4))
		for _, c := range [4][2]float32{{-half, -half}, {half, -half}, {half, half}, {-half, half}} {
			vertices = append(vertices, metadata.SkinnedVertex{
				Position: [3]float32{c[0], y, c[1]},
				Normal:   [3]float32{c[0], 0, c[1]},
				Color:    [4]float32{0.9, 0.3 + 0.5*w1, 0.3, 1},
				Joints:   [4]uint32{0, 1, 0, 0},
				Weights:  [4]float32{1 - w1, w1, 0, 0},
			})
		}
	}

	var indices []uint32
	for s := 0; s < segments; s++ {
		lo, hi := uint32(s*4), uint32((s+1)*4)
		for side := uint32(0); side < 4; side++ {
			next := (side + 1) % 4
			indices = append(indices, lo+side, lo+next, hi+next, hi+next, hi+side, lo+side)
		}
	}
	return vertices, indices
}

// texturedQuad samples layer on a unit quad facing +Z.
func texturedQuad(layer uint32, offsetX float32) ([]metadata.TexturedVertex, []uint32) {
	v := func(x, y, u, w float32) metadata.TexturedVertex {
		return metadata.TexturedVertex{Position: [3]float32{x + offsetX, y, 0}, Normal: [3]float32{0, 0, 1}, UV: [2]float32{u, w}, Layer: layer}
	}
	return []metadata.TexturedVertex{v(-0.5, -0.5, 0, 1), v(0.5, -0.5, 1, 1), v(0.5, 0.5, 1, 0), v(-0.5, 0.5, 0, 0)},
		[]uint32{0, 1, 2, 2, 3, 0}
}

// checker generates an RGBA checkerboard with cells of cell pixels.
func checker(size, cell uint32, a, b [4]uint8) metadata.TextureData {
	pixels := make([]uint8, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			pixels = append(pixels, c[:]...)
		}
	}
	return metadata.TextureData{Width: size, Height: size, Pixels: pixels}
}
