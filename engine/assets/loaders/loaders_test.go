package loaders

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToBytecode(t *testing.T) {
	code, err := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0xaa, 0xbb, 0xcc, 0xdd})
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0xddccbbaa}, code)

	_, err = bytesToBytecode([]byte{0x03, 0x02, 0x23})
	assert.Error(t, err)
	_, err = bytesToBytecode(nil)
	assert.Error(t, err)
	_, err = bytesToBytecode([]byte{0, 0, 0, 0})
	assert.Error(t, err)
}

func TestImageToTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	tex := ImageToTexture(img)
	require.NoError(t, tex.Validate())
	assert.EqualValues(t, 3, tex.Width)
	assert.EqualValues(t, 2, tex.Height)
	last := tex.Pixels[len(tex.Pixels)-4:]
	assert.Equal(t, []uint8{10, 20, 30, 255}, last)
}

func TestResizeLayers(t *testing.T) {
	small := metadata.PlaceholderTexture()
	big := metadata.TextureData{Width: 4, Height: 8, Pixels: make([]uint8, 4*8*4)}

	out, w, h := ResizeLayers([]metadata.TextureData{small, big})
	assert.EqualValues(t, 4, w)
	assert.EqualValues(t, 8, h)
	require.Len(t, out, 2)
	for _, l := range out {
		require.NoError(t, l.Validate())
		assert.EqualValues(t, 4, l.Width)
		assert.EqualValues(t, 8, l.Height)
	}
	assert.Equal(t, big.Pixels, out[1].Pixels)
}

const quadOBJ = `o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestDecodeOBJQuad(t *testing.T) {
	model, err := DecodeOBJ(strings.NewReader(quadOBJ), strings.NewReader(""), [4]float32{1, 0, 0, 1})
	require.NoError(t, err)

	assert.Len(t, model.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, model.Indices)

	v := model.Vertices[2]
	assert.Equal(t, [3]float32{1, 1, 0}, v.Position)
	assert.Equal(t, [3]float32{0, 0, 1}, v.Normal)
	assert.Equal(t, [2]float32{1, 0}, v.UV)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, v.Color)
}

func TestDecodeOBJWithoutFaces(t *testing.T) {
	_, err := DecodeOBJ(strings.NewReader("o empty\nv 0 0 0\n"), strings.NewReader(""), [4]float32{})
	assert.Error(t, err)
}
