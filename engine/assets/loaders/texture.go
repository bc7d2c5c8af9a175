package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, params interface{}) (*Resource, error) {
	// Open and decode the texture image file
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}
	tex := ImageToTexture(img)
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(tex.Pixels)),
		Data:     tex,
	}, nil
}

func (tl *TextureLoader) Unload(*Resource) error {
	return nil
}

// ImageToTexture converts any decoded image to tightly packed RGBA8.
func ImageToTexture(img image.Image) metadata.TextureData {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return metadata.TextureData{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: rgba.Pix,
	}
}

// ResizeLayers scales every layer to the largest width and height found
// among them so they can share one texture array.
func ResizeLayers(layers []metadata.TextureData) ([]metadata.TextureData, uint32, uint32) {
	var w, h uint32
	for _, l := range layers {
		w = max(w, l.Width)
		h = max(h, l.Height)
	}
	out := make([]metadata.TextureData, len(layers))
	for i, l := range layers {
		if l.Width == w && l.Height == h {
			out[i] = l
			continue
		}
		src := &image.RGBA{
			Pix:    l.Pixels,
			Stride: int(l.Width) * 4,
			Rect:   image.Rect(0, 0, int(l.Width), int(l.Height)),
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		out[i] = metadata.TextureData{Width: w, Height: h, Pixels: dst.Pix}
	}
	return out, w, h
}
