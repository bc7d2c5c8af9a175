package loaders

import (
	"image"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

type FontGlyph struct {
	X, Y          int
	Width, Height int
	XOffset       int
	YOffset       int
	XAdvance      int
	Page          int
}

type KerningPair struct {
	First, Second rune
}

// FontData is a bitmap font with its first page decoded into an RGBA atlas.
type FontData struct {
	Face        string
	Size        int
	LineHeight  int
	Baseline    int
	AtlasWidth  int
	AtlasHeight int
	Glyphs      map[rune]FontGlyph
	Kernings    map[KerningPair]int
	Atlas       metadata.TextureData
}

// Kerning returns the advance adjustment between two runes.
func (f *FontData) Kerning(first, second rune) int {
	return f.Kernings[KerningPair{First: first, Second: second}]
}

type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, params interface{}) (*Resource, error) {
	if filepath.Ext(path) != ".fnt" {
		return nil, errors.Newf("unable to find bitmap font of supported type at '%s'", path)
	}
	data, err := fl.importFNTFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading bitmap font %s", path)
	}
	return &Resource{
		Name:     data.Face,
		FullPath: path,
		DataSize: uint64(len(data.Atlas.Pixels)),
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *Resource) error {
	if resource.Data != nil {
		data := resource.Data.(*FontData)
		data.Glyphs = nil
		data.Kernings = nil
		data.Atlas = metadata.TextureData{}
		resource.Data = nil
		resource.DataSize = 0
		resource.FullPath = ""
	}
	return nil
}

func (fl *BitmapFontLoader) importFNTFile(fntFileName string) (*FontData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, err
	}

	out := &FontData{
		Face:        font.Descriptor.Info.Face,
		Size:        int(font.Descriptor.Info.Size),
		LineHeight:  int(font.Descriptor.Common.LineHeight),
		Baseline:    int(font.Descriptor.Common.Base),
		AtlasWidth:  int(font.Descriptor.Common.ScaleW),
		AtlasHeight: int(font.Descriptor.Common.ScaleH),
		Glyphs:      make(map[rune]FontGlyph, len(font.Descriptor.Chars)),
		Kernings:    make(map[KerningPair]int, len(font.Descriptor.Kerning)),
	}

	for _, g := range font.Descriptor.Chars {
		out.Glyphs[rune(g.ID)] = FontGlyph{
			X:        int(g.X),
			Y:        int(g.Y),
			Width:    int(g.Width),
			Height:   int(g.Height),
			XOffset:  int(g.XOffset),
			YOffset:  int(g.YOffset),
			XAdvance: int(g.XAdvance),
			Page:     int(g.Page),
		}
	}
	for p, k := range font.Descriptor.Kerning {
		out.Kernings[KerningPair{First: rune(p.First), Second: rune(p.Second)}] = int(k.Amount)
	}

	// only the first page is uploaded
	for _, p := range font.Descriptor.Pages {
		if int(p.ID) != 0 {
			continue
		}
		f, err := os.Open(filepath.Join(filepath.Dir(fntFileName), p.File))
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decoding font page %s", p.File)
		}
		out.Atlas = ImageToTexture(img)
	}
	if out.Atlas.Width == 0 {
		return nil, errors.New("bitmap font has no page 0")
	}
	return out, nil
}
