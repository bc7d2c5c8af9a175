package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

/**
 * @brief Raw RGBA8 pixels, row-major, four bytes per pixel.
 */
type TextureData struct {
	Width  uint32
	Height uint32
	Pixels []uint8
}

func (t TextureData) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return errors.Newf("texture has zero extent %dx%d", t.Width, t.Height)
	}
	if want := int(t.Width) * int(t.Height) * 4; len(t.Pixels) != want {
		return errors.Newf("texture %dx%d expects %d bytes, got %d", t.Width, t.Height, want, len(t.Pixels))
	}
	return nil
}

// PlaceholderTexture is the 2x2 purple and magenta checker used wherever a
// texture is missing.
func PlaceholderTexture() TextureData {
	return TextureData{
		Width:  2,
		Height: 2,
		Pixels: []uint8{
			128, 0, 128, 255,
			255, 0, 255, 255,
			255, 0, 255, 255,
			128, 0, 128, 255,
		},
	}
}

/**
 * @brief Represents a sampled texture (or texture array) on the GPU.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uuid.UUID
	/** @brief The texture width. */
	Width uint32
	/** @brief The texture height. */
	Height uint32
	/** @brief The number of array layers, 1 for plain 2D textures. */
	Layers uint32
	/** @brief The descriptor set sampling this texture. */
	Set *DescriptorSet
	/** @brief The raw texture data (pixels). */
	InternalData interface{}
}
