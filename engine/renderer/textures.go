package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// AddTexturedMesh uploads a mesh sampling a texture array. Layers of
// different sizes are scaled to the largest width and height among them.
// Without layers the placeholder checker is used.
func (r *Renderer) AddTexturedMesh(vertices []metadata.TexturedVertex, indices []uint32, transforms []mgl32.Mat4, layers []metadata.TextureData) (int, error) {
	if len(layers) == 0 {
		layers = []metadata.TextureData{metadata.PlaceholderTexture()}
	}
	for i, l := range layers {
		if err := l.Validate(); err != nil {
			return -1, errors.Wrapf(err, "texture layer %d", i)
		}
	}
	resized, _, _ := loaders.ResizeLayers(layers)

	m, err := newGeometryEntry(r, vertices, indices)
	if err != nil {
		return -1, err
	}
	tex, err := r.backend.CreateTexture(resized)
	if err != nil {
		r.destroyMesh(m)
		return -1, errors.Wrap(err, "creating texture array")
	}
	m.Texture = tex
	m.Instancing = metadata.Individual{Transforms: transforms}
	m.Pipeline = metadata.PipelineTextureArray
	return r.register(m), nil
}

// SetMeshTexture gives a mesh its own texture. Meshes still on the default
// pipeline switch to the textured one.
func (r *Renderer) SetMeshTexture(index int, data metadata.TextureData) error {
	m := r.live(index, "texture")
	if m == nil {
		return nil
	}
	if err := data.Validate(); err != nil {
		return err
	}
	tex, err := r.backend.CreateTexture([]metadata.TextureData{data})
	if err != nil {
		return errors.Wrapf(err, "creating texture for mesh %d", index)
	}
	r.retireTexture(m.Texture)
	m.Texture = tex
	if m.Pipeline == "" || m.Pipeline == metadata.PipelineDefault {
		m.Pipeline = metadata.PipelineTextured
	}
	return nil
}

// SetMeshTextureFromFile loads an image through the asset source and hands
// it to SetMeshTexture.
func (r *Renderer) SetMeshTextureFromFile(index int, path string) error {
	if r.live(index, "texture file") == nil {
		return nil
	}
	res, err := r.assets.LoadAsset(path, loaders.ResourceTypeImage, nil)
	if err != nil {
		return errors.Wrapf(err, "loading texture %s", path)
	}
	data, ok := res.Data.(metadata.TextureData)
	if !ok {
		return errors.Newf("%s did not load as an image", path)
	}
	return r.SetMeshTexture(index, data)
}
