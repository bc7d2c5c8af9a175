package loaders

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// ModelData is an indexed triangle list ready for the mesh registry.
type ModelData struct {
	Vertices []metadata.Vertex
	Indices  []uint32
}

// ModelParams optionally names the material library next to an OBJ file.
type ModelParams struct {
	MaterialPath string
	Color        [4]float32
}

type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, params interface{}) (*Resource, error) {
	p, _ := params.(*ModelParams)
	if p == nil {
		p = &ModelParams{Color: [4]float32{1, 1, 1, 1}}
	}

	objFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer objFile.Close()

	var mtl io.Reader = strings.NewReader("")
	if p.MaterialPath != "" {
		mtlFile, err := os.Open(p.MaterialPath)
		if err != nil {
			return nil, err
		}
		defer mtlFile.Close()
		mtl = mtlFile
	}

	model, err := DecodeOBJ(objFile, mtl, p.Color)
	if err != nil {
		return nil, errors.Wrapf(err, "loading model %s", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(model.Vertices)),
		Data:     model,
	}, nil
}

func (ml *ModelLoader) Unload(*Resource) error {
	return nil
}

type objKey struct {
	v, uv, n int
}

// DecodeOBJ flattens every object of an OBJ stream into one indexed mesh.
// Polygons are fan-triangulated and identical corners are shared.
func DecodeOBJ(objReader, mtlReader io.Reader, color [4]float32) (*ModelData, error) {
	decoder, err := obj.DecodeReader(objReader, mtlReader)
	if err != nil {
		return nil, err
	}

	model := &ModelData{}
	unique := make(map[objKey]uint32)
	corner := func(face *obj.Face, i int) uint32 {
		// corners without a texture coordinate or normal carry an
		// out-of-range index
		key := objKey{v: face.Vertices[i], uv: -1, n: -1}
		if i < len(face.Uvs) && face.Uvs[i] >= 0 && face.Uvs[i]*2+1 < len(decoder.Uvs) {
			key.uv = face.Uvs[i]
		}
		if i < len(face.Normals) && face.Normals[i] >= 0 && face.Normals[i]*3+2 < len(decoder.Normals) {
			key.n = face.Normals[i]
		}
		if index, ok := unique[key]; ok {
			return index
		}

		vert := metadata.Vertex{
			Position: [3]float32{
				decoder.Vertices[key.v*3],
				decoder.Vertices[key.v*3+1],
				decoder.Vertices[key.v*3+2],
			},
			Color: color,
		}
		if key.uv >= 0 {
			vert.UV = [2]float32{decoder.Uvs[key.uv*2], 1.0 - decoder.Uvs[key.uv*2+1]}
		}
		if key.n >= 0 {
			vert.Normal = [3]float32{
				decoder.Normals[key.n*3],
				decoder.Normals[key.n*3+1],
				decoder.Normals[key.n*3+2],
			}
		}
		index := uint32(len(model.Vertices))
		model.Vertices = append(model.Vertices, vert)
		unique[key] = index
		return index
	}

	for oi := range decoder.Objects {
		for fi := range decoder.Objects[oi].Faces {
			face := &decoder.Objects[oi].Faces[fi]
			for i := 1; i+1 < len(face.Vertices); i++ {
				model.Indices = append(model.Indices, corner(face, 0), corner(face, i), corner(face, i+1))
			}
		}
	}
	if len(model.Indices) == 0 {
		return nil, errors.New("model has no faces")
	}
	return model, nil
}
