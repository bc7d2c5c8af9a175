package metadata

import "unsafe"

/** @brief A mesh vertex: position, normal, texture coordinate and color. */
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    [4]float32
}

/** @brief A vertex deformed by up to four weighted joints. */
type SkinnedVertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Color    [4]float32
	Joints   [4]uint32
	Weights  [4]float32
}

/** @brief A vertex sampling one layer of a texture array. */
type TexturedVertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	Layer    uint32
}

// InstanceData is the per-instance attribute of instanced meshes.
type InstanceData struct {
	Position [3]float32
}

// UIVertex is one vertex of an overlay paint primitive.
type UIVertex struct {
	Position [2]float32
	UV       [2]float32
	Color    [4]uint8
}

type VertexFormat uint8

const (
	FormatFloat2 VertexFormat = iota
	FormatFloat3
	FormatFloat4
	FormatUint
	FormatUint4
	FormatUnorm4x8
)

type InputRate uint8

const (
	InputRateVertex InputRate = iota
	InputRateInstance
)

type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

type VertexBinding struct {
	Binding    uint32
	Stride     uint32
	InputRate  InputRate
	Attributes []VertexAttribute
}

// VertexLayout describes every vertex buffer binding a pipeline reads.
type VertexLayout struct {
	Bindings []VertexBinding
}

// Attributes counts the attributes across all bindings.
func (l VertexLayout) Attributes() int {
	n := 0
	for _, b := range l.Bindings {
		n += len(b.Attributes)
	}
	return n
}

const InstanceAttributeLocation uint32 = 4

var instanceBinding = VertexBinding{
	Binding:   1,
	Stride:    uint32(unsafe.Sizeof(InstanceData{})),
	InputRate: InputRateInstance,
	Attributes: []VertexAttribute{
		{Location: InstanceAttributeLocation, Format: FormatFloat3, Offset: 0},
	},
}

func vertexBinding() VertexBinding {
	var v Vertex
	return VertexBinding{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(v)),
		InputRate: InputRateVertex,
		Attributes: []VertexAttribute{
			{Location: 0, Format: FormatFloat3, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: FormatFloat3, Offset: uint32(unsafe.Offsetof(v.Normal))},
			{Location: 2, Format: FormatFloat2, Offset: uint32(unsafe.Offsetof(v.UV))},
			{Location: 3, Format: FormatFloat4, Offset: uint32(unsafe.Offsetof(v.Color))},
		},
	}
}

func skinnedBinding() VertexBinding {
	var v SkinnedVertex
	return VertexBinding{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(v)),
		InputRate: InputRateVertex,
		Attributes: []VertexAttribute{
			{Location: 0, Format: FormatFloat3, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: FormatFloat3, Offset: uint32(unsafe.Offsetof(v.Normal))},
			{Location: 2, Format: FormatFloat2, Offset: uint32(unsafe.Offsetof(v.UV))},
			{Location: 3, Format: FormatFloat4, Offset: uint32(unsafe.Offsetof(v.Color))},
			{Location: 5, Format: FormatUint4, Offset: uint32(unsafe.Offsetof(v.Joints))},
			{Location: 6, Format: FormatFloat4, Offset: uint32(unsafe.Offsetof(v.Weights))},
		},
	}
}

func texturedBinding() VertexBinding {
	var v TexturedVertex
	return VertexBinding{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(v)),
		InputRate: InputRateVertex,
		Attributes: []VertexAttribute{
			{Location: 0, Format: FormatFloat3, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: FormatFloat3, Offset: uint32(unsafe.Offsetof(v.Normal))},
			{Location: 2, Format: FormatFloat2, Offset: uint32(unsafe.Offsetof(v.UV))},
			{Location: 3, Format: FormatUint, Offset: uint32(unsafe.Offsetof(v.Layer))},
		},
	}
}

func uiBinding() VertexBinding {
	var v UIVertex
	return VertexBinding{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(v)),
		InputRate: InputRateVertex,
		Attributes: []VertexAttribute{
			{Location: 0, Format: FormatFloat2, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: FormatFloat2, Offset: uint32(unsafe.Offsetof(v.UV))},
			{Location: 2, Format: FormatUnorm4x8, Offset: uint32(unsafe.Offsetof(v.Color))},
		},
	}
}

func MeshLayout() VertexLayout {
	return VertexLayout{Bindings: []VertexBinding{vertexBinding()}}
}

func InstancedMeshLayout() VertexLayout {
	return VertexLayout{Bindings: []VertexBinding{vertexBinding(), instanceBinding}}
}

func SkinnedLayout() VertexLayout {
	return VertexLayout{Bindings: []VertexBinding{skinnedBinding()}}
}

func InstancedSkinnedLayout() VertexLayout {
	return VertexLayout{Bindings: []VertexBinding{skinnedBinding(), instanceBinding}}
}

func TexturedLayout() VertexLayout {
	return VertexLayout{Bindings: []VertexBinding{texturedBinding()}}
}

func UILayout() VertexLayout {
	return VertexLayout{Bindings: []VertexBinding{uiBinding()}}
}
