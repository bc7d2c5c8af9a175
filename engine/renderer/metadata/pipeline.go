package metadata

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeBack
	CullModeFront
)

type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// Names of the pipelines every renderer registers at start up.
const (
	PipelineDefault      = "default"
	PipelineInstanced    = "instanced"
	PipelineSkinned      = "skinned"
	PipelineSkinnedInst  = "skinned_instanced"
	PipelineTextured     = "textured"
	PipelineTextureArray = "texture_array"
	PipelineUI           = "ui"
)

/**
 * @brief Everything needed to build a graphics pipeline.
 */
type PipelineConfig struct {
	/** @brief The name the pipeline is registered under. */
	Name string
	/** @brief Path of the compiled SPIR-V vertex stage. */
	VertexShader string
	/** @brief Path of the compiled SPIR-V fragment stage. */
	FragmentShader string
	Layout         VertexLayout
	PushConstants  []PushConstantRange
	// DescriptorLayouts lists the set layouts in set order.
	DescriptorLayouts []DescriptorLayout
	CullMode          CullMode
	FrontFace         FrontFace
	DepthTest         bool
	AlphaBlending     bool
}

// Pipeline is a built pipeline and its layout.
type Pipeline struct {
	Name         string
	Config       PipelineConfig
	InternalData interface{}
}
