package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// maxPushConstantRanges is what the 128 guaranteed bytes allow at 4-byte
// alignment.
const maxPushConstantRanges = 32

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	/** @brief The stage flags of each push constant range, in config order. */
	PushStages []vk.ShaderStageFlags
}

var vertexFormats = map[metadata.VertexFormat]vk.Format{
	metadata.FormatFloat2:   vk.FormatR32g32Sfloat,
	metadata.FormatFloat3:   vk.FormatR32g32b32Sfloat,
	metadata.FormatFloat4:   vk.FormatR32g32b32a32Sfloat,
	metadata.FormatUint:     vk.FormatR32Uint,
	metadata.FormatUint4:    vk.FormatR32g32b32a32Uint,
	metadata.FormatUnorm4x8: vk.FormatR8g8b8a8Unorm,
}

func vertexFormat(f metadata.VertexFormat) (vk.Format, error) {
	format, ok := vertexFormats[f]
	if !ok {
		return vk.FormatUndefined, errors.Newf("unknown vertex format %d", f)
	}
	return format, nil
}

func shaderStageFlags(stages metadata.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if stages&metadata.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if stages&metadata.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(flags)
}

func cullModeFlags(mode metadata.CullMode) vk.CullModeFlags {
	switch mode {
	case metadata.CullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func frontFace(face metadata.FrontFace) vk.FrontFace {
	if face == metadata.FrontFaceClockwise {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

// vertexInput converts a layout to binding and attribute descriptions.
func vertexInput(layout metadata.VertexLayout) ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription, error) {
	bindings := make([]vk.VertexInputBindingDescription, 0, len(layout.Bindings))
	attributes := make([]vk.VertexInputAttributeDescription, 0, layout.Attributes())
	for _, b := range layout.Bindings {
		rate := vk.VertexInputRateVertex
		if b.InputRate == metadata.InputRateInstance {
			rate = vk.VertexInputRateInstance
		}
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: rate,
		})
		for _, a := range b.Attributes {
			format, err := vertexFormat(a.Format)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "binding %d location %d", b.Binding, a.Location)
			}
			attributes = append(attributes, vk.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  b.Binding,
				Format:   format,
				Offset:   a.Offset,
			})
		}
	}
	return bindings, attributes, nil
}

// NewGraphicsPipeline builds a pipeline for the main render pass. Viewport
// and scissor are dynamic and set per frame.
func NewGraphicsPipeline(context *VulkanContext, config *metadata.PipelineConfig, vertexCode, fragmentCode []uint32) (*VulkanPipeline, error) {
	if len(config.PushConstants) > maxPushConstantRanges {
		return nil, errors.Newf("pipeline %q: cannot have more than %d push constant ranges, got %d", config.Name, maxPushConstantRanges, len(config.PushConstants))
	}

	bindings, attributes, err := vertexInput(config.Layout)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %q", config.Name)
	}

	setLayouts := make([]vk.DescriptorSetLayout, len(config.DescriptorLayouts))
	for i, l := range config.DescriptorLayouts {
		if setLayouts[i], err = context.Descriptors.Layout(l); err != nil {
			return nil, errors.Wrapf(err, "pipeline %q", config.Name)
		}
	}

	vertexStage, err := NewShaderStage(context, vertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %q vertex stage", config.Name)
	}
	defer vertexStage.Destroy(context)
	fragmentStage, err := NewShaderStage(context, fragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %q fragment stage", config.Name)
	}
	defer fragmentStage.Destroy(context)

	outPipeline := &VulkanPipeline{}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullModeFlags(config.CullMode),
		FrontFace:               frontFace(config.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest && context.MainRenderpass.HasDepth {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if config.AlphaBlending {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.ColorBlendOp = vk.BlendOpAdd
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.AlphaBlendOp = vk.BlendOpAdd
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if len(config.PushConstants) > 0 {
		ranges := make([]vk.PushConstantRange, len(config.PushConstants))
		outPipeline.PushStages = make([]vk.ShaderStageFlags, len(config.PushConstants))
		for i, r := range config.PushConstants {
			stages := shaderStageFlags(r.Stages)
			ranges[i] = vk.PushConstantRange{
				StageFlags: stages,
				Offset:     r.Offset,
				Size:       r.Size,
			}
			outPipeline.PushStages[i] = stages
		}
		pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(ranges))
		pipelineLayoutCreateInfo.PPushConstantRanges = ranges
	}

	var pipelineLayout vk.PipelineLayout
	if err := checkResult(vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pipelineLayout), "vkCreatePipelineLayout"); err != nil {
		return nil, errors.Wrapf(err, "pipeline %q", config.Name)
	}
	outPipeline.PipelineLayout = pipelineLayout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			vertexStage.ShaderStageCreateInfo,
			fragmentStage.ShaderStageCreateInfo,
		},
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          context.MainRenderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines)
	if err := checkResult(result, "vkCreateGraphicsPipelines"); err != nil {
		outPipeline.Destroy(context)
		return nil, errors.Wrapf(err, "pipeline %q", config.Name)
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline '%s' created.", config.Name)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
		pipeline.PipelineLayout = vk.NullPipelineLayout
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}
