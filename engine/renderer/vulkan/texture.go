package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// textureFormat is used for every sampled texture. Pixels arrive as RGBA8.
const textureFormat = vk.FormatR8g8b8a8Srgb

// VulkanTexture is the backend state behind metadata.Texture.
type VulkanTexture struct {
	Image *VulkanImage
	Set   vk.DescriptorSet
}

func createSampler(context *VulkanContext) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           min(16, context.Device.Properties.Limits.MaxSamplerAnisotropy),
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	var sampler vk.Sampler
	if err := checkResult(vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler), "vkCreateSampler"); err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}

// TextureCreate uploads equally sized RGBA8 layers into a 2D array image
// and builds the descriptor set sampling it. A single layer is simply an
// array of one.
func TextureCreate(context *VulkanContext, layers []metadata.TextureData, minStaging uint64) (*metadata.Texture, error) {
	if len(layers) == 0 {
		return nil, errors.New("texture needs at least one layer")
	}
	width, height := layers[0].Width, layers[0].Height
	for i, layer := range layers {
		if err := layer.Validate(); err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		if layer.Width != width || layer.Height != height {
			return nil, errors.Newf("layer %d is %dx%d, expected %dx%d", i, layer.Width, layer.Height, width, height)
		}
	}

	layerSize := uint64(width) * uint64(height) * 4
	staging, err := context.ensureStaging(layerSize*uint64(len(layers)), minStaging)
	if err != nil {
		return nil, err
	}
	for i, layer := range layers {
		if err := staging.Write(uint64(i)*layerSize, layer.Pixels); err != nil {
			return nil, err
		}
	}

	image, err := ImageCreate(context, ImageConfig{
		Width:       width,
		Height:      height,
		Layers:      uint32(len(layers)),
		Format:      textureFormat,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView:  true,
		ViewType:    vk.ImageViewType2dArray,
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	var recordErr error
	err = SingleUse(context, func(cmd vk.CommandBuffer) {
		if recordErr = image.TransitionLayout(cmd, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); recordErr != nil {
			return
		}
		image.CopyFromBuffer(cmd, staging.Handle, 0)
		recordErr = image.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if err == nil {
		err = recordErr
	}
	if err != nil {
		image.ImageDestroy(context)
		return nil, errors.Wrap(err, "texture upload")
	}

	set, err := context.Descriptors.TextureSet(context, image.View, context.Sampler)
	if err != nil {
		image.ImageDestroy(context)
		return nil, err
	}

	return &metadata.Texture{
		ID:     uuid.New(),
		Width:  width,
		Height: height,
		Layers: uint32(len(layers)),
		Set: &metadata.DescriptorSet{
			Layout:       metadata.DescriptorLayoutTexture,
			InternalData: set,
		},
		InternalData: &VulkanTexture{Image: image, Set: set},
	}, nil
}

func TextureDestroy(context *VulkanContext, texture *metadata.Texture) {
	if texture == nil {
		return
	}
	vt, ok := texture.InternalData.(*VulkanTexture)
	if !ok {
		return
	}
	context.Descriptors.Free(context, vt.Set)
	vt.Image.ImageDestroy(context)
	texture.InternalData = nil
	texture.Set = nil
}
