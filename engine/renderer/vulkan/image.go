package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
)

// VulkanImage is an image bound to a block of the pooled allocator, with
// an optional view covering every layer.
type VulkanImage struct {
	Handle vk.Image
	Block  *memory.Block
	View   vk.ImageView
	Width  uint32
	Height uint32
	Layers uint32
	Format vk.Format
}

type ImageConfig struct {
	Width, Height uint32
	Layers        uint32
	Format        vk.Format
	Usage         vk.ImageUsageFlags
	MemoryFlags   vk.MemoryPropertyFlags
	CreateView    bool
	ViewType      vk.ImageViewType
	ViewAspect    vk.ImageAspectFlags
}

func ImageCreate(context *VulkanContext, cfg ImageConfig) (*VulkanImage, error) {
	if cfg.Layers == 0 {
		cfg.Layers = 1
	}
	img := &VulkanImage{
		Width:  cfg.Width,
		Height: cfg.Height,
		Layers: cfg.Layers,
		Format: cfg.Format,
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  cfg.Width,
			Height: cfg.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   cfg.Layers,
		Format:        cfg.Format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         cfg.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	device := context.Device.LogicalDevice
	var handle vk.Image
	if err := checkResult(vk.CreateImage(device, &createInfo, context.Allocator, &handle), "vkCreateImage"); err != nil {
		return nil, err
	}
	img.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	block, err := context.allocateBlock(requirements, cfg.MemoryFlags)
	if err != nil {
		img.ImageDestroy(context)
		return nil, errors.Wrapf(err, "image %dx%dx%d", cfg.Width, cfg.Height, cfg.Layers)
	}
	img.Block = block

	chunk := block.Memory.(*deviceChunk)
	if err := checkResult(vk.BindImageMemory(device, handle, chunk.Memory, vk.DeviceSize(block.Offset)), "vkBindImageMemory"); err != nil {
		img.ImageDestroy(context)
		return nil, err
	}

	if cfg.CreateView {
		if err := img.createView(context, cfg.ViewType, cfg.ViewAspect); err != nil {
			img.ImageDestroy(context)
			return nil, err
		}
	}
	return img, nil
}

func (vi *VulkanImage) createView(context *VulkanContext, viewType vk.ImageViewType, aspect vk.ImageAspectFlags) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: viewType,
		Format:   vi.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: vi.Layers,
		},
	}
	var view vk.ImageView
	if err := checkResult(vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view), "vkCreateImageView"); err != nil {
		return err
	}
	vi.View = view
	return nil
}

// TransitionLayout records a barrier moving every layer of the image from
// oldLayout to newLayout. Only the transitions texture uploads need are
// supported.
func (vi *VulkanImage) TransitionLayout(cmd vk.CommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: vi.Layers,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return errors.Newf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}

	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer copies tightly packed layers, one after the other, from
// buffer into the image.
func (vi *VulkanImage) CopyFromBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, bufferOffset uint64) {
	layerSize := uint64(vi.Width) * uint64(vi.Height) * 4
	regions := make([]vk.BufferImageCopy, vi.Layers)
	for i := range regions {
		regions[i] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(bufferOffset + uint64(i)*layerSize),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseArrayLayer: uint32(i),
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: vi.Width, Height: vi.Height, Depth: 1},
		}
	}
	vk.CmdCopyBufferToImage(cmd, buffer, vi.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
}

func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(device, vi.View, context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(device, vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
	if vi.Block != nil {
		if err := context.Memory.Free(vi.Block); err != nil {
			context.logMemoryError(err)
		}
		vi.Block = nil
	}
}
