package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/core"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// DepthAttachment is nil when the render pass has no depth.
	DepthAttachment *VulkanImage

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

// SwapchainOptions carries the presentation preferences of the config.
type SwapchainOptions struct {
	PreferVSync bool
	Depth       bool
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode returns FIFO under vsync, otherwise the lowest latency
// mode available. FIFO is always supported.
func choosePresentMode(modes []vk.PresentMode, preferVSync bool) vk.PresentMode {
	if preferVSync {
		return vk.PresentModeFifo
	}
	for _, wanted := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, mode := range modes {
			if mode == wanted {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  MathClamp(width, minExtent.Width, maxExtent.Width),
		Height: MathClamp(height, minExtent.Height, maxExtent.Height),
	}
}

func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func SwapchainCreate(context *VulkanContext, width, height uint32, opts SwapchainOptions) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height, opts, vk.NullSwapchain)
}

// SwapchainRecreate builds a replacement chain, handing the old one to the
// driver so in-flight presentation can finish, then destroys the old one.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32, opts SwapchainOptions) (*VulkanSwapchain, error) {
	next, err := createSwapchain(context, width, height, opts, vs.Handle)
	vs.destroySwapchain(context)
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

// SwapchainAcquireNextImageIndex returns the next image to render to.
// outOfDate reports that the chain must be rebuilt before rendering.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (index uint32, outOfDate bool, err error) {
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &index)
	switch result {
	case vk.Success, vk.Suboptimal:
		return index, false, nil
	case vk.ErrorOutOfDate:
		return 0, true, nil
	case vk.Timeout, vk.NotReady:
		return 0, false, errors.Newf("vkAcquireNextImageKHR returned %s", VulkanResultString(result))
	default:
		return 0, false, checkResult(result, "vkAcquireNextImageKHR")
	}
}

// SwapchainPresent queues image for presentation once renderComplete is
// signaled. outOfDate reports a chain that no longer matches the surface.
func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderComplete vk.Semaphore, image uint32) (outOfDate bool, err error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{image},
	}

	result := context.queues.SafeCall(presentQueue, func() vk.Result {
		return vk.QueuePresent(presentQueue, &presentInfo)
	})
	switch result {
	case vk.Success:
		return false, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return true, nil
	default:
		return false, checkResult(result, "vkQueuePresentKHR")
	}
}

func createSwapchain(context *VulkanContext, width, height uint32, opts SwapchainOptions, old vk.Swapchain) (*VulkanSwapchain, error) {
	support := &context.Device.SwapchainSupport
	if len(support.Formats) == 0 {
		return nil, errors.New("surface reports no formats")
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes, opts.PreferVSync),
		Extent:      chooseExtent(support.Capabilities, width, height),
	}
	imageCount := chooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	device := context.Device.LogicalDevice
	var handle vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(device, &swapchainCreateInfo, context.Allocator, &handle), "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.Handle = handle

	var count uint32
	if err := checkResult(vk.GetSwapchainImages(device, handle, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.destroySwapchain(context)
		return nil, err
	}
	swapchain.Images = make([]vk.Image, count)
	if err := checkResult(vk.GetSwapchainImages(device, handle, &count, swapchain.Images), "vkGetSwapchainImagesKHR"); err != nil {
		swapchain.destroySwapchain(context)
		return nil, err
	}
	swapchain.ImageCount = count

	swapchain.Views = make([]vk.ImageView, count)
	for i, image := range swapchain.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := checkResult(vk.CreateImageView(device, &viewInfo, context.Allocator, &view), "vkCreateImageView"); err != nil {
			swapchain.destroySwapchain(context)
			return nil, err
		}
		swapchain.Views[i] = view
	}

	if opts.Depth {
		depth, err := ImageCreate(context, ImageConfig{
			Width:       swapchain.Extent.Width,
			Height:      swapchain.Extent.Height,
			Format:      context.Device.DepthFormat,
			Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			CreateView:  true,
			ViewType:    vk.ImageViewType2d,
			ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		})
		if err != nil {
			swapchain.destroySwapchain(context)
			return nil, errors.Wrap(err, "depth attachment")
		}
		swapchain.DepthAttachment = depth
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", swapchain.Extent.Width, swapchain.Extent.Height, count)
	return swapchain, nil
}

// Attachments lists the views a framebuffer for image needs, in render
// pass attachment order.
func (vs *VulkanSwapchain) Attachments(image int) []vk.ImageView {
	views := []vk.ImageView{vs.Views[image]}
	if vs.DepthAttachment != nil {
		views = append(views, vs.DepthAttachment.View)
	}
	return views
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vs.DepthAttachment != nil {
		vs.DepthAttachment.ImageDestroy(context)
		vs.DepthAttachment = nil
	}

	// Only destroy the views, not the images, since those are owned by the
	// swapchain and are destroyed with it.
	for _, view := range vs.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(device, view, context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
