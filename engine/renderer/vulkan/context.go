package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/frame"
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
)

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, the swapchain is rebuilt on the next frame.
	FramebufferSizeGeneration uint64
	// The generation of the framebuffer when it was last created.
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// One per swapchain image.
	GraphicsCommandBuffers []*VulkanCommandBuffer

	// One per frame slot.
	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore
	InFlightFences           []*VulkanFence

	Pacer *frame.Pacer

	ImageIndex uint32
	// InFrame is set between a successful BeginFrame and its EndFrame.
	InFrame bool

	RecreatingSwapchain bool

	Memory      *memory.Manager
	Staging     *VulkanBuffer
	Descriptors *DescriptorAllocator
	Sampler     vk.Sampler

	queues *queueLocks
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every bit of propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	props := vc.Device.Memory
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		memoryType := props.MemoryTypes[i]
		memoryType.Deref()
		if typeFilter&(1<<i) != 0 && memoryType.PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, errors.Wrapf(core.ErrNoMemoryType, "filter %#x, properties %#x", typeFilter, uint32(propertyFlags))
}

// memoryTypeFlags returns the property flags of a memory type index.
func (vc *VulkanContext) memoryTypeFlags(memoryType uint32) vk.MemoryPropertyFlags {
	t := vc.Device.Memory.MemoryTypes[memoryType]
	t.Deref()
	return t.PropertyFlags
}

// currentCommandBuffer is the command buffer recording the current frame,
// nil outside BeginFrame/EndFrame.
func (vc *VulkanContext) currentCommandBuffer() *VulkanCommandBuffer {
	if !vc.InFrame || int(vc.ImageIndex) >= len(vc.GraphicsCommandBuffers) {
		return nil
	}
	return vc.GraphicsCommandBuffers[vc.ImageIndex]
}
