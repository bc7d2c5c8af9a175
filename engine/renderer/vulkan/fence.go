package vulkan

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/core"
)

// fenceWaitSlice bounds a single vkWaitForFences call so a cancelled
// context is noticed while the GPU is busy.
const fenceWaitSlice = 100 * time.Millisecond

// VulkanFence implements frame.Fence.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool

	context *VulkanContext
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
		context:    context,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if err := checkResult(vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence), "vkCreateFence"); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(vf.context.Device.LogicalDevice, vf.Handle, vf.context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled, timeout elapses or ctx is done.
func (vf *VulkanFence) Wait(ctx context.Context, timeout time.Duration) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := min(time.Until(deadline), fenceWaitSlice)
		if slice < 0 {
			slice = 0
		}
		result := vk.WaitForFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, uint64(slice.Nanoseconds()))
		switch result {
		case vk.Success:
			vf.IsSignaled = true
			return nil
		case vk.Timeout:
			if time.Now().After(deadline) {
				return errors.Newf("fence wait timed out after %s", timeout)
			}
		case vk.ErrorDeviceLost:
			return errors.New("fence wait: VK_ERROR_DEVICE_LOST")
		default:
			return checkResult(result, "vkWaitForFences")
		}
	}
}

func (vf *VulkanFence) Reset() error {
	if !vf.IsSignaled {
		return nil
	}
	if err := checkResult(vk.ResetFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}), "vkResetFences"); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}

// Rearm signals the fence through an empty submission that also consumes
// wait, the image-available semaphore of a frame whose work never reached
// the queue. Without it the next wait on this fence would never return.
func (vf *VulkanFence) Rearm(queue vk.Queue, wait vk.Semaphore) error {
	submit := vk.SubmitInfo{SType: vk.StructureTypeSubmitInfo}
	if wait != vk.NullSemaphore {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{wait}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)}
	}
	result := vf.context.queues.SafeCall(queue, func() vk.Result {
		return vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, vf.Handle)
	})
	return checkResult(result, "vkQueueSubmit (fence re-arm)")
}
