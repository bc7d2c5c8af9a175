package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// deviceChunk is one vkAllocateMemory result. Host-visible coherent chunks
// stay mapped for their whole life since a VkDeviceMemory can only be
// mapped once at a time and several blocks share it.
type deviceChunk struct {
	Memory vk.DeviceMemory
	Size   uint64
	Mapped unsafe.Pointer
}

// chunkDevice implements memory.ChunkDevice on top of the logical device.
type chunkDevice struct {
	context *VulkanContext
}

func (cd chunkDevice) AllocateChunk(memoryType uint32, size uint64) (interface{}, error) {
	return cd.context.allocateDeviceMemory(memoryType, size)
}

func (cd chunkDevice) FreeChunk(memoryType uint32, mem interface{}) {
	if chunk, ok := mem.(*deviceChunk); ok {
		cd.context.freeDeviceMemory(chunk)
	}
}

func (vc *VulkanContext) allocateDeviceMemory(memoryType uint32, size uint64) (*deviceChunk, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}
	var mem vk.DeviceMemory
	if err := checkResult(vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &mem), "vkAllocateMemory"); err != nil {
		return nil, errors.Wrapf(err, "allocating %d bytes of memory type %d", size, memoryType)
	}
	chunk := &deviceChunk{Memory: mem, Size: size}

	if mappable(vc.memoryTypeFlags(memoryType)) {
		var ptr unsafe.Pointer
		if err := checkResult(vk.MapMemory(vc.Device.LogicalDevice, mem, 0, vk.DeviceSize(size), 0, &ptr), "vkMapMemory"); err != nil {
			vk.FreeMemory(vc.Device.LogicalDevice, mem, vc.Allocator)
			return nil, err
		}
		chunk.Mapped = ptr
	}
	core.LogDebug("Allocated %d bytes of device memory (type %d).", size, memoryType)
	return chunk, nil
}

// mappable reports whether host writes to memory of these properties are
// visible to the device without vkFlushMappedMemoryRanges.
func mappable(flags vk.MemoryPropertyFlags) bool {
	want := hostVisibleFlags()
	return flags&want == want
}

func (vc *VulkanContext) freeDeviceMemory(chunk *deviceChunk) {
	if chunk == nil || chunk.Memory == vk.NullDeviceMemory {
		return
	}
	if chunk.Mapped != nil {
		vk.UnmapMemory(vc.Device.LogicalDevice, chunk.Memory)
		chunk.Mapped = nil
	}
	vk.FreeMemory(vc.Device.LogicalDevice, chunk.Memory, vc.Allocator)
	chunk.Memory = vk.NullDeviceMemory
}

// allocateBlock sub-allocates memory for requirements from the pool of
// the matching memory type. Offsets and sizes honour the buffer-image
// granularity so linear and optimal resources may share a chunk.
func (vc *VulkanContext) allocateBlock(requirements vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (*memory.Block, error) {
	memoryType, err := vc.FindMemoryIndex(requirements.MemoryTypeBits, flags)
	if err != nil {
		return nil, err
	}
	alignment := max(uint64(requirements.Alignment), uint64(vc.Device.Properties.Limits.BufferImageGranularity), 1)
	size := memory.AlignUp(uint64(requirements.Size), alignment)
	return vc.Memory.Allocate(memoryType, size, alignment)
}

func (vc *VulkanContext) logMemoryError(err error) {
	core.LogError("device memory: %s", err)
}

// VulkanBuffer is the backend state behind metadata.Buffer.
type VulkanBuffer struct {
	Handle  vk.Buffer
	Size    uint64
	Usage   vk.BufferUsageFlags
	Backing memory.Backing
	// Mapped points at the first byte of a buffer created host visible, nil
	// otherwise. Device-local buffers stay unmapped even when their memory
	// type happens to be mappable.
	Mapped unsafe.Pointer
}

func bufferUsageFlags(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage&metadata.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if usage&metadata.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}

func hostVisibleFlags() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
}

// BufferCreate creates a buffer and binds it to pooled memory, or to its
// own allocation when direct is set.
func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, hostVisible, direct bool) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, errors.Wrap(memory.ErrZeroSizeAlloc, "buffer")
	}
	buffer := &VulkanBuffer{Size: size, Usage: usage}
	device := context.Device.LogicalDevice

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := checkResult(vk.CreateBuffer(device, &createInfo, context.Allocator, &handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	flags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		flags = hostVisibleFlags()
	}

	var (
		chunk  *deviceChunk
		offset uint64
	)
	if direct {
		memoryType, err := context.FindMemoryIndex(requirements.MemoryTypeBits, flags)
		if err != nil {
			buffer.Destroy(context)
			return nil, err
		}
		chunk, err = context.allocateDeviceMemory(memoryType, uint64(requirements.Size))
		if err != nil {
			buffer.Destroy(context)
			return nil, err
		}
		buffer.Backing = memory.Direct{Memory: chunk}
	} else {
		block, err := context.allocateBlock(requirements, flags)
		if err != nil {
			buffer.Destroy(context)
			return nil, errors.Wrapf(err, "buffer of %d bytes", size)
		}
		buffer.Backing = block
		chunk = block.Memory.(*deviceChunk)
		offset = block.Offset
	}

	if err := checkResult(vk.BindBufferMemory(device, handle, chunk.Memory, vk.DeviceSize(offset)), "vkBindBufferMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	if hostVisible {
		if chunk.Mapped == nil {
			buffer.Destroy(context)
			return nil, errors.New("host visible buffer landed on unmapped memory")
		}
		buffer.Mapped = unsafe.Add(chunk.Mapped, offset)
	}
	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	switch backing := vb.Backing.(type) {
	case *memory.Block:
		if err := context.Memory.Free(backing); err != nil {
			context.logMemoryError(err)
		}
	case memory.Direct:
		if chunk, ok := backing.Memory.(*deviceChunk); ok {
			context.freeDeviceMemory(chunk)
		}
	}
	vb.Backing = nil
	vb.Mapped = nil
}

// Write copies data into a mapped buffer at offset.
func (vb *VulkanBuffer) Write(offset uint64, data []byte) error {
	if vb.Mapped == nil {
		return errors.New("buffer is not host visible")
	}
	if offset+uint64(len(data)) > vb.Size {
		return errors.Newf("write of %d bytes at %d overflows buffer of %d bytes", len(data), offset, vb.Size)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(unsafe.Add(vb.Mapped, offset), data)
	return nil
}

// Read copies size bytes at offset out of a mapped buffer.
func (vb *VulkanBuffer) Read(offset, size uint64) ([]byte, error) {
	if vb.Mapped == nil {
		return nil, errors.New("buffer is not host visible")
	}
	if offset+size > vb.Size {
		return nil, errors.Newf("read of %d bytes at %d overflows buffer of %d bytes", size, offset, vb.Size)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Add(vb.Mapped, offset)), size))
	return out, nil
}

// stagingSize returns the size of the staging buffer to create for an
// upload of required bytes, or 0 when the current one of size current is
// big enough. The buffer never shrinks and never drops below minSize.
func stagingSize(current, required, minSize uint64) uint64 {
	if current > 0 && current >= required {
		return 0
	}
	return max(required, minSize)
}

// ensureStaging returns a mapped transfer buffer of at least size bytes,
// replacing the current one when it is too small.
func (vc *VulkanContext) ensureStaging(size uint64, minSize uint64) (*VulkanBuffer, error) {
	var current uint64
	if vc.Staging != nil {
		current = vc.Staging.Size
	}
	grow := stagingSize(current, size, minSize)
	if grow == 0 {
		return vc.Staging, nil
	}
	if vc.Staging != nil {
		vc.Staging.Destroy(vc)
		vc.Staging = nil
	}
	usage := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	staging, err := BufferCreate(vc, grow, usage, true, true)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	vc.Staging = staging
	return staging, nil
}

// CopyBuffer records and waits for a copy of size bytes between buffers.
func CopyBuffer(context *VulkanContext, src vk.Buffer, srcOffset uint64, dst vk.Buffer, dstOffset, size uint64) error {
	return SingleUse(context, func(cmd vk.CommandBuffer) {
		region := vk.BufferCopy{
			SrcOffset: vk.DeviceSize(srcOffset),
			DstOffset: vk.DeviceSize(dstOffset),
			Size:      vk.DeviceSize(size),
		}
		vk.CmdCopyBuffer(cmd, src, dst, 1, []vk.BufferCopy{region})
	})
}
