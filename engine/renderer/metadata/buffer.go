package metadata

import "github.com/spaghettifunk/vesta/engine/renderer/memory"

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

/**
 * @brief A GPU buffer created by a renderer backend.
 */
type Buffer struct {
	/** @brief The size of the buffer in bytes. */
	Size uint64
	/** @brief How the buffer is going to be used. */
	Usage BufferUsage
	/** @brief Whether the CPU can map and write the buffer directly. */
	HostVisible bool
	/** @brief Either memory owned by this buffer or a block of the pool. */
	Backing memory.Backing
	/** @brief The backend-specific buffer handle. */
	InternalData interface{}
}

type DescriptorLayout uint8

const (
	// DescriptorLayoutSkinned is the joint (binding 0) and camera (binding 1)
	// uniform pair read by skinned vertex shaders.
	DescriptorLayoutSkinned DescriptorLayout = iota
	// DescriptorLayoutTexture is a single combined image sampler read by the
	// fragment stage. Texture arrays use it too.
	DescriptorLayoutTexture
)

// DescriptorSet is a backend descriptor set of a known layout.
type DescriptorSet struct {
	Layout       DescriptorLayout
	InternalData interface{}
}
