package renderer

import (
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// RendererBackend is the graphics API behind the Renderer. Recording methods
// write into the command buffer of the frame opened by BeginFrame and are
// only valid until the matching EndFrame.
type RendererBackend interface {
	Initialize() error
	Shutdown() error
	Resized(width, height uint32)
	// WaitIdle blocks until the device finished every submitted command.
	WaitIdle() error
	FramebufferSize() (width, height uint32)
	MemoryStats() memory.Stats

	// BeginFrame waits for the frame slot, acquires a swap image and opens
	// the render pass on it.
	BeginFrame(clear [4]float32) (uint32, error)
	// EndFrame closes the render pass, submits and presents.
	EndFrame(image uint32) error

	CreatePipeline(config *metadata.PipelineConfig, vertexCode, fragmentCode []uint32) (*metadata.Pipeline, error)
	DestroyPipeline(pipeline *metadata.Pipeline)

	CreateBuffer(usage metadata.BufferUsage, size uint64, hostVisible bool) (*metadata.Buffer, error)
	// UploadBuffer copies data through the staging buffer and waits for the
	// copy to finish before returning.
	UploadBuffer(buffer *metadata.Buffer, offset uint64, data []byte) error
	// WriteBuffer copies data into a host-visible buffer through a mapping.
	WriteBuffer(buffer *metadata.Buffer, offset uint64, data []byte) error
	ReadBuffer(buffer *metadata.Buffer, offset, size uint64) ([]byte, error)
	DestroyBuffer(buffer *metadata.Buffer)

	// CreateTexture uploads one or more equally sized layers and builds the
	// sampler descriptor set reading them.
	CreateTexture(layers []metadata.TextureData) (*metadata.Texture, error)
	DestroyTexture(texture *metadata.Texture)
	// CreateSkinningSet binds a joint buffer at binding 0 and a camera buffer
	// at binding 1.
	CreateSkinningSet(joints, camera *metadata.Buffer) (*metadata.DescriptorSet, error)
	DestroyDescriptorSet(set *metadata.DescriptorSet)

	BindPipeline(pipeline *metadata.Pipeline)
	BindVertexBuffers(buffers ...*metadata.Buffer)
	BindIndexBuffer(buffer *metadata.Buffer)
	BindDescriptorSet(pipeline *metadata.Pipeline, set *metadata.DescriptorSet)
	PushConstants(pipeline *metadata.Pipeline, pushRange metadata.PushConstantRange, data []byte)
	SetScissor(clip metadata.Rect)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32)
}
