package vulkan

import (
	"context"
	"runtime"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/config"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/platform"
	"github.com/spaghettifunk/vesta/engine/renderer/frame"
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// frameTimeout bounds every CPU wait on GPU progress during a frame.
const frameTimeout = 10 * time.Second

const validationLayer = "VK_LAYER_KHRONOS_validation"

// VulkanRenderer implements renderer.RendererBackend.
type VulkanRenderer struct {
	platform *platform.Platform
	cfg      *config.Config
	ctx      context.Context

	FrameNumber             uint64
	context                 *VulkanContext
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32
}

// New returns an uninitialized backend drawing into the platform window.
// ctx bounds every wait on the GPU.
func New(ctx context.Context, p *platform.Platform, cfg *config.Config) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		cfg:      cfg,
		ctx:      ctx,
		context: &VulkanContext{
			Device: &VulkanDevice{
				GraphicsQueueIndex: -1,
				PresentQueueIndex:  -1,
				TransferQueueIndex: -1,
			},
			queues: newQueueLocks(),
		},
	}
}

func (vr *VulkanRenderer) swapchainOptions() SwapchainOptions {
	return SwapchainOptions{
		PreferVSync: vr.cfg.Renderer.PreferVSync,
		Depth:       vr.context.MainRenderpass != nil && vr.context.MainRenderpass.HasDepth,
	}
}

func (vr *VulkanRenderer) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "initializing vulkan loader")
	}

	width, height := vr.platform.FramebufferSize()
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	if err := vr.createInstance(); err != nil {
		return err
	}

	if vr.cfg.Renderer.Validation {
		if err := vr.createDebugCallback(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		return errors.Wrap(err, "vulkan surface creation failed")
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context); err != nil {
		return errors.Wrap(err, "failed to create device")
	}

	vr.context.Memory = memory.NewManager(chunkDevice{vr.context}, vr.cfg.Memory.ChunkSize, vr.cfg.Memory.CoalesceFreeRegions)

	depth := vr.cfg.Renderer.Depth
	if depth && !DeviceDetectDepthFormat(vr.context.Device) {
		core.LogWarn("No supported depth format, rendering without depth.")
		depth = false
	}

	// The render pass only needs the color format; query it before the
	// swapchain exists so both can be built from the same choice.
	format := chooseSurfaceFormat(vr.context.Device.SwapchainSupport.Formats)
	vr.context.Swapchain = &VulkanSwapchain{ImageFormat: format}
	rp, err := RenderpassCreate(vr.context, float32(width), float32(height), depth)
	if err != nil {
		return errors.Wrap(err, "main render pass")
	}
	vr.context.MainRenderpass = rp

	sc, err := SwapchainCreate(vr.context, width, height, vr.swapchainOptions())
	if err != nil {
		return errors.Wrap(err, "swapchain")
	}
	vr.context.Swapchain = sc
	vr.syncFramebufferSize(sc.Extent)

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	if vr.context.Descriptors, err = NewDescriptorAllocator(vr.context); err != nil {
		return errors.Wrap(err, "descriptor allocator")
	}
	if vr.context.Sampler, err = createSampler(vr.context); err != nil {
		return errors.Wrap(err, "texture sampler")
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.cfg.Window.Title),
		PEngineName:        VulkanSafeString("Vesta Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := vr.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if vr.cfg.Renderer.Validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		ok, err := instanceHasLayer(validationLayer)
		if err != nil {
			return err
		}
		if ok {
			layers = append(layers, validationLayer)
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Validation layer %s is missing, continuing without it.", validationLayer)
		}
	}

	core.LogDebug("Required extensions: %v", extensions)
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := checkResult(vk.CreateInstance(&createInfo, vr.context.Allocator, &instance), "vkCreateInstance"); err != nil {
		return errors.Wrap(err, "failed in creating the Vulkan instance")
	}
	vr.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return errors.Wrap(err, "loading instance functions")
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func instanceHasLayer(name string) (bool, error) {
	var count uint32
	if err := checkResult(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return false, err
	}
	layers := make([]vk.LayerProperties, count)
	if err := checkResult(vk.EnumerateInstanceLayerProperties(&count, layers), "vkEnumerateInstanceLayerProperties"); err != nil {
		return false, err
	}
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == name {
			return true, nil
		}
	}
	return false, nil
}

func (vr *VulkanRenderer) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		return errors.Wrap(err, "vkCreateDebugReportCallbackEXT")
	}
	vr.context.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	device := vr.context.Device.LogicalDevice
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, frame.MaxFramesInFlight)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, frame.MaxFramesInFlight)
	vr.context.InFlightFences = make([]*VulkanFence, frame.MaxFramesInFlight)
	fences := make([]frame.Fence, frame.MaxFramesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < frame.MaxFramesInFlight; i++ {
		var available, complete vk.Semaphore
		if err := checkResult(vk.CreateSemaphore(device, &semaphoreCreateInfo, vr.context.Allocator, &available), "vkCreateSemaphore"); err != nil {
			return errors.Wrap(err, "image available semaphore")
		}
		vr.context.ImageAvailableSemaphores[i] = available
		if err := checkResult(vk.CreateSemaphore(device, &semaphoreCreateInfo, vr.context.Allocator, &complete), "vkCreateSemaphore"); err != nil {
			return errors.Wrap(err, "queue complete semaphore")
		}
		vr.context.QueueCompleteSemaphores[i] = complete

		// Signaled so the first wait on each slot returns at once.
		f, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = f
		fences[i] = f
	}

	vr.context.Pacer = frame.NewPacer(fences, int(vr.context.Swapchain.ImageCount))
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	c := vr.context
	if c.Device == nil || c.Device.LogicalDevice == nil {
		return nil
	}
	if err := vr.WaitIdle(); err != nil {
		core.LogWarn("waiting for device idle on shutdown: %s", err)
	}
	device := c.Device.LogicalDevice

	// Destroy in the opposite order of creation.
	for i := range c.InFlightFences {
		if c.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, c.ImageAvailableSemaphores[i], c.Allocator)
		}
		if c.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, c.QueueCompleteSemaphores[i], c.Allocator)
		}
		if c.InFlightFences[i] != nil {
			c.InFlightFences[i].Destroy()
		}
	}
	c.ImageAvailableSemaphores = nil
	c.QueueCompleteSemaphores = nil
	c.InFlightFences = nil
	c.Pacer = nil

	vr.freeCommandBuffers()
	vr.destroyFramebuffers()

	if c.Staging != nil {
		c.Staging.Destroy(c)
		c.Staging = nil
	}
	if c.Sampler != vk.NullSampler {
		vk.DestroySampler(device, c.Sampler, c.Allocator)
		c.Sampler = vk.NullSampler
	}
	if c.Descriptors != nil {
		c.Descriptors.Destroy(c)
		c.Descriptors = nil
	}

	if c.MainRenderpass != nil {
		c.MainRenderpass.RenderpassDestroy(c)
		c.MainRenderpass = nil
	}
	if c.Swapchain != nil {
		c.Swapchain.SwapchainDestroy(c)
		c.Swapchain = nil
	}

	if c.Memory != nil {
		stats := c.Memory.Stats()
		if stats.LiveBlocks > 0 {
			core.LogWarn("%d memory blocks still alive at shutdown.", stats.LiveBlocks)
		}
		c.Memory.Destroy()
		c.Memory = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(c)

	core.LogDebug("Destroying Vulkan surface...")
	if c.Surface != vk.NullSurface {
		vk.DestroySurface(c.Instance, c.Surface, c.Allocator)
		c.Surface = vk.NullSurface
	}

	if c.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(c.Instance, c.debugCallback, c.Allocator)
		c.debugCallback = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(c.Instance, c.Allocator)
	c.Instance = nil
	return nil
}

// Resized bumps the framebuffer size generation; the swapchain is rebuilt
// at the start of the next frame.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	return checkResult(vk.DeviceWaitIdle(vr.context.Device.LogicalDevice), "vkDeviceWaitIdle")
}

func (vr *VulkanRenderer) FramebufferSize() (uint32, uint32) {
	return vr.context.FramebufferWidth, vr.context.FramebufferHeight
}

func (vr *VulkanRenderer) MemoryStats() memory.Stats {
	if vr.context.Memory == nil {
		return memory.Stats{}
	}
	return vr.context.Memory.Stats()
}

func (vr *VulkanRenderer) BeginFrame(clear [4]float32) (uint32, error) {
	c := vr.context
	if c.RecreatingSwapchain {
		return 0, core.ErrSwapchainBooting
	}

	// A new framebuffer size needs a new swapchain before anything is drawn.
	if c.FramebufferSizeGeneration != c.FramebufferSizeLastGeneration {
		if err := vr.recreateSwapchain(); err != nil {
			return 0, err
		}
		return 0, errors.Wrap(core.ErrSwapchainBooting, "resized")
	}

	pacer := c.Pacer
	slot := pacer.Slot()
	if err := pacer.WaitSlot(vr.ctx, frameTimeout); err != nil {
		return 0, err
	}

	imageIndex, outOfDate, err := c.Swapchain.SwapchainAcquireNextImageIndex(c, uint64(frameTimeout.Nanoseconds()), c.ImageAvailableSemaphores[slot])
	if err != nil {
		return 0, err
	}
	if outOfDate {
		c.FramebufferSizeGeneration++
		return 0, errors.Wrap(core.ErrSwapchainBooting, "swapchain out of date")
	}

	// From here on the image-available semaphore is signaled and must be
	// consumed even if the frame is abandoned.
	if err := pacer.ClaimImage(vr.ctx, imageIndex, frameTimeout); err != nil {
		vr.abandonFrame(slot)
		return 0, err
	}
	c.ImageIndex = imageIndex

	commandBuffer := c.GraphicsCommandBuffers[imageIndex]
	if err := commandBuffer.Reset(); err != nil {
		vr.abandonFrame(slot)
		return 0, err
	}
	if err := commandBuffer.Begin(false, false, false); err != nil {
		vr.abandonFrame(slot)
		return 0, err
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(c.FramebufferWidth),
		Height:   float32(c.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  c.FramebufferWidth,
			Height: c.FramebufferHeight,
		},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	rp := c.MainRenderpass
	rp.W = float32(c.FramebufferWidth)
	rp.H = float32(c.FramebufferHeight)
	rp.R, rp.G, rp.B, rp.A = clear[0], clear[1], clear[2], clear[3]
	rp.RenderpassBegin(commandBuffer, c.Swapchain.Framebuffers[imageIndex].Handle)

	c.InFrame = true
	return imageIndex, nil
}

func (vr *VulkanRenderer) EndFrame(image uint32) error {
	c := vr.context
	if !c.InFrame {
		return errors.New("EndFrame called outside of a frame")
	}
	c.InFrame = false
	if image != c.ImageIndex {
		core.LogWarn("EndFrame for image %d while recording image %d.", image, c.ImageIndex)
	}

	pacer := c.Pacer
	slot := pacer.Slot()
	commandBuffer := c.GraphicsCommandBuffers[c.ImageIndex]

	c.MainRenderpass.RenderpassEnd(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		vr.abandonFrame(slot)
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{c.ImageAvailableSemaphores[slot]},
		// Color writes wait for the image; one frame is presented at a time.
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{c.QueueCompleteSemaphores[slot]},
	}
	queue := c.Device.GraphicsQueue
	result := c.queues.SafeCall(queue, func() vk.Result {
		return vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, c.InFlightFences[slot].Handle)
	})
	if err := checkResult(result, "vkQueueSubmit"); err != nil {
		vr.abandonFrame(slot)
		return err
	}
	commandBuffer.UpdateSubmitted()

	outOfDate, err := c.Swapchain.SwapchainPresent(c, c.Device.PresentQueue, c.QueueCompleteSemaphores[slot], c.ImageIndex)
	pacer.Advance()
	vr.FrameNumber++
	if outOfDate {
		c.FramebufferSizeGeneration++
	}
	return err
}

// abandonFrame releases a slot whose frame never reached the queue: the
// fence is re-armed through an empty submission consuming the acquired
// image's semaphore, then the pacer moves on.
func (vr *VulkanRenderer) abandonFrame(slot int) {
	c := vr.context
	c.InFrame = false
	fence := c.InFlightFences[slot]
	if err := fence.Reset(); err != nil {
		core.LogError("resetting fence of abandoned frame: %s", err)
	}
	if err := fence.Rearm(c.Device.GraphicsQueue, c.ImageAvailableSemaphores[slot]); err != nil {
		core.LogError("re-arming fence of abandoned frame: %s", err)
	}
	c.Pacer.Advance()
}

func (vr *VulkanRenderer) syncFramebufferSize(extent vk.Extent2D) {
	vr.context.FramebufferWidth = extent.Width
	vr.context.FramebufferHeight = extent.Height
	vr.context.MainRenderpass.X = 0
	vr.context.MainRenderpass.Y = 0
	vr.context.MainRenderpass.W = float32(extent.Width)
	vr.context.MainRenderpass.H = float32(extent.Height)
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.freeCommandBuffers()
	count := int(vr.context.Swapchain.ImageCount)
	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, count)
	for i := 0; i < count; i++ {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return errors.Wrapf(err, "command buffer %d", i)
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) freeCommandBuffers() {
	for _, cb := range vr.context.GraphicsCommandBuffers {
		if cb != nil {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.context.GraphicsCommandBuffers = nil
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	sc := vr.context.Swapchain
	sc.Framebuffers = make([]*VulkanFramebuffer, sc.ImageCount)
	for i := range sc.Framebuffers {
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, sc.Attachments(i))
		if err != nil {
			return err
		}
		sc.Framebuffers[i] = fb
	}
	return nil
}

func (vr *VulkanRenderer) destroyFramebuffers() {
	if vr.context.Swapchain == nil {
		return
	}
	for _, fb := range vr.context.Swapchain.Framebuffers {
		if fb != nil {
			fb.Destroy(vr.context)
		}
	}
	vr.context.Swapchain.Framebuffers = nil
}

// recreateSwapchain rebuilds the swapchain and everything sized by it. A
// zero-sized window leaves the generation mismatched so the rebuild is
// retried on the next frame.
func (vr *VulkanRenderer) recreateSwapchain() error {
	c := vr.context
	if c.RecreatingSwapchain {
		core.LogDebug("recreateSwapchain called when already recreating. Booting.")
		return core.ErrSwapchainBooting
	}

	width, height := vr.cachedFramebufferWidth, vr.cachedFramebufferHeight
	if pw, ph := vr.platform.FramebufferSize(); pw != 0 || ph != 0 {
		width, height = pw, ph
	}
	if width == 0 || height == 0 {
		core.LogDebug("recreateSwapchain called when window is < 1 in a dimension. Booting.")
		return core.ErrSwapchainBooting
	}

	c.RecreatingSwapchain = true
	defer func() { c.RecreatingSwapchain = false }()

	if err := vr.WaitIdle(); err != nil {
		return err
	}

	if err := DeviceQuerySwapchainSupport(c.Device.PhysicalDevice, c.Surface, &c.Device.SwapchainSupport); err != nil {
		return errors.Wrap(err, "requerying swapchain support")
	}

	vr.destroyFramebuffers()
	sc, err := c.Swapchain.SwapchainRecreate(c, width, height, vr.swapchainOptions())
	if err != nil {
		return errors.Wrap(err, "recreating swapchain")
	}
	c.Swapchain = sc

	vr.syncFramebufferSize(sc.Extent)
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0
	c.FramebufferSizeLastGeneration = c.FramebufferSizeGeneration

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	c.Pacer.ResetImages(int(sc.ImageCount))
	core.LogInfo("Swapchain recreated at %dx%d.", sc.Extent.Width, sc.Extent.Height)
	return nil
}

func (vr *VulkanRenderer) CreatePipeline(cfg *metadata.PipelineConfig, vertexCode, fragmentCode []uint32) (*metadata.Pipeline, error) {
	vp, err := NewGraphicsPipeline(vr.context, cfg, vertexCode, fragmentCode)
	if err != nil {
		return nil, err
	}
	return &metadata.Pipeline{
		Name:         cfg.Name,
		Config:       *cfg,
		InternalData: vp,
	}, nil
}

func (vr *VulkanRenderer) DestroyPipeline(pipeline *metadata.Pipeline) {
	if pipeline == nil {
		return
	}
	if vp, ok := pipeline.InternalData.(*VulkanPipeline); ok {
		vp.Destroy(vr.context)
	}
	pipeline.InternalData = nil
}

func (vr *VulkanRenderer) CreateBuffer(usage metadata.BufferUsage, size uint64, hostVisible bool) (*metadata.Buffer, error) {
	// Every buffer can be uploaded to and read back through staging.
	flags := bufferUsageFlags(usage | metadata.BufferUsageTransferDst | metadata.BufferUsageTransferSrc)
	vb, err := BufferCreate(vr.context, size, flags, hostVisible, false)
	if err != nil {
		return nil, err
	}
	return &metadata.Buffer{
		Size:         size,
		Usage:        usage,
		HostVisible:  hostVisible,
		Backing:      vb.Backing,
		InternalData: vb,
	}, nil
}

func internalBuffer(buffer *metadata.Buffer) (*VulkanBuffer, error) {
	if buffer == nil {
		return nil, errors.New("nil buffer")
	}
	vb, ok := buffer.InternalData.(*VulkanBuffer)
	if !ok || vb.Handle == vk.NullBuffer {
		return nil, errors.New("buffer was destroyed or not created by this backend")
	}
	return vb, nil
}

func (vr *VulkanRenderer) UploadBuffer(buffer *metadata.Buffer, offset uint64, data []byte) error {
	vb, err := internalBuffer(buffer)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > vb.Size {
		return errors.Newf("upload of %d bytes at %d overflows buffer of %d bytes", len(data), offset, vb.Size)
	}
	if len(data) == 0 {
		return nil
	}
	// device-local buffers may be read by a frame in flight, so they only
	// change through a staged copy the queue has finished
	if buffer.HostVisible {
		return vb.Write(offset, data)
	}
	staging, err := vr.context.ensureStaging(uint64(len(data)), vr.cfg.Memory.MinStagingSize)
	if err != nil {
		return err
	}
	if err := staging.Write(0, data); err != nil {
		return err
	}
	return CopyBuffer(vr.context, staging.Handle, 0, vb.Handle, offset, uint64(len(data)))
}

func (vr *VulkanRenderer) WriteBuffer(buffer *metadata.Buffer, offset uint64, data []byte) error {
	vb, err := internalBuffer(buffer)
	if err != nil {
		return err
	}
	return vb.Write(offset, data)
}

func (vr *VulkanRenderer) ReadBuffer(buffer *metadata.Buffer, offset, size uint64) ([]byte, error) {
	vb, err := internalBuffer(buffer)
	if err != nil {
		return nil, err
	}
	if vb.Mapped != nil {
		return vb.Read(offset, size)
	}
	if offset+size > vb.Size {
		return nil, errors.Newf("read of %d bytes at %d overflows buffer of %d bytes", size, offset, vb.Size)
	}
	staging, err := vr.context.ensureStaging(size, vr.cfg.Memory.MinStagingSize)
	if err != nil {
		return nil, err
	}
	if err := CopyBuffer(vr.context, vb.Handle, offset, staging.Handle, 0, size); err != nil {
		return nil, err
	}
	return staging.Read(0, size)
}

func (vr *VulkanRenderer) DestroyBuffer(buffer *metadata.Buffer) {
	if buffer == nil {
		return
	}
	if vb, ok := buffer.InternalData.(*VulkanBuffer); ok {
		vb.Destroy(vr.context)
	}
	buffer.InternalData = nil
	buffer.Backing = nil
}

func (vr *VulkanRenderer) CreateTexture(layers []metadata.TextureData) (*metadata.Texture, error) {
	return TextureCreate(vr.context, layers, vr.cfg.Memory.MinStagingSize)
}

func (vr *VulkanRenderer) DestroyTexture(texture *metadata.Texture) {
	TextureDestroy(vr.context, texture)
}

func (vr *VulkanRenderer) CreateSkinningSet(joints, camera *metadata.Buffer) (*metadata.DescriptorSet, error) {
	jb, err := internalBuffer(joints)
	if err != nil {
		return nil, errors.Wrap(err, "joint buffer")
	}
	cb, err := internalBuffer(camera)
	if err != nil {
		return nil, errors.Wrap(err, "camera buffer")
	}
	set, err := vr.context.Descriptors.SkinningSet(vr.context, jb, cb)
	if err != nil {
		return nil, err
	}
	return &metadata.DescriptorSet{
		Layout:       metadata.DescriptorLayoutSkinned,
		InternalData: set,
	}, nil
}

func (vr *VulkanRenderer) DestroyDescriptorSet(set *metadata.DescriptorSet) {
	if set == nil {
		return
	}
	if ds, ok := set.InternalData.(vk.DescriptorSet); ok {
		vr.context.Descriptors.Free(vr.context, ds)
	}
	set.InternalData = nil
}

func (vr *VulkanRenderer) BindPipeline(pipeline *metadata.Pipeline) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil || pipeline == nil {
		return
	}
	if vp, ok := pipeline.InternalData.(*VulkanPipeline); ok {
		vp.Bind(cb, vk.PipelineBindPointGraphics)
	}
}

func (vr *VulkanRenderer) BindVertexBuffers(buffers ...*metadata.Buffer) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil || len(buffers) == 0 {
		return
	}
	handles := make([]vk.Buffer, 0, len(buffers))
	for _, b := range buffers {
		vb, err := internalBuffer(b)
		if err != nil {
			core.LogError("binding vertex buffer: %s", err)
			return
		}
		handles = append(handles, vb.Handle)
	}
	offsets := make([]vk.DeviceSize, len(handles))
	vk.CmdBindVertexBuffers(cb.Handle, 0, uint32(len(handles)), handles, offsets)
}

func (vr *VulkanRenderer) BindIndexBuffer(buffer *metadata.Buffer) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil {
		return
	}
	vb, err := internalBuffer(buffer)
	if err != nil {
		core.LogError("binding index buffer: %s", err)
		return
	}
	vk.CmdBindIndexBuffer(cb.Handle, vb.Handle, 0, vk.IndexTypeUint32)
}

func (vr *VulkanRenderer) BindDescriptorSet(pipeline *metadata.Pipeline, set *metadata.DescriptorSet) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil || pipeline == nil || set == nil {
		return
	}
	vp, ok := pipeline.InternalData.(*VulkanPipeline)
	if !ok {
		return
	}
	ds, ok := set.InternalData.(vk.DescriptorSet)
	if !ok {
		return
	}
	firstSet := -1
	for i, l := range pipeline.Config.DescriptorLayouts {
		if l == set.Layout {
			firstSet = i
			break
		}
	}
	if firstSet < 0 {
		core.LogError("pipeline '%s' has no descriptor layout %d", pipeline.Name, set.Layout)
		return
	}
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, vp.PipelineLayout, uint32(firstSet), 1, []vk.DescriptorSet{ds}, 0, nil)
}

func (vr *VulkanRenderer) PushConstants(pipeline *metadata.Pipeline, pushRange metadata.PushConstantRange, data []byte) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil || pipeline == nil || len(data) == 0 {
		return
	}
	vp, ok := pipeline.InternalData.(*VulkanPipeline)
	if !ok {
		return
	}
	size := min(uint32(len(data)), pushRange.Size)
	vk.CmdPushConstants(cb.Handle, vp.PipelineLayout, shaderStageFlags(pushRange.Stages), pushRange.Offset, size, unsafe.Pointer(&data[0]))
}

// SetScissor clips subsequent draws to clip, given in framebuffer pixels.
func (vr *VulkanRenderer) SetScissor(clip metadata.Rect) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil {
		return
	}
	w, h := float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight)
	minX, minY := MathClamp(clip.MinX, 0, w), MathClamp(clip.MinY, 0, h)
	maxX, maxY := MathClamp(clip.MaxX, minX, w), MathClamp(clip.MaxY, minY, h)
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(minX), Y: int32(minY)},
		Extent: vk.Extent2D{Width: uint32(maxX - minX), Height: uint32(maxY - minY)},
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (vr *VulkanRenderer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32) {
	cb := vr.context.currentCommandBuffer()
	if cb == nil {
		return
	}
	vk.CmdDrawIndexed(cb.Handle, indexCount, instanceCount, firstIndex, vertexOffset, 0)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
