package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// maxDescriptorSets bounds the sets alive at once across all layouts.
const maxDescriptorSets = 1024

// DescriptorAllocator owns the set layouts every pipeline may reference and
// the pool all sets are carved from. Sets are freed individually.
type DescriptorAllocator struct {
	Pool    vk.DescriptorPool
	Layouts map[metadata.DescriptorLayout]vk.DescriptorSetLayout
}

func NewDescriptorAllocator(context *VulkanContext) (*DescriptorAllocator, error) {
	da := &DescriptorAllocator{
		Layouts: make(map[metadata.DescriptorLayout]vk.DescriptorSetLayout, 2),
	}
	device := context.Device.LogicalDevice

	skinned := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}
	texture := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}

	for layout, bindings := range map[metadata.DescriptorLayout][]vk.DescriptorSetLayoutBinding{
		metadata.DescriptorLayoutSkinned: skinned,
		metadata.DescriptorLayoutTexture: texture,
	} {
		createInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		var handle vk.DescriptorSetLayout
		if err := checkResult(vk.CreateDescriptorSetLayout(device, &createInfo, context.Allocator, &handle), "vkCreateDescriptorSetLayout"); err != nil {
			da.Destroy(context)
			return nil, errors.Wrapf(err, "descriptor layout %d", layout)
		}
		da.Layouts[layout] = handle
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2 * maxDescriptorSets},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxDescriptorSets},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxDescriptorSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := checkResult(vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &pool), "vkCreateDescriptorPool"); err != nil {
		da.Destroy(context)
		return nil, err
	}
	da.Pool = pool
	return da, nil
}

// Layout returns the set layout handle of l.
func (da *DescriptorAllocator) Layout(l metadata.DescriptorLayout) (vk.DescriptorSetLayout, error) {
	handle, ok := da.Layouts[l]
	if !ok {
		return vk.NullDescriptorSetLayout, errors.Newf("unknown descriptor layout %d", l)
	}
	return handle, nil
}

func (da *DescriptorAllocator) allocate(context *VulkanContext, l metadata.DescriptorLayout) (vk.DescriptorSet, error) {
	layout, err := da.Layout(l)
	if err != nil {
		return nil, err
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     da.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if err := checkResult(vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]), "vkAllocateDescriptorSets"); err != nil {
		return nil, err
	}
	return sets[0], nil
}

// SkinningSet allocates a skinned-layout set pointing at the joint and
// camera uniform buffers.
func (da *DescriptorAllocator) SkinningSet(context *VulkanContext, joints, camera *VulkanBuffer) (vk.DescriptorSet, error) {
	set, err := da.allocate(context, metadata.DescriptorLayoutSkinned)
	if err != nil {
		return nil, err
	}
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: joints.Handle,
				Range:  vk.DeviceSize(joints.Size),
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: camera.Handle,
				Range:  vk.DeviceSize(camera.Size),
			}},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return set, nil
}

// TextureSet allocates a texture-layout set sampling view.
func (da *DescriptorAllocator) TextureSet(context *VulkanContext, view vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error) {
	set, err := da.allocate(context, metadata.DescriptorLayoutTexture)
	if err != nil {
		return nil, err
	}
	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, writes, 0, nil)
	return set, nil
}

func (da *DescriptorAllocator) Free(context *VulkanContext, set vk.DescriptorSet) {
	if set == nil || da.Pool == vk.NullDescriptorPool {
		return
	}
	if res := vk.FreeDescriptorSets(context.Device.LogicalDevice, da.Pool, 1, &set); res != vk.Success {
		context.logMemoryError(checkResult(res, "vkFreeDescriptorSets"))
	}
}

func (da *DescriptorAllocator) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if da.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, da.Pool, context.Allocator)
		da.Pool = vk.NullDescriptorPool
	}
	for l, handle := range da.Layouts {
		vk.DestroyDescriptorSetLayout(device, handle, context.Allocator)
		delete(da.Layouts, l)
	}
}
