package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// Descriptor interface of the scene shader. Set 0 carries per-frame
// camera data; set 1 carries per-material constants and textures.
const (
	DESCRIPTOR_SET_GLOBAL   = 0
	DESCRIPTOR_SET_MATERIAL = 1

	// Binding 0 of the material set is the material uniform block, bindings
	// 1 through 5 the texture channels.
	MATERIAL_SAMPLER_COUNT = 5
)

// GlobalSetBindings describes set 0 as (set, binding) pairs for shader
// signature validation.
func GlobalSetBindings() []ShaderBinding {
	return []ShaderBinding{{Set: DESCRIPTOR_SET_GLOBAL, Binding: 0}}
}

// MaterialSetBindings describes set 1 the same way.
func MaterialSetBindings() []ShaderBinding {
	bindings := make([]ShaderBinding, 0, MATERIAL_SAMPLER_COUNT+1)
	for binding := uint32(0); binding <= MATERIAL_SAMPLER_COUNT; binding++ {
		bindings = append(bindings, ShaderBinding{Set: DESCRIPTOR_SET_MATERIAL, Binding: binding})
	}
	return bindings
}

// NewGlobalSetLayout creates the layout for set 0: one uniform buffer
// visible to the vertex stage.
func NewGlobalSetLayout(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}
	return createSetLayout(context, bindings)
}

// NewMaterialSetLayout creates the layout for set 1: the material uniform
// block visible to both stages, then one combined image sampler per
// texture channel for the fragment stage.
func NewMaterialSetLayout(context *VulkanContext) (vk.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, MATERIAL_SAMPLER_COUNT+1)
	bindings = append(bindings, vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	})
	for binding := uint32(1); binding <= MATERIAL_SAMPLER_COUNT; binding++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         binding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	return createSetLayout(context, bindings)
}

func createSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		err := errors.Newf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

// NewDescriptorPool sizes a pool for maxSets material sets plus the
// per-frame global sets.
func NewDescriptorPool(context *VulkanContext, maxSets uint32) (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: maxSets,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: maxSets * MATERIAL_SAMPLER_COUNT,
		},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxSets,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		err := errors.Newf("vkCreateDescriptorPool failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

// AllocateDescriptorSet carves one set with the given layout out of pool.
func AllocateDescriptorSet(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		err := errors.Newf("vkAllocateDescriptorSets failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullDescriptorSet, err
	}
	return sets[0], nil
}
