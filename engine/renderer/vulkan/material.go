package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// MaterialFlags mirror the bit layout the fragment shader decodes.
type MaterialFlags uint32

const (
	MATERIAL_FLAG_ALPHA_MODE_OPAQUE MaterialFlags = 0x1
	MATERIAL_FLAG_ALPHA_MODE_MASK   MaterialFlags = 0x2
	MATERIAL_FLAG_ALPHA_MODE_BLEND  MaterialFlags = 0x3
	MATERIAL_FLAG_DOUBLE_SIDED      MaterialFlags = 0x4

	MATERIAL_FLAG_HAS_METALLIC_ROUGHNESS_TEXTURE MaterialFlags = 0x8
	MATERIAL_FLAG_HAS_NORMAL_TEXTURE             MaterialFlags = 0x10
	MATERIAL_FLAG_HAS_OCCLUSION_TEXTURE          MaterialFlags = 0x20
	MATERIAL_FLAG_HAS_EMISSIVE_TEXTURE           MaterialFlags = 0x40

	MATERIAL_FLAG_ALPHA_MODE_BITS MaterialFlags = 0x3
)

// AlphaMode extracts the two alpha-mode bits.
func (f MaterialFlags) AlphaMode() MaterialFlags {
	return f & MATERIAL_FLAG_ALPHA_MODE_BITS
}

// MaterialInfo is the uniform block at set 1 binding 0. Layout follows
// std140: the vec3 is padded to 16 bytes, the trailing scalars pack
// tightly. Total size is 56 bytes.
type MaterialInfo struct {
	BaseColor         mgl32.Vec4
	Emissive          mgl32.Vec3
	_                 float32
	MetallicRoughness mgl32.Vec2
	NormalScale       float32
	OcclusionStrength float32
	AlphaCutoff       float32
	Flags             MaterialFlags
}

// DefaultMaterialInfo matches an untextured opaque material.
func DefaultMaterialInfo() MaterialInfo {
	return MaterialInfo{
		BaseColor:         mgl32.Vec4{1, 1, 1, 1},
		MetallicRoughness: mgl32.Vec2{1, 1},
		NormalScale:       1,
		OcclusionStrength: 1,
		AlphaCutoff:       0.5,
		Flags:             MATERIAL_FLAG_ALPHA_MODE_OPAQUE,
	}
}

// Bytes views the block as the byte slice uploaded into the uniform
// buffer.
func (mi *MaterialInfo) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(mi)), unsafe.Sizeof(*mi))
}

// Discards is the host-side mirror of the fragment shader's mask test:
// in mask mode a fragment whose alpha falls below the cutoff is dropped.
// Other alpha modes never discard.
func (mi *MaterialInfo) Discards(alpha float32) bool {
	return mi.Flags.AlphaMode() == MATERIAL_FLAG_ALPHA_MODE_MASK && alpha < mi.AlphaCutoff
}

// Texture channels of the material set, in binding order 1 through 5.
const (
	MATERIAL_CHANNEL_BASE_COLOR = iota
	MATERIAL_CHANNEL_METALLIC_ROUGHNESS
	MATERIAL_CHANNEL_NORMAL
	MATERIAL_CHANNEL_OCCLUSION
	MATERIAL_CHANNEL_EMISSIVE
)

// MaterialTextures carries one texture per channel; nil slots fall back
// to the shared defaults.
type MaterialTextures [MATERIAL_SAMPLER_COUNT]*VulkanTexture

// DefaultTextureFor maps a missing channel to its neutral fallback.
func DefaultTextureFor(channel int) int {
	switch channel {
	case MATERIAL_CHANNEL_NORMAL:
		return DEFAULT_TEXTURE_FLAT_NORMAL
	case MATERIAL_CHANNEL_EMISSIVE:
		return DEFAULT_TEXTURE_BLACK
	default:
		return DEFAULT_TEXTURE_WHITE
	}
}

// BoundMaterial is a material made resident on the device: its uniform
// block and the descriptor set pointing at block and textures.
type BoundMaterial struct {
	Info          MaterialInfo
	UniformBuffer *VulkanBuffer
	DescriptorSet vk.DescriptorSet
}

// MaterialBinder owns the material descriptor machinery. Binding is
// idempotent per handle: the first call uploads and writes the set, later
// calls return the cached resident state.
type MaterialBinder struct {
	context  *VulkanContext
	pool     vk.DescriptorPool
	layout   vk.DescriptorSetLayout
	defaults []*VulkanTexture
	bound    map[core.Handle]*BoundMaterial

	// makeResident uploads the block and writes the descriptor set. It is
	// a field so the cache behavior is testable without a device.
	makeResident func(info MaterialInfo, textures MaterialTextures) (*BoundMaterial, error)
}

func NewMaterialBinder(context *VulkanContext, maxMaterials uint32, defaults []*VulkanTexture) (*MaterialBinder, error) {
	layout, err := NewMaterialSetLayout(context)
	if err != nil {
		return nil, err
	}
	pool, err := NewDescriptorPool(context, maxMaterials)
	if err != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
		return nil, err
	}
	mb := &MaterialBinder{
		context:  context,
		pool:     pool,
		layout:   layout,
		defaults: defaults,
		bound:    make(map[core.Handle]*BoundMaterial),
	}
	mb.makeResident = mb.createResident
	return mb, nil
}

// Layout exposes the material set layout for pipeline creation.
func (mb *MaterialBinder) Layout() vk.DescriptorSetLayout {
	return mb.layout
}

// Bound reports whether handle already has resident descriptor state.
func (mb *MaterialBinder) Bound(handle core.Handle) bool {
	_, ok := mb.bound[handle]
	return ok
}

// Bind makes the material resident. Missing texture channels resolve to
// the shared defaults, so every set is fully populated. Binding the same
// handle again returns the cached state without touching the device.
func (mb *MaterialBinder) Bind(handle core.Handle, info MaterialInfo, textures MaterialTextures) (*BoundMaterial, error) {
	if existing, ok := mb.bound[handle]; ok {
		return existing, nil
	}

	material, err := mb.makeResident(info, textures)
	if err != nil {
		return nil, err
	}
	mb.bound[handle] = material
	return material, nil
}

func (mb *MaterialBinder) createResident(info MaterialInfo, textures MaterialTextures) (*BoundMaterial, error) {
	buffer, err := NewVulkanBuffer(mb.context, uint64(unsafe.Sizeof(info)),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := buffer.LoadData(mb.context, 0, info.Bytes()); err != nil {
		buffer.Destroy(mb.context)
		return nil, err
	}

	set, err := AllocateDescriptorSet(mb.context, mb.pool, mb.layout)
	if err != nil {
		buffer.Destroy(mb.context)
		return nil, err
	}

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer.Handle,
		Offset: 0,
		Range:  vk.DeviceSize(unsafe.Sizeof(info)),
	}
	writes := make([]vk.WriteDescriptorSet, 0, MATERIAL_SAMPLER_COUNT+1)
	writes = append(writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	})

	for channel := 0; channel < MATERIAL_SAMPLER_COUNT; channel++ {
		texture := textures[channel]
		if texture == nil {
			texture = mb.defaults[DefaultTextureFor(channel)]
		}
		imageInfo := vk.DescriptorImageInfo{
			Sampler:     texture.Sampler,
			ImageView:   texture.Image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(channel + 1),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		})
	}

	vk.UpdateDescriptorSets(mb.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)

	return &BoundMaterial{
		Info:          info,
		UniformBuffer: buffer,
		DescriptorSet: set,
	}, nil
}

// Lookup returns the resident state for handle, if any.
func (mb *MaterialBinder) Lookup(handle core.Handle) (*BoundMaterial, bool) {
	material, ok := mb.bound[handle]
	return material, ok
}

// Release frees a single material's resident state. The descriptor set
// itself returns to the pool only on Destroy.
func (mb *MaterialBinder) Release(handle core.Handle) {
	material, ok := mb.bound[handle]
	if !ok {
		return
	}
	if material.UniformBuffer != nil {
		material.UniformBuffer.Destroy(mb.context)
	}
	delete(mb.bound, handle)
}

func (mb *MaterialBinder) Destroy() {
	for handle := range mb.bound {
		mb.Release(handle)
	}
	if mb.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(mb.context.Device.LogicalDevice, mb.pool, mb.context.Allocator)
		mb.pool = vk.NullDescriptorPool
	}
	if mb.layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(mb.context.Device.LogicalDevice, mb.layout, mb.context.Allocator)
		mb.layout = vk.NullDescriptorSetLayout
	}
}
