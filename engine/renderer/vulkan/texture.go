package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// VulkanTexture is a sampled 2D image with its own sampler. All textures
// are uploaded as RGBA8 with a full mip chain.
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

// NewVulkanTexture uploads pixels (tightly packed RGBA8, width*height*4
// bytes) into a device-local sampled image and builds its mip chain on the
// GPU.
func NewVulkanTexture(context *VulkanContext, width, height uint32, pixels []byte) (*VulkanTexture, error) {
	expected := uint64(width) * uint64(height) * 4
	if uint64(len(pixels)) != expected {
		err := errors.Newf("texture upload expects %d bytes for %dx%d RGBA8, got %d", expected, width, height, len(pixels))
		core.LogError(err.Error())
		return nil, err
	}

	staging, err := NewVulkanBuffer(context, expected,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(context, 0, pixels); err != nil {
		return nil, err
	}

	mipLevels := MipLevelsFor(width, height)
	image, err := NewVulkanImage(context, VulkanImageConfig{
		Width:            width,
		Height:           height,
		Format:           vk.FormatR8g8b8a8Unorm,
		Tiling:           vk.ImageTilingOptimal,
		Usage:            vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		MemoryProperties: uint32(vk.MemoryPropertyDeviceLocalBit),
		AspectFlags:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevels:        mipLevels,
		CreateView:       true,
	})
	if err != nil {
		return nil, err
	}

	cb, err := BeginSingleUseCommandBuffer(context, context.Device.GraphicsCommandPool)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	if err := image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.CopyFromBuffer(cb, staging.Handle)
	image.GenerateMipmaps(cb)
	if err := cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		image.Destroy(context)
		return nil, err
	}

	sampler, err := newSampler(context, mipLevels)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}

	return &VulkanTexture{Image: image, Sampler: sampler}, nil
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, t.Sampler, context.Allocator)
		t.Sampler = vk.NullSampler
	}
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}

func newSampler(context *VulkanContext, mipLevels uint32) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           16,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MinLod:                  0,
		MaxLod:                  float32(mipLevels),
		MipLodBias:              0,
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		err := errors.Newf("vkCreateSampler failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullSampler, err
	}
	return sampler, nil
}

// Material channels that fall back to a shared 1x1 texture when an asset
// provides no image. White keeps colour and factor channels untouched,
// the flat normal leaves shading unperturbed, black disables emission.
const (
	DEFAULT_TEXTURE_WHITE = iota
	DEFAULT_TEXTURE_FLAT_NORMAL
	DEFAULT_TEXTURE_BLACK
	DEFAULT_TEXTURE_COUNT
)

func defaultTexturePixels(kind int) []byte {
	switch kind {
	case DEFAULT_TEXTURE_FLAT_NORMAL:
		return []byte{128, 128, 255, 255}
	case DEFAULT_TEXTURE_BLACK:
		return []byte{0, 0, 0, 255}
	default:
		return []byte{255, 255, 255, 255}
	}
}

// CreateDefaultTextures builds the shared fallback set once at startup.
func CreateDefaultTextures(context *VulkanContext) ([]*VulkanTexture, error) {
	textures := make([]*VulkanTexture, 0, DEFAULT_TEXTURE_COUNT)
	for kind := 0; kind < DEFAULT_TEXTURE_COUNT; kind++ {
		texture, err := NewVulkanTexture(context, 1, 1, defaultTexturePixels(kind))
		if err != nil {
			for _, t := range textures {
				t.Destroy(context)
			}
			return nil, err
		}
		textures = append(textures, texture)
	}
	return textures, nil
}
