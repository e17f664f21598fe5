package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// VulkanContext is the root of all GPU object lifetimes. Everything the
// renderer creates hangs off it and is released in reverse creation order
// on shutdown; child objects keep a non-owning pointer back to it for
// lookups only.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, a new swapchain should be generated.
	FramebufferSizeGeneration uint64
	// The generation of the framebuffer when the swapchain was last
	// created. Set to FramebufferSizeGeneration when updated.
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Memory sub-allocates buffers and images out of large device blocks.
	Memory *GPUAllocator

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// Frames is the bounded ring of frames in flight.
	Frames       []*FrameSlot
	CurrentFrame uint32
	ImageIndex   uint32

	RecreatingSwapchain bool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	memoryProperties := vc.Device.Memory
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
