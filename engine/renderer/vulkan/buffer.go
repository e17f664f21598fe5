package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// VulkanBuffer bundles a buffer handle with its sub-allocation. Memory is
// bound once at creation and returned to the allocator on Destroy.
type VulkanBuffer struct {
	Handle     vk.Buffer
	Allocation Allocation
	TotalSize  uint64
	Usage      vk.BufferUsageFlags
}

func NewVulkanBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryPropertyFlags uint32) (*VulkanBuffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		err := errors.Newf("vkCreateBuffer failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	allocation, err := context.Memory.Allocate(uint64(requirements.Size), uint64(requirements.Alignment), requirements.MemoryTypeBits, memoryPropertyFlags)
	if err != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, handle, context.Allocator)
		return nil, err
	}

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, handle, allocation.Memory, vk.DeviceSize(allocation.Offset)); res != vk.Success {
		context.Memory.Free(allocation)
		vk.DestroyBuffer(context.Device.LogicalDevice, handle, context.Allocator)
		err := errors.Newf("vkBindBufferMemory failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanBuffer{
		Handle:     handle,
		Allocation: allocation,
		TotalSize:  size,
		Usage:      usage,
	}, nil
}

// LoadData copies host bytes into the buffer. Only valid for host-visible
// buffers.
func (b *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	ptr, err := context.Memory.Map(b.Allocation)
	if err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(ptr, offset)), len(data))
	copy(dst, data)
	return nil
}

// CopyTo records and submits a one-shot transfer from this buffer into
// destination, blocking until the transfer queue drains.
func (b *VulkanBuffer) CopyTo(context *VulkanContext, destination *VulkanBuffer, size uint64) error {
	cb, err := BeginSingleUseCommandBuffer(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cb.Handle, b.Handle, destination.Handle, 1, []vk.BufferCopy{region})
	return cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue)
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	context.Memory.Free(b.Allocation)
	b.Allocation = Allocation{}
	b.TotalSize = 0
}

// NewDeviceLocalBuffer uploads data into device-local memory through a
// throwaway staging buffer. The operation releases the staging copy before
// returning regardless of outcome.
func NewDeviceLocalBuffer(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := uint64(len(data))

	staging, err := NewVulkanBuffer(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(context, 0, data); err != nil {
		return nil, err
	}

	local, err := NewVulkanBuffer(context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		uint32(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := staging.CopyTo(context, local, size); err != nil {
		local.Destroy(context)
		return nil, err
	}
	return local, nil
}
