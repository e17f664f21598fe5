package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_ACQUIRING
	FRAME_STATE_RECORDING
	FRAME_STATE_SUBMITTED
)

// Transient descriptor pool capacity per frame slot. Sets allocated from
// the pool live for one frame; the pool reset reclaims them in bulk.
const (
	FRAME_TRANSIENT_MAX_SETS = 64
	FRAME_TRANSIENT_UNIFORMS = 64
	FRAME_TRANSIENT_SAMPLERS = 128
)

// FrameSlot owns the per-frame synchronization objects, the command
// buffer recorded for that frame and a transient descriptor pool for
// allocations that only live for that frame. Slots form a fixed ring; a
// slot is only reused once its in-flight fence has signaled.
type FrameSlot struct {
	Index          uint32
	ImageAvailable vk.Semaphore
	RenderComplete vk.Semaphore
	InFlight       *VulkanFence
	CommandBuffer  *VulkanCommandBuffer
	DescriptorPool vk.DescriptorPool
	State          FrameState
}

func NewFrameSlot(context *VulkanContext, index uint32) (*FrameSlot, error) {
	slot := &FrameSlot{
		Index: index,
		State: FRAME_STATE_IDLE,
	}

	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var imageAvailable, renderComplete vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, &imageAvailable); res != vk.Success {
		err := errors.Newf("vkCreateSemaphore failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreInfo, context.Allocator, &renderComplete); res != vk.Success {
		vk.DestroySemaphore(context.Device.LogicalDevice, imageAvailable, context.Allocator)
		err := errors.Newf("vkCreateSemaphore failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	slot.ImageAvailable = imageAvailable
	slot.RenderComplete = renderComplete

	// Created signaled so the first wait on a never-submitted slot passes.
	fence, err := NewFence(context, true)
	if err != nil {
		slot.Destroy(context)
		return nil, err
	}
	slot.InFlight = fence

	cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
	if err != nil {
		slot.Destroy(context)
		return nil, err
	}
	slot.CommandBuffer = cb

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: FRAME_TRANSIENT_UNIFORMS},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: FRAME_TRANSIENT_SAMPLERS},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       FRAME_TRANSIENT_MAX_SETS,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		slot.Destroy(context)
		err := errors.Newf("vkCreateDescriptorPool failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	slot.DescriptorPool = pool

	return slot, nil
}

func (fs *FrameSlot) Destroy(context *VulkanContext) {
	if fs.DescriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, fs.DescriptorPool, context.Allocator)
		fs.DescriptorPool = vk.NullDescriptorPool
	}
	if fs.CommandBuffer != nil {
		fs.CommandBuffer.Free(context, context.Device.GraphicsCommandPool)
		fs.CommandBuffer = nil
	}
	if fs.InFlight != nil {
		fs.InFlight.FenceDestroy(context)
		fs.InFlight = nil
	}
	if fs.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, fs.ImageAvailable, context.Allocator)
		fs.ImageAvailable = vk.NullSemaphore
	}
	if fs.RenderComplete != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, fs.RenderComplete, context.Allocator)
		fs.RenderComplete = vk.NullSemaphore
	}
	fs.State = FRAME_STATE_IDLE
}

// frameDevice is the slice of the backend the cycler drives. The real
// implementation talks to the device and swapchain.
type frameDevice interface {
	// WaitForFence blocks until slot's previous submission has retired.
	WaitForFence(slot *FrameSlot) error
	// ResetFrameResources resets slot's fence, command buffer and
	// transient descriptor pool for reuse.
	ResetFrameResources(slot *FrameSlot) error
	// AcquireImage returns the swapchain image index to render into, or
	// core.ErrSwapchainBooting when the surface changed.
	AcquireImage(slot *FrameSlot) (uint32, error)
	// Submit queues slot's command buffer, signaling slot.InFlight.
	Submit(slot *FrameSlot, imageIndex uint32) error
	// Present hands imageIndex to the presentation engine.
	Present(slot *FrameSlot, imageIndex uint32) error
	// RebuildSwapchain recreates surface-dependent state at the current
	// framebuffer size.
	RebuildSwapchain() error
}

// FrameCycler sequences a bounded ring of frames in flight. At most
// len(slots) frames are ever recorded ahead of the GPU; the fence wait in
// BeginFrame is the back-pressure point.
type FrameCycler struct {
	device     frameDevice
	slots      []*FrameSlot
	current    uint32
	imageIndex uint32
}

func NewFrameCycler(device frameDevice, slots []*FrameSlot) *FrameCycler {
	return &FrameCycler{
		device: device,
		slots:  slots,
	}
}

// CurrentSlot returns the slot the next BeginFrame will use.
func (fc *FrameCycler) CurrentSlot() *FrameSlot {
	return fc.slots[fc.current]
}

// BeginFrame blocks on the current slot's fence, acquires a swapchain
// image and leaves the slot in recording state. core.ErrSwapchainBooting
// means the surface changed; the swapchain was rebuilt and the caller
// abandons this frame and retries on the next tick. The slot index does
// not advance for an abandoned frame.
func (fc *FrameCycler) BeginFrame() (*FrameSlot, error) {
	slot := fc.slots[fc.current]
	if slot.State != FRAME_STATE_IDLE {
		return nil, errors.Newf("frame slot %d is not idle", slot.Index)
	}

	if err := fc.device.WaitForFence(slot); err != nil {
		return nil, err
	}

	slot.State = FRAME_STATE_ACQUIRING
	imageIndex, err := fc.device.AcquireImage(slot)
	if err != nil {
		slot.State = FRAME_STATE_IDLE
		if errors.Is(err, core.ErrSwapchainBooting) {
			if rerr := fc.device.RebuildSwapchain(); rerr != nil {
				return nil, rerr
			}
		}
		return nil, err
	}
	fc.imageIndex = imageIndex

	// Reset only once the acquire is committed, so an abandoned frame
	// leaves the fence signaled for the retry.
	if err := fc.device.ResetFrameResources(slot); err != nil {
		slot.State = FRAME_STATE_IDLE
		return nil, err
	}

	slot.State = FRAME_STATE_RECORDING
	return slot, nil
}

// ImageIndex reports the swapchain image acquired by the last BeginFrame.
func (fc *FrameCycler) ImageIndex() uint32 {
	return fc.imageIndex
}

// EndFrame submits the recorded commands and presents. A stale surface at
// present time rebuilds the swapchain and is not an error; the frame's
// work had already been submitted. The ring always advances after a
// submitted frame.
func (fc *FrameCycler) EndFrame() error {
	slot := fc.slots[fc.current]
	if slot.State != FRAME_STATE_RECORDING {
		return errors.Newf("frame slot %d is not recording", slot.Index)
	}

	if err := fc.device.Submit(slot, fc.imageIndex); err != nil {
		slot.State = FRAME_STATE_IDLE
		return err
	}
	slot.State = FRAME_STATE_SUBMITTED

	err := fc.device.Present(slot, fc.imageIndex)
	slot.State = FRAME_STATE_IDLE
	fc.current = (fc.current + 1) % uint32(len(fc.slots))

	if err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return fc.device.RebuildSwapchain()
		}
		return err
	}
	return nil
}

// contextFrameDevice is the production frameDevice over a VulkanContext.
type contextFrameDevice struct {
	context *VulkanContext
	vsync   bool
	resized func() error
}

func newContextFrameDevice(context *VulkanContext, vsync bool, onRebuild func() error) *contextFrameDevice {
	return &contextFrameDevice{
		context: context,
		vsync:   vsync,
		resized: onRebuild,
	}
}

func (d *contextFrameDevice) WaitForFence(slot *FrameSlot) error {
	return slot.InFlight.FenceWait(d.context, math.MaxUint64)
}

func (d *contextFrameDevice) ResetFrameResources(slot *FrameSlot) error {
	if err := slot.InFlight.FenceReset(d.context); err != nil {
		return err
	}
	if res := vk.ResetCommandBuffer(slot.CommandBuffer.Handle, 0); res != vk.Success {
		err := errors.Newf("vkResetCommandBuffer failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	slot.CommandBuffer.ResetState()
	if res := vk.ResetDescriptorPool(d.context.Device.LogicalDevice, slot.DescriptorPool, 0); res != vk.Success {
		err := errors.Newf("vkResetDescriptorPool failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (d *contextFrameDevice) AcquireImage(slot *FrameSlot) (uint32, error) {
	// A resize since the last rebuild also forces a new swapchain before
	// any acquire is attempted.
	if d.context.FramebufferSizeGeneration != d.context.FramebufferSizeLastGeneration {
		return 0, core.ErrSwapchainBooting
	}
	return d.context.Swapchain.SwapchainAcquireNextImageIndex(d.context, math.MaxUint64, slot.ImageAvailable, vk.NullFence)
}

func (d *contextFrameDevice) Submit(slot *FrameSlot, imageIndex uint32) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.ImageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.RenderComplete},
	}

	if res := vk.QueueSubmit(d.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, slot.InFlight.Handle); res != vk.Success {
		err := errors.Newf("vkQueueSubmit failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	slot.CommandBuffer.UpdateSubmitted()
	return nil
}

func (d *contextFrameDevice) Present(slot *FrameSlot, imageIndex uint32) error {
	return d.context.Swapchain.SwapchainPresent(d.context, d.context.Device.PresentQueue, slot.RenderComplete, imageIndex)
}

func (d *contextFrameDevice) RebuildSwapchain() error {
	if d.resized != nil {
		return d.resized()
	}
	return nil
}
