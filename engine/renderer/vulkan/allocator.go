package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// Default size of a backing device allocation. Requests larger than this
// get a dedicated block of exactly the requested size.
const DEFAULT_BLOCK_SIZE uint64 = 64 * 1024 * 1024

// Allocation is a sub-range of one backing device allocation. It is a
// small value; the owning buffer or image stores it and hands it back to
// Free exactly once.
type Allocation struct {
	Memory     vk.DeviceMemory
	Offset     uint64
	Size       uint64
	MemoryType int32

	block *memoryBlock
}

type freeRange struct {
	offset uint64
	size   uint64
}

// memoryBlock is one large vk.DeviceMemory allocation with a free list,
// sorted by offset. The list bookkeeping carries no device state so it can
// be exercised on its own.
type memoryBlock struct {
	memory     vk.DeviceMemory
	size       uint64
	memoryType int32
	mapped     unsafe.Pointer
	free       []freeRange
}

func newMemoryBlock(memory vk.DeviceMemory, size uint64, memoryType int32) *memoryBlock {
	return &memoryBlock{
		memory:     memory,
		size:       size,
		memoryType: memoryType,
		free:       []freeRange{{offset: 0, size: size}},
	}
}

// claim carves an aligned range out of the first free range that fits.
// Returns the chosen offset, or false when the block cannot satisfy the
// request.
func (b *memoryBlock) claim(size, alignment uint64) (uint64, bool) {
	if alignment == 0 {
		alignment = 1
	}
	for i := range b.free {
		r := b.free[i]
		aligned := alignUp(r.offset, alignment)
		padding := aligned - r.offset
		if r.size < padding+size {
			continue
		}

		// Shrink or split the range around the claimed span.
		remaining := r.size - padding - size
		replacement := make([]freeRange, 0, 2)
		if padding > 0 {
			replacement = append(replacement, freeRange{offset: r.offset, size: padding})
		}
		if remaining > 0 {
			replacement = append(replacement, freeRange{offset: aligned + size, size: remaining})
		}

		b.free = append(b.free[:i], append(replacement, b.free[i+1:]...)...)
		return aligned, true
	}
	return 0, false
}

// release returns a range to the free list, merging with adjacent free
// neighbours so the block does not fragment permanently.
func (b *memoryBlock) release(offset, size uint64) {
	// Find the insertion point keeping the list sorted by offset.
	i := 0
	for i < len(b.free) && b.free[i].offset < offset {
		i++
	}
	b.free = append(b.free, freeRange{})
	copy(b.free[i+1:], b.free[i:])
	b.free[i] = freeRange{offset: offset, size: size}

	// Merge with the next range.
	if i+1 < len(b.free) && b.free[i].offset+b.free[i].size == b.free[i+1].offset {
		b.free[i].size += b.free[i+1].size
		b.free = append(b.free[:i+1], b.free[i+2:]...)
	}
	// Merge with the previous range.
	if i > 0 && b.free[i-1].offset+b.free[i-1].size == b.free[i].offset {
		b.free[i-1].size += b.free[i].size
		b.free = append(b.free[:i], b.free[i+1:]...)
	}
}

// largestFree reports the biggest contiguous range available.
func (b *memoryBlock) largestFree() uint64 {
	var largest uint64
	for _, r := range b.free {
		if r.size > largest {
			largest = r.size
		}
	}
	return largest
}

func alignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// GPUAllocator sub-allocates buffer and image memory from a small number
// of large backing allocations, one block list per memory type. It is not
// safe for concurrent use; the single loading/rendering thread owns it.
type GPUAllocator struct {
	context   *VulkanContext
	blockSize uint64
	blocks    map[int32][]*memoryBlock
}

func NewGPUAllocator(context *VulkanContext) *GPUAllocator {
	return &GPUAllocator{
		context:   context,
		blockSize: DEFAULT_BLOCK_SIZE,
		blocks:    make(map[int32][]*memoryBlock),
	}
}

// Allocate returns an aligned sub-range of device memory matching
// typeFilter and propertyFlags, growing the backing storage on demand.
// Exhaustion surfaces core.ErrOutOfDeviceMemory; the in-progress operation
// must treat that as fatal.
func (ga *GPUAllocator) Allocate(size, alignment uint64, typeFilter, propertyFlags uint32) (Allocation, error) {
	memoryType := ga.context.FindMemoryIndex(typeFilter, propertyFlags)
	if memoryType < 0 {
		return Allocation{}, errors.Wrap(core.ErrOutOfDeviceMemory, "no memory type matches the requested properties")
	}

	for _, block := range ga.blocks[memoryType] {
		if offset, ok := block.claim(size, alignment); ok {
			return Allocation{
				Memory:     block.memory,
				Offset:     offset,
				Size:       size,
				MemoryType: memoryType,
				block:      block,
			}, nil
		}
	}

	block, err := ga.grow(memoryType, size, propertyFlags)
	if err != nil {
		return Allocation{}, err
	}

	offset, ok := block.claim(size, alignment)
	if !ok {
		// A fresh block always fits the request it was grown for.
		return Allocation{}, errors.Wrap(core.ErrOutOfDeviceMemory, "fresh block cannot satisfy request")
	}
	return Allocation{
		Memory:     block.memory,
		Offset:     offset,
		Size:       size,
		MemoryType: memoryType,
		block:      block,
	}, nil
}

// Free returns the allocation's range to its block. Double frees are a
// caller error, exactly like the underlying API.
func (ga *GPUAllocator) Free(alloc Allocation) {
	if alloc.block == nil {
		return
	}
	alloc.block.release(alloc.Offset, alloc.Size)
}

// Map returns a host pointer at the allocation's offset. Only valid for
// host-visible memory types; the backing block is persistently mapped on
// first use.
func (ga *GPUAllocator) Map(alloc Allocation) (unsafe.Pointer, error) {
	block := alloc.block
	if block == nil {
		return nil, errors.New("cannot map an empty allocation")
	}
	if block.mapped == nil {
		var ptr unsafe.Pointer
		if res := vk.MapMemory(ga.context.Device.LogicalDevice, block.memory, 0, vk.DeviceSize(block.size), 0, &ptr); res != vk.Success {
			err := errors.Newf("vkMapMemory failed with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		block.mapped = ptr
	}
	return unsafe.Add(block.mapped, alloc.Offset), nil
}

// Shutdown releases every backing allocation. All sub-allocations must be
// freed (or forgotten) by their owners first; this runs late in context
// teardown.
func (ga *GPUAllocator) Shutdown() {
	for memoryType, blocks := range ga.blocks {
		for _, block := range blocks {
			if block.mapped != nil {
				vk.UnmapMemory(ga.context.Device.LogicalDevice, block.memory)
				block.mapped = nil
			}
			vk.FreeMemory(ga.context.Device.LogicalDevice, block.memory, ga.context.Allocator)
		}
		delete(ga.blocks, memoryType)
	}
}

func (ga *GPUAllocator) grow(memoryType int32, atLeast uint64, propertyFlags uint32) (*memoryBlock, error) {
	blockSize := ga.blockSize
	if atLeast > blockSize {
		// Dedicated block for oversized resources.
		blockSize = atLeast
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(blockSize),
		MemoryTypeIndex: uint32(memoryType),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(ga.context.Device.LogicalDevice, &allocateInfo, ga.context.Allocator, &memory); res != vk.Success {
		core.LogError("vkAllocateMemory for a %d byte block failed with %s", blockSize, VulkanResultString(res))
		return nil, errors.Wrapf(core.ErrOutOfDeviceMemory, "growing memory type %d by %d bytes", memoryType, blockSize)
	}

	block := newMemoryBlock(memory, blockSize, memoryType)
	ga.blocks[memoryType] = append(ga.blocks[memoryType], block)
	core.LogDebug("GPU allocator grew memory type %d by %d bytes (%d blocks)", memoryType, blockSize, len(ga.blocks[memoryType]))
	return block, nil
}
