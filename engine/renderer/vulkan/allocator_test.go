package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlockClaimFirstFit(t *testing.T) {
	b := newMemoryBlock(vk.NullDeviceMemory, 1024, 0)

	off, ok := b.claim(256, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(0), off)

	off, ok = b.claim(256, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(256), off)

	assert.Equal(t, uint64(512), b.largestFree())
}

func TestMemoryBlockClaimRespectsAlignment(t *testing.T) {
	b := newMemoryBlock(vk.NullDeviceMemory, 1024, 0)

	_, ok := b.claim(10, 1)
	require.True(t, ok)

	off, ok := b.claim(64, 256)
	require.True(t, ok)
	assert.Equal(t, uint64(256), off)

	// The alignment padding stays on the free list.
	off, ok = b.claim(100, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(10), off)
}

func TestMemoryBlockClaimTooLarge(t *testing.T) {
	b := newMemoryBlock(vk.NullDeviceMemory, 128, 0)

	_, ok := b.claim(256, 1)
	assert.False(t, ok)

	// A request that would fit without alignment padding but not with it
	// must fail as well.
	_, ok = b.claim(8, 1)
	require.True(t, ok)
	_, ok = b.claim(120, 64)
	assert.False(t, ok)
}

func TestMemoryBlockReleaseCoalesces(t *testing.T) {
	b := newMemoryBlock(vk.NullDeviceMemory, 1024, 0)

	a, ok := b.claim(256, 1)
	require.True(t, ok)
	mid, ok := b.claim(256, 1)
	require.True(t, ok)
	c, ok := b.claim(256, 1)
	require.True(t, ok)

	b.release(a, 256)
	b.release(c, 256)
	// Two separate holes plus the 256 byte tail.
	assert.Equal(t, uint64(512), b.largestFree())

	b.release(mid, 256)
	// Releasing the middle merges everything back into one range.
	assert.Equal(t, uint64(1024), b.largestFree())
	assert.Len(t, b.free, 1)
}

func TestMemoryBlockReuseAfterRelease(t *testing.T) {
	b := newMemoryBlock(vk.NullDeviceMemory, 512, 0)

	off, ok := b.claim(512, 1)
	require.True(t, ok)
	_, ok = b.claim(1, 1)
	assert.False(t, ok)

	b.release(off, 512)
	off, ok = b.claim(512, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(0), off)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), alignUp(0, 16))
	assert.Equal(t, uint64(16), alignUp(1, 16))
	assert.Equal(t, uint64(16), alignUp(16, 16))
	assert.Equal(t, uint64(256), alignUp(129, 128))
	assert.Equal(t, uint64(7), alignUp(7, 1))
}
