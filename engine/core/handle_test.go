package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleAllocatorAcquire(t *testing.T) {
	ha := NewHandleAllocator()

	h0 := ha.Acquire()
	h1 := ha.Acquire()

	assert.True(t, h0.Valid())
	assert.True(t, h1.Valid())
	assert.NotEqual(t, h0, h1)
	assert.True(t, ha.Alive(h0))
	assert.True(t, ha.Alive(h1))
}

func TestHandleAllocatorRecyclesWithNewGeneration(t *testing.T) {
	ha := NewHandleAllocator()

	h0 := ha.Acquire()
	ha.Release(h0)
	assert.False(t, ha.Alive(h0))

	h1 := ha.Acquire()
	assert.Equal(t, h0.Index, h1.Index)
	assert.NotEqual(t, h0.Generation, h1.Generation)
	assert.True(t, ha.Alive(h1))
	assert.False(t, ha.Alive(h0))
}

func TestHandleAllocatorStaleReleaseIsNoop(t *testing.T) {
	ha := NewHandleAllocator()

	h0 := ha.Acquire()
	ha.Release(h0)
	ha.Release(h0)

	h1 := ha.Acquire()
	assert.True(t, ha.Alive(h1))

	// The double release must not have put the slot on the free list twice.
	h2 := ha.Acquire()
	assert.NotEqual(t, h1.Index, h2.Index)
}

func TestInvalidHandle(t *testing.T) {
	ha := NewHandleAllocator()

	assert.False(t, InvalidHandle.Valid())
	assert.False(t, ha.Alive(InvalidHandle))

	out := Handle{Index: 42, Generation: 7}
	assert.False(t, ha.Alive(out))
}
