package core

// Handle is a small value that stands in for a GPU-resident object. The
// index addresses a slot in the owning collection and the generation guards
// against use after the slot has been recycled.
type Handle struct {
	Index      uint32
	Generation uint32
}

// InvalidHandle is the zero-value sentinel; generation 0 is never issued.
var InvalidHandle = Handle{}

func (h Handle) Valid() bool {
	return h.Generation != 0
}

// HandleAllocator issues index/generation handles over a pool of slots.
// Freed slots are recycled with a bumped generation so stale handles can
// be detected on resolution.
type HandleAllocator struct {
	generations []uint32
	freeList    []uint32
}

func NewHandleAllocator() *HandleAllocator {
	return &HandleAllocator{}
}

func (ha *HandleAllocator) Acquire() Handle {
	if n := len(ha.freeList); n > 0 {
		index := ha.freeList[n-1]
		ha.freeList = ha.freeList[:n-1]
		ha.generations[index]++
		return Handle{Index: index, Generation: ha.generations[index]}
	}
	ha.generations = append(ha.generations, 1)
	return Handle{Index: uint32(len(ha.generations) - 1), Generation: 1}
}

// Release returns the handle's slot to the pool. Releasing a stale handle
// is a no-op.
func (ha *HandleAllocator) Release(h Handle) {
	if !ha.Alive(h) {
		return
	}
	ha.generations[h.Index]++
	ha.freeList = append(ha.freeList, h.Index)
}

// Alive reports whether h still addresses the object it was issued for.
func (ha *HandleAllocator) Alive(h Handle) bool {
	if !h.Valid() || h.Index >= uint32(len(ha.generations)) {
		return false
	}
	return ha.generations[h.Index] == h.Generation
}
