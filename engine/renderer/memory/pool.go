package memory

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrDoubleFree    = errors.New("memory block already freed")
	ErrForeignBlock  = errors.New("memory block does not belong to this pool")
	ErrZeroSizeAlloc = errors.New("cannot allocate zero bytes")
)

// ChunkDevice hands out the coarse device allocations a Pool carves up.
// The memory value is opaque to the pool.
type ChunkDevice interface {
	AllocateChunk(memoryType uint32, size uint64) (interface{}, error)
	FreeChunk(memoryType uint32, memory interface{})
}

// Allocation is one coarse chunk of device memory.
type Allocation struct {
	Memory interface{}
	Size   uint64
}

// FreeRegion is an unused byte range inside an Allocation.
type FreeRegion struct {
	Allocation int
	Offset     uint64
	Size       uint64
}

func (r FreeRegion) end() uint64 {
	return r.Offset + r.Size
}

// Block is a sub-allocation owned by exactly one buffer or image.
type Block struct {
	Memory     interface{}
	Offset     uint64
	Size       uint64
	Allocation int
	MemoryType uint32

	generation uint64
	freed      bool
}

// Backing is the memory behind a resource: either a dedicated device
// allocation owned by the resource or a Block from a pool.
type Backing interface {
	isBacking()
}

// Direct is memory allocated for and owned by a single resource.
type Direct struct {
	Memory interface{}
}

func (Direct) isBacking() {}

func (*Block) isBacking() {}

// Pool sub-allocates blocks of one memory type with a first-fit free list.
type Pool struct {
	device     ChunkDevice
	memoryType uint32
	chunkSize  uint64
	coalesce   bool

	allocations []Allocation
	free        []FreeRegion
	liveBlocks  int
	// generation changes on Destroy so older blocks are told apart from
	// blocks of regrown chunks at the same index.
	generation uint64
}

func NewPool(device ChunkDevice, memoryType uint32, chunkSize uint64, coalesce bool) *Pool {
	return &Pool{
		device:     device,
		memoryType: memoryType,
		chunkSize:  chunkSize,
		coalesce:   coalesce,
		generation: 1,
	}
}

// Allocate returns a block of at least size bytes whose offset is a multiple
// of alignment. When no free region fits, a new chunk of
// max(chunkSize, alignedSize) is requested from the device.
func (p *Pool) Allocate(size, alignment uint64) (*Block, error) {
	if size == 0 {
		return nil, ErrZeroSizeAlloc
	}
	if alignment == 0 {
		alignment = 1
	}
	alignedSize := AlignUp(size, alignment)

	if b := p.tryAllocate(alignedSize, alignment); b != nil {
		return b, nil
	}

	chunk := max(p.chunkSize, alignedSize)
	mem, err := p.device.AllocateChunk(p.memoryType, chunk)
	if err != nil {
		return nil, errors.Wrapf(err, "allocating %d byte chunk for memory type %d", chunk, p.memoryType)
	}
	p.allocations = append(p.allocations, Allocation{Memory: mem, Size: chunk})
	p.free = append(p.free, FreeRegion{Allocation: len(p.allocations) - 1, Offset: 0, Size: chunk})

	b := p.tryAllocate(alignedSize, alignment)
	if b == nil {
		return nil, errors.AssertionFailedf("fresh %d byte chunk cannot hold %d bytes", chunk, alignedSize)
	}
	return b, nil
}

func (p *Pool) tryAllocate(size, alignment uint64) *Block {
	for i, r := range p.free {
		offset := AlignUp(r.Offset, alignment)
		padding := offset - r.Offset
		if padding+size > r.Size {
			continue
		}

		var rest []FreeRegion
		if padding > 0 {
			rest = append(rest, FreeRegion{Allocation: r.Allocation, Offset: r.Offset, Size: padding})
		}
		if tail := r.Size - padding - size; tail > 0 {
			rest = append(rest, FreeRegion{Allocation: r.Allocation, Offset: offset + size, Size: tail})
		}
		p.free = append(p.free[:i], append(rest, p.free[i+1:]...)...)

		p.liveBlocks++
		return &Block{
			Memory:     p.allocations[r.Allocation].Memory,
			Offset:     offset,
			Size:       size,
			Allocation: r.Allocation,
			MemoryType: p.memoryType,
			generation: p.generation,
		}
	}
	return nil
}

// Free returns the block's range to the free list.
func (p *Pool) Free(b *Block) error {
	if b.freed {
		return ErrDoubleFree
	}
	if b.MemoryType != p.memoryType || b.generation != p.generation || b.Allocation < 0 || b.Allocation >= len(p.allocations) {
		return ErrForeignBlock
	}
	b.freed = true
	p.liveBlocks--

	region := FreeRegion{Allocation: b.Allocation, Offset: b.Offset, Size: b.Size}
	if !p.coalesce {
		p.free = append(p.free, region)
		return nil
	}
	p.free = append(p.free, p.merge(region))
	return nil
}

// merge absorbs every free region adjacent to r and removes them from the
// list.
func (p *Pool) merge(r FreeRegion) FreeRegion {
	for merged := true; merged; {
		merged = false
		for i, other := range p.free {
			if other.Allocation != r.Allocation {
				continue
			}
			if other.end() == r.Offset {
				r.Offset = other.Offset
				r.Size += other.Size
			} else if r.end() == other.Offset {
				r.Size += other.Size
			} else {
				continue
			}
			p.free = append(p.free[:i], p.free[i+1:]...)
			merged = true
			break
		}
	}
	return r
}

// Destroy frees every chunk. Blocks handed out earlier become invalid.
func (p *Pool) Destroy() {
	for _, a := range p.allocations {
		p.device.FreeChunk(p.memoryType, a.Memory)
	}
	p.allocations = nil
	p.free = nil
	p.liveBlocks = 0
	p.generation++
}

func (p *Pool) Allocations() []Allocation {
	return p.allocations
}

func (p *Pool) FreeRegions() []FreeRegion {
	return p.free
}

func (p *Pool) LiveBlocks() int {
	return p.liveBlocks
}
