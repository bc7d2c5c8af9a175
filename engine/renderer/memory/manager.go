package memory

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

// Manager owns one Pool per memory type index.
type Manager struct {
	device    ChunkDevice
	chunkSize uint64
	coalesce  bool
	pools     map[uint32]*Pool
}

func NewManager(device ChunkDevice, chunkSize uint64, coalesce bool) *Manager {
	return &Manager{
		device:    device,
		chunkSize: chunkSize,
		coalesce:  coalesce,
		pools:     make(map[uint32]*Pool),
	}
}

func (m *Manager) pool(memoryType uint32) *Pool {
	p, ok := m.pools[memoryType]
	if !ok {
		p = NewPool(m.device, memoryType, m.chunkSize, m.coalesce)
		m.pools[memoryType] = p
	}
	return p
}

func (m *Manager) Allocate(memoryType uint32, size, alignment uint64) (*Block, error) {
	return m.pool(memoryType).Allocate(size, alignment)
}

func (m *Manager) Free(b *Block) error {
	if b == nil {
		return nil
	}
	p, ok := m.pools[b.MemoryType]
	if !ok {
		return errors.Wrapf(ErrForeignBlock, "no pool for memory type %d", b.MemoryType)
	}
	return p.Free(b)
}

// Destroy releases every chunk of every pool.
func (m *Manager) Destroy() {
	for _, t := range m.memoryTypes() {
		m.pools[t].Destroy()
	}
	clear(m.pools)
}

func (m *Manager) memoryTypes() []uint32 {
	types := make([]uint32, 0, len(m.pools))
	for t := range m.pools {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type Stats struct {
	Pools       int
	Allocations int
	LiveBlocks  int
	Reserved    uint64
	Free        uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("Memory pools: %d, Total GPU allocations: %d", s.Pools, s.Allocations)
}

func (m *Manager) Stats() Stats {
	s := Stats{Pools: len(m.pools)}
	for _, p := range m.pools {
		s.Allocations += len(p.allocations)
		s.LiveBlocks += p.liveBlocks
		for _, a := range p.allocations {
			s.Reserved += a.Size
		}
		for _, r := range p.free {
			s.Free += r.Size
		}
	}
	return s
}
