// arena.go - Ownership boundary between the application CPU and the coprocessor

package ipc

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// Memory is the application CPU's view of RAM, cache included.
type Memory interface {
	ReadAt(p []byte, ea uint32) error
	WriteAt(p []byte, ea uint32) error
}

// Boundary is the only place where bytes change hands between the two
// processors. Publish copies p into coprocessor-addressable memory, aligned
// to a cache line, and returns its cached effective address; the caller
// keeps no alias to it. Reclaim copies the region back into p and releases
// it. Empty buffers are never published and map to address 0.
type Boundary interface {
	Publish(p []byte) (ea uint32, err error)
	Reclaim(ea uint32, p []byte) error
}

// Arena implements Boundary over a physical window of RAM, usually the top
// of MEM2.
type Arena struct {
	mem  Memory
	base uint32
	size uint32

	mu   sync.Mutex
	used map[uint32]uint32 // physical start -> allocated length
}

func NewArena(mem Memory, base, size uint32) (*Arena, error) {
	if !mmio.LineAligned(base) || !mmio.LineAligned(size) {
		return nil, fmt.Errorf("ipc: arena 0x%08X+0x%X is not line aligned", base, size)
	}
	return &Arena{mem: mem, base: mmio.Physical(base), size: size, used: make(map[uint32]uint32)}, nil
}

// InUse returns the number of regions currently owned by the coprocessor.
func (a *Arena) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

func (a *Arena) alloc(n uint32) (uint32, error) {
	cursor := a.base
	for _, start := range slices.Sorted(maps.Keys(a.used)) {
		if start-cursor >= n {
			break
		}
		cursor = start + a.used[start]
	}
	if uint64(cursor)+uint64(n) > uint64(a.base)+uint64(a.size) {
		return 0, fmt.Errorf("%w: 0x%X bytes requested", ErrArenaFull, n)
	}
	a.used[cursor] = n
	return cursor, nil
}

func (a *Arena) Publish(p []byte) (uint32, error) {
	if len(p) == 0 {
		return 0, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	pa, err := a.alloc(mmio.AlignUp(uint32(len(p))))
	if err != nil {
		return 0, err
	}
	ea := mmio.Cached(pa)
	if err := a.mem.WriteAt(p, ea); err != nil {
		delete(a.used, pa)
		return 0, fmt.Errorf("ipc: publish at 0x%08X: %w", pa, err)
	}
	return ea, nil
}

func (a *Arena) Reclaim(ea uint32, p []byte) error {
	if ea == 0 && len(p) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	pa := mmio.Physical(ea)
	n, ok := a.used[pa]
	if !ok {
		return fmt.Errorf("%w: 0x%08X", ErrNotPublished, pa)
	}
	delete(a.used, pa)
	if uint32(len(p)) > n {
		return fmt.Errorf("ipc: reclaim of 0x%X bytes from a 0x%X byte region", len(p), n)
	}
	if len(p) > 0 {
		if err := a.mem.ReadAt(p, mmio.Cached(pa)); err != nil {
			return fmt.Errorf("ipc: reclaim at 0x%08X: %w", pa, err)
		}
	}
	return nil
}
