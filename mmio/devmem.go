//go:build unix

package mmio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem is a Bus over a memory-mapped register window, typically
// /dev/mem on a board running Linux, or a plain file shared with an
// external emulator. Addresses passed to the accessors are physical and
// must fall inside [Base, Base+len).
type DevMem struct {
	Base uint32
	data []byte
	f    *os.File
}

// OpenDevMem maps size bytes of path starting at physical address base.
// base must be page aligned.
func OpenDevMem(path string, base, size uint32) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("devmem: open %s: %w", path, err)
	}
	if int(base)%unix.Getpagesize() != 0 {
		f.Close()
		return nil, fmt.Errorf("devmem: base 0x%08X is not page aligned", base)
	}
	data, err := unix.Mmap(int(f.Fd()), int64(base), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("devmem: mmap 0x%08X+0x%X: %w", base, size, err)
	}
	return &DevMem{Base: base, data: data, f: f}, nil
}

// Close unmaps the window.
func (m *DevMem) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (m *DevMem) offset(addr uint32, width uint32) uint32 {
	off := addr - m.Base
	if addr < m.Base || uint64(off)+uint64(width) > uint64(len(m.data)) {
		panic(fmt.Sprintf("devmem: access 0x%08X outside window 0x%08X+0x%X", addr, m.Base, len(m.data)))
	}
	if off%width != 0 {
		panic(fmt.Sprintf("devmem: unaligned %d-byte access at 0x%08X", width, addr))
	}
	return off
}

func (m *DevMem) Read32(addr uint32) uint32 {
	off := m.offset(addr, 4)
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.data[off])))
}

func (m *DevMem) Write32(addr uint32, value uint32) {
	off := m.offset(addr, 4)
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.data[off])), value)
}

// 16-bit accesses have no atomic counterpart; a plain access through a
// pointer is a single halfword load/store on every supported target.
func (m *DevMem) Read16(addr uint32) uint16 {
	off := m.offset(addr, 2)
	return *(*uint16)(unsafe.Pointer(&m.data[off]))
}

func (m *DevMem) Write16(addr uint32, value uint16) {
	off := m.offset(addr, 2)
	*(*uint16)(unsafe.Pointer(&m.data[off])) = value
}
