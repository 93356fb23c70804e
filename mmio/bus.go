// bus.go - Register bus and typed register accessors

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHAL
License: GPLv3 or later
*/

// Package mmio holds the register-level plumbing shared by the cache, IPC
// and interrupt packages: the physical register bus, typed register
// accessors, bitfield helpers, address-space conversions and a bounded
// busy-poll.
package mmio

// Bus is a physical-address register bus. Every access is a single
// uncached load or store of the given width.
//
// On hardware this is backed by the uncached mirror of the register
// window; in simulation by machine.MachineBus.
type Bus interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
}

// Address space windows of the application CPU.
const (
	PHYS_MASK     = 0x1FFFFFFF // bits visible on the shared memory bus
	CACHED_BASE   = 0x80000000 // cached mirror of physical memory
	UNCACHED_BASE = 0xC0000000 // uncached mirror of physical memory
	CACHE_LINE    = 32         // bytes per coherency unit
)

// Physical strips the segment bits from an effective address.
func Physical(ea uint32) uint32 {
	return ea & PHYS_MASK
}

// Cached returns the cached-mirror effective address of a physical address.
func Cached(pa uint32) uint32 {
	return (pa & PHYS_MASK) | CACHED_BASE
}

// Uncached returns the uncached-mirror effective address of a physical address.
func Uncached(pa uint32) uint32 {
	return (pa & PHYS_MASK) | UNCACHED_BASE
}

// IsCached reports whether ea lies in the cached mirror.
func IsCached(ea uint32) bool {
	return ea&0xE0000000 == CACHED_BASE
}

// LineAligned reports whether addr sits on a cache line boundary.
func LineAligned(addr uint32) bool {
	return addr&(CACHE_LINE-1) == 0
}

// AlignUp rounds n up to a whole number of cache lines.
func AlignUp(n uint32) uint32 {
	return (n + CACHE_LINE - 1) &^ (CACHE_LINE - 1)
}

// Register32 is a 32-bit register at a fixed bus address.
type Register32 struct {
	Bus  Bus
	Addr uint32
}

// Get reads the register.
func (r Register32) Get() uint32 {
	return r.Bus.Read32(r.Addr)
}

// Set writes the register.
func (r Register32) Set(value uint32) {
	r.Bus.Write32(r.Addr, value)
}

// HasBits reports whether every bit of mask is set.
func (r Register32) HasBits(mask uint32) bool {
	return r.Get()&mask == mask
}

// SetBits performs a read-modify-write setting mask.
func (r Register32) SetBits(mask uint32) {
	r.Set(r.Get() | mask)
}

// ClearBits performs a read-modify-write clearing mask.
func (r Register32) ClearBits(mask uint32) {
	r.Set(r.Get() &^ mask)
}

// Register16 is a 16-bit register at a fixed bus address.
type Register16 struct {
	Bus  Bus
	Addr uint32
}

func (r Register16) Get() uint16 {
	return r.Bus.Read16(r.Addr)
}

func (r Register16) Set(value uint16) {
	r.Bus.Write16(r.Addr, value)
}
