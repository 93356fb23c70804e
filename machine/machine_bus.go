// machine_bus.go - Physical bus of the simulated Broadway/Hollywood platform

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

/*
machine_bus.go - Physical Bus

This module implements the physical memory bus the HAL is exercised against.
It is what both processors see below their caches: the application CPU reaches
it through the cache model in package cache, the coprocessor simulator reads
and writes it directly.

Core Features:

    Two RAM banks: MEM1 at physical 0x00000000 and MEM2 at 0x10000000, sizes configurable.
    Memory-mapped I/O via an I/O region table keyed by 256-byte pages.
    Big-endian 8/16/32-bit accesses, matching the PowerPC side of the machine.
    Block transfers (ReadPhys/WritePhys) used by cache line fills and write-backs.
    Sealing: once the platform starts no new regions may be mapped.

Concurrency:

    RAM is guarded by a read/write mutex because the coprocessor simulator runs
    on its own goroutine. I/O callbacks run outside the lock; devices guard
    their own shadow registers.
*/

package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	PAGE_SIZE = 0x100
	PAGE_MASK = 0xFFFFFF00

	MEM1_BASE         = 0x00000000
	MEM1_DEFAULT_SIZE = 0x01800000 // 24MB
	MEM2_BASE         = 0x10000000
	MEM2_DEFAULT_SIZE = 0x04000000 // 64MB
)

// ErrSealed is returned by MapIO once the bus has been sealed.
var ErrSealed = errors.New("machine: bus is sealed")

type IORegion struct {
	/*
		IORegion represents a memory-mapped register window.
		Callbacks receive the full physical address; 16-bit and 8-bit
		accesses are delivered to the same callbacks widened to 32 bits.
	*/
	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

type bank struct {
	base uint32
	data []byte
}

func (b *bank) contains(addr, n uint32) bool {
	return addr >= b.base && uint64(addr-b.base)+uint64(n) <= uint64(len(b.data))
}

// Config sizes the RAM banks. A zero size omits the bank.
type Config struct {
	MEM1Size uint32
	MEM2Size uint32
}

// DefaultConfig returns the retail memory sizes.
func DefaultConfig() Config {
	return Config{MEM1Size: MEM1_DEFAULT_SIZE, MEM2Size: MEM2_DEFAULT_SIZE}
}

type MachineBus struct {
	/*
		MachineBus implements mmio.Bus over the RAM banks and the I/O
		region table. Unmapped, non-RAM accesses read as zero and drop
		writes; the WithFault variants report them.
	*/
	mu      sync.RWMutex
	banks   []*bank
	mapping map[uint32][]IORegion
	sealed  atomic.Bool
}

// NewMachineBus allocates the RAM banks described by cfg.
func NewMachineBus(cfg Config) *MachineBus {
	bus := &MachineBus{mapping: make(map[uint32][]IORegion)}
	if cfg.MEM1Size > 0 {
		bus.banks = append(bus.banks, &bank{base: MEM1_BASE, data: make([]byte, cfg.MEM1Size)})
	}
	if cfg.MEM2Size > 0 {
		bus.banks = append(bus.banks, &bank{base: MEM2_BASE, data: make([]byte, cfg.MEM2Size)})
	}
	return bus
}

// Seal forbids further MapIO calls.
func (bus *MachineBus) Seal() {
	bus.sealed.Store(true)
}

// MapIO attaches a register window [start, end] to the bus.
func (bus *MachineBus) MapIO(start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) error {
	if bus.sealed.Load() {
		return fmt.Errorf("%w: mapping 0x%08X-0x%08X", ErrSealed, start, end)
	}
	if end < start {
		return fmt.Errorf("machine: empty region 0x%08X-0x%08X", start, end)
	}
	region := IORegion{start: start, end: end, onRead: onRead, onWrite: onWrite}
	for page := start & PAGE_MASK; ; page += PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
		if page == end&PAGE_MASK {
			break
		}
	}
	return nil
}

func (bus *MachineBus) findIORegion(addr uint32) *IORegion {
	regions, ok := bus.mapping[addr&PAGE_MASK]
	if !ok {
		return nil
	}
	for i := range regions {
		if addr >= regions[i].start && addr <= regions[i].end {
			return &regions[i]
		}
	}
	return nil
}

func (bus *MachineBus) findBank(addr, n uint32) *bank {
	for _, b := range bus.banks {
		if b.contains(addr, n) {
			return b
		}
	}
	return nil
}

// IsRAM reports whether [addr, addr+n) lies entirely inside one RAM bank.
func (bus *MachineBus) IsRAM(addr, n uint32) bool {
	return bus.findBank(addr, n) != nil
}

func (bus *MachineBus) Read32WithFault(addr uint32) (uint32, bool) {
	if region := bus.findIORegion(addr); region != nil {
		if region.onRead == nil {
			return 0, true
		}
		return region.onRead(addr), true
	}
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if b := bus.findBank(addr, 4); b != nil {
		off := addr - b.base
		return binary.BigEndian.Uint32(b.data[off : off+4]), true
	}
	return 0, false
}

func (bus *MachineBus) Write32WithFault(addr uint32, value uint32) bool {
	if region := bus.findIORegion(addr); region != nil {
		if region.onWrite != nil {
			region.onWrite(addr, value)
		}
		return true
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if b := bus.findBank(addr, 4); b != nil {
		off := addr - b.base
		binary.BigEndian.PutUint32(b.data[off:off+4], value)
		return true
	}
	return false
}

func (bus *MachineBus) Read16WithFault(addr uint32) (uint16, bool) {
	if region := bus.findIORegion(addr); region != nil {
		if region.onRead == nil {
			return 0, true
		}
		return uint16(region.onRead(addr)), true
	}
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if b := bus.findBank(addr, 2); b != nil {
		off := addr - b.base
		return binary.BigEndian.Uint16(b.data[off : off+2]), true
	}
	return 0, false
}

func (bus *MachineBus) Write16WithFault(addr uint32, value uint16) bool {
	if region := bus.findIORegion(addr); region != nil {
		if region.onWrite != nil {
			region.onWrite(addr, uint32(value))
		}
		return true
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if b := bus.findBank(addr, 2); b != nil {
		off := addr - b.base
		binary.BigEndian.PutUint16(b.data[off:off+2], value)
		return true
	}
	return false
}

func (bus *MachineBus) Read8WithFault(addr uint32) (uint8, bool) {
	if region := bus.findIORegion(addr); region != nil {
		if region.onRead == nil {
			return 0, true
		}
		return uint8(region.onRead(addr)), true
	}
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if b := bus.findBank(addr, 1); b != nil {
		return b.data[addr-b.base], true
	}
	return 0, false
}

func (bus *MachineBus) Write8WithFault(addr uint32, value uint8) bool {
	if region := bus.findIORegion(addr); region != nil {
		if region.onWrite != nil {
			region.onWrite(addr, uint32(value))
		}
		return true
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if b := bus.findBank(addr, 1); b != nil {
		b.data[addr-b.base] = value
		return true
	}
	return false
}

func (bus *MachineBus) Read32(addr uint32) uint32 {
	v, _ := bus.Read32WithFault(addr)
	return v
}

func (bus *MachineBus) Write32(addr uint32, value uint32) {
	bus.Write32WithFault(addr, value)
}

func (bus *MachineBus) Read16(addr uint32) uint16 {
	v, _ := bus.Read16WithFault(addr)
	return v
}

func (bus *MachineBus) Write16(addr uint32, value uint16) {
	bus.Write16WithFault(addr, value)
}

func (bus *MachineBus) Read8(addr uint32) uint8 {
	v, _ := bus.Read8WithFault(addr)
	return v
}

func (bus *MachineBus) Write8(addr uint32, value uint8) {
	bus.Write8WithFault(addr, value)
}

// ReadPhys copies len(p) bytes of RAM at physical address pa into p.
// Block transfers never touch I/O regions.
func (bus *MachineBus) ReadPhys(pa uint32, p []byte) error {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	b := bus.findBank(pa, uint32(len(p)))
	if b == nil {
		return fmt.Errorf("machine: read 0x%08X+0x%X outside RAM", pa, len(p))
	}
	copy(p, b.data[pa-b.base:])
	return nil
}

// WritePhys copies p into RAM at physical address pa.
func (bus *MachineBus) WritePhys(pa uint32, p []byte) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	b := bus.findBank(pa, uint32(len(p)))
	if b == nil {
		return fmt.Errorf("machine: write 0x%08X+0x%X outside RAM", pa, len(p))
	}
	copy(b.data[pa-b.base:], p)
	return nil
}

func (bus *MachineBus) Reset() {
	/*
		Reset clears every RAM bank. I/O mappings are kept.
	*/
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for _, b := range bus.banks {
		clear(b.data)
	}
}
