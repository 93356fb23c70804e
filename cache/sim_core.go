// sim_core.go - Simulated Broadway core for running the HAL off-target

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
sim_core.go - Simulated Broadway Core

SimCore implements Core on top of a physical memory Backing so the cache
control unit, and everything built on it, can run on a host. It models the
parts of the processor that decide what another bus master observes:

    L1 data cache       32-byte write-back lines, write-allocate, lock, flash invalidate.
    Posted write-backs  dcbf/dcbst data reaches memory only at the next sync.
    L1 instruction      A resident-block set, enough to observe icbi and flash invalidate.
    L2CR                L2IP stays set for a configurable number of reads after L2I.
    MSR                 EE transitions 0 -> 1 call the interrupt hook.

The L2 itself holds no data; its control state is tracked in L2CR and HID4.

Memory is reached through ReadAt/WriteAt with effective addresses. The
cached window (0x80000000) goes through the d-cache while it is enabled,
the physical and uncached windows go straight to the backing.
*/

package cache

import (
	"sync"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// Backing is the physical memory below the caches.
type Backing interface {
	ReadPhys(pa uint32, p []byte) error
	WritePhys(pa uint32, p []byte) error
}

// Op is one entry of the operation log. Consecutive line operations of the
// same kind on ascending lines are merged: Arg is the first effective
// address and N the number of lines. For mtspr Arg is the SPR and N the
// value written, for mtmsr N is the value written.
type Op struct {
	Name string
	Arg  uint32
	N    uint32
}

type SimConfig struct {
	PVR  uint32
	HID0 uint32
	HID4 uint32
	MSR  uint32

	// L2InvalidatePolls is how many L2CR reads report L2IP after a global
	// invalidate is started.
	L2InvalidatePolls int

	// MaxOps bounds the operation log; the older half is discarded when it
	// fills. Zero keeps everything.
	MaxOps int
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		PVR:               BROADWAY_PVR,
		HID0:              BROADWAY_HID0,
		HID4:              BROADWAY_HID4,
		MSR:               MSR_EE,
		L2InvalidatePolls: DEFAULT_L2IP_POLLS,
		MaxOps:            1 << 16,
	}
}

type simLine struct {
	data  [LINE_SIZE]byte
	dirty bool
}

type postedWrite struct {
	pa   uint32
	data [LINE_SIZE]byte
}

type SimCore struct {
	mu      sync.Mutex
	mem     Backing
	cfg     SimConfig
	spr     map[uint32]uint32
	msr     uint32
	lines   map[uint32]*simLine // keyed by physical line address
	iblocks map[uint32]struct{}
	posted  []postedWrite
	l2ip    int
	ops     []Op
	onEE    func()
}

func NewSimCore(mem Backing, cfg SimConfig) *SimCore {
	s := &SimCore{
		mem:     mem,
		cfg:     cfg,
		lines:   make(map[uint32]*simLine),
		iblocks: make(map[uint32]struct{}),
	}
	s.reset()
	return s
}

func (s *SimCore) reset() {
	s.spr = map[uint32]uint32{
		SPR_PVR:  s.cfg.PVR,
		SPR_HID0: s.cfg.HID0,
		SPR_HID2: 0,
		SPR_HID4: s.cfg.HID4,
		SPR_L2CR: 0,
	}
	s.msr = s.cfg.MSR
	clear(s.lines)
	clear(s.iblocks)
	s.posted = nil
	s.l2ip = 0
	s.ops = nil
}

// Reset returns the core to its power-on state. Dirty lines are lost.
func (s *SimCore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// OnInterruptsEnabled installs fn to run whenever MSR[EE] goes from clear to
// set. fn runs on the caller of MoveToMSR, after the core is unlocked.
func (s *SimCore) OnInterruptsEnabled(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEE = fn
}

// Ops returns a copy of the operation log.
func (s *SimCore) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

func (s *SimCore) ClearOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

func (s *SimCore) record(name string, arg, n uint32) {
	if s.cfg.MaxOps > 0 && len(s.ops) >= s.cfg.MaxOps {
		s.ops = append(s.ops[:0], s.ops[len(s.ops)/2:]...)
	}
	s.ops = append(s.ops, Op{Name: name, Arg: arg, N: n})
}

func (s *SimCore) recordLine(name string, ea uint32) {
	ea &^= LINE_MASK
	if k := len(s.ops); k > 0 {
		last := &s.ops[k-1]
		if last.Name == name && last.Arg+last.N*LINE_SIZE == ea {
			last.N++
			return
		}
	}
	s.record(name, ea, 1)
}

func (s *SimCore) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("sync", 0, 0)
	for _, w := range s.posted {
		if err := s.mem.WritePhys(w.pa, w.data[:]); err != nil {
			glog.Warningf("simcore: write-back to 0x%08X dropped: %v", w.pa, err)
		}
	}
	s.posted = s.posted[:0]
}

func (s *SimCore) Isync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("isync", 0, 0)
}

func (s *SimCore) MoveFromSPR(spr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.spr[spr]
	if spr == SPR_L2CR && s.l2ip > 0 {
		s.l2ip--
		v |= L2CR_L2IP
	}
	return v
}

func (s *SimCore) MoveToSPR(spr uint32, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("mtspr", spr, v)
	switch spr {
	case SPR_PVR:
		return
	case SPR_HID0:
		if v&HID0_DCFI != 0 {
			clear(s.lines)
			v &^= HID0_DCFI
		}
		if v&HID0_ICFI != 0 {
			clear(s.iblocks)
			v &^= HID0_ICFI
		}
	case SPR_L2CR:
		if v&L2CR_L2I != 0 && s.spr[SPR_L2CR]&L2CR_L2I == 0 {
			s.l2ip = s.cfg.L2InvalidatePolls
		}
		v &^= L2CR_L2IP
	}
	s.spr[spr] = v
}

func (s *SimCore) MoveFromMSR() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msr
}

func (s *SimCore) MoveToMSR(v uint32) {
	s.mu.Lock()
	s.record("mtmsr", 0, v)
	enabled := s.msr&MSR_EE == 0 && v&MSR_EE != 0
	s.msr = v
	hook := s.onEE
	s.mu.Unlock()

	if enabled && hook != nil {
		hook()
	}
}

// InterruptsEnabled reports MSR[EE].
func (s *SimCore) InterruptsEnabled() bool {
	return s.MoveFromMSR()&MSR_EE != 0
}

func (s *SimCore) post(pa uint32, l *simLine) {
	s.posted = append(s.posted, postedWrite{pa: pa, data: l.data})
	l.dirty = false
}

func (s *SimCore) FlushLine(ea uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLine("dcbf", ea)
	pa := mmio.Physical(ea) &^ LINE_MASK
	if l, ok := s.lines[pa]; ok {
		if l.dirty {
			s.post(pa, l)
		}
		delete(s.lines, pa)
	}
}

func (s *SimCore) StoreLine(ea uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLine("dcbst", ea)
	pa := mmio.Physical(ea) &^ LINE_MASK
	if l, ok := s.lines[pa]; ok && l.dirty {
		s.post(pa, l)
	}
}

func (s *SimCore) InvalidateLine(ea uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLine("dcbi", ea)
	delete(s.lines, mmio.Physical(ea)&^LINE_MASK)
}

func (s *SimCore) InvalidateInstructionLine(ea uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLine("icbi", ea)
	delete(s.iblocks, mmio.Physical(ea)&^LINE_MASK)
}

// FetchInstruction brings the block at ea into the i-cache, as an
// instruction fetch through the cached window would.
func (s *SimCore) FetchInstruction(ea uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mmio.IsCached(ea) && s.spr[SPR_HID0]&HID0_ICE != 0 && s.spr[SPR_HID0]&HID0_ILOCK == 0 {
		s.iblocks[mmio.Physical(ea)&^LINE_MASK] = struct{}{}
	}
}

func (s *SimCore) InstructionResident(ea uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.iblocks[mmio.Physical(ea)&^LINE_MASK]
	return ok
}

// LineState reports whether the d-cache holds the line at ea and whether
// it is dirty.
func (s *SimCore) LineState(ea uint32) (valid, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[mmio.Physical(ea)&^LINE_MASK]
	if !ok {
		return false, false
	}
	return true, l.dirty
}

// fill loads a line from memory. Write-backs still posted for the line are
// visible to this core even though no other master sees them yet.
func (s *SimCore) fill(pa uint32) (*simLine, error) {
	l := &simLine{}
	if err := s.mem.ReadPhys(pa, l.data[:]); err != nil {
		return nil, err
	}
	for _, w := range s.posted {
		if w.pa == pa {
			l.data = w.data
		}
	}
	return l, nil
}

func (s *SimCore) access(ea uint32, p []byte, write bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(p) > 0 {
		n := LINE_SIZE - int(ea&LINE_MASK)
		if n > len(p) {
			n = len(p)
		}
		if err := s.accessLine(ea, p[:n], write); err != nil {
			return err
		}
		ea += uint32(n)
		p = p[n:]
	}
	return nil
}

func (s *SimCore) accessLine(ea uint32, p []byte, write bool) error {
	pa := mmio.Physical(ea)
	hid0 := s.spr[SPR_HID0]
	direct := !mmio.IsCached(ea) || hid0&HID0_DCE == 0

	key := pa &^ LINE_MASK
	l, hit := s.lines[key]
	if !direct && !hit && hid0&HID0_DLOCK != 0 {
		// Locked cache: misses go to memory and allocate nothing.
		direct = true
	}
	if direct {
		if write {
			return s.mem.WritePhys(pa, p)
		}
		return s.mem.ReadPhys(pa, p)
	}

	if !hit {
		var err error
		if l, err = s.fill(key); err != nil {
			return err
		}
		s.lines[key] = l
	}
	off := pa & LINE_MASK
	if write {
		copy(l.data[off:], p)
		l.dirty = true
	} else {
		copy(p, l.data[off:])
	}
	return nil
}

// ReadAt reads len(p) bytes at effective address ea as the CPU sees them.
func (s *SimCore) ReadAt(p []byte, ea uint32) error {
	return s.access(ea, p, false)
}

// WriteAt stores p at effective address ea as the CPU would.
func (s *SimCore) WriteAt(p []byte, ea uint32) error {
	return s.access(ea, p, true)
}
