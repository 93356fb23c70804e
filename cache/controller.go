// controller.go - Cache control unit for the Broadway L1 and L2 caches

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
controller.go - Cache Control Unit

The application CPU and the I/O coprocessor share physical memory but not
coherency: the coprocessor reads RAM directly and never sees lines that sit
dirty in the CPU's data cache. Every buffer crossing that boundary goes
through the range operations here.

Operation families:

    Enable/Disable     L1 data, L1 instruction and L2. A sync precedes each change.
    Lock/Unlock        Freeze contents. Hits are still served, misses go to the next level.
    FlashInvalidate    Drop an entire L1 in one HID0 write. Dirty data is lost.
    Range operations   32-byte aligned start, length a multiple of 32, never adjusted.
    EnhanceL2          One-shot L2 tuning, run with external interrupts disabled.

Flush and Store variants end with a sync so the write-backs are visible to
other bus masters on return. The NoSync variants leave that barrier to the
caller.
*/

package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// ErrMisaligned is matched by every *AlignmentError.
var ErrMisaligned = errors.New("cache: range not line aligned")

// AlignmentError reports a range operation whose start or length is not a
// multiple of the cache line size.
type AlignmentError struct {
	Op     string
	Start  uint32
	Length uint32
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("cache: %s(0x%08X, 0x%X): start and length must be multiples of %d", e.Op, e.Start, e.Length, LINE_SIZE)
}

func (e *AlignmentError) Is(target error) bool {
	return target == ErrMisaligned
}

// Range is an effective address window.
type Range struct {
	Start  uint32
	Length uint32
}

type Config struct {
	// L2InvalidatePolls bounds the wait for L2CR[L2IP] to clear.
	// Zero waits forever.
	L2InvalidatePolls uint64

	// EnhanceFlush lists the windows written back before the L2 is
	// reconfigured. There is no L2-only flush, so these cover all of RAM.
	EnhanceFlush []Range
}

func DefaultConfig() Config {
	return Config{
		L2InvalidatePolls: 1 << 20,
		EnhanceFlush: []Range{
			{Start: 0x80000000, Length: 0x01800000}, // MEM1, cached
			{Start: 0x90000000, Length: 0x04000000}, // MEM2, cached
		},
	}
}

type Controller struct {
	core Core
	cfg  Config
}

func NewController(core Core, cfg Config) *Controller {
	return &Controller{core: core, cfg: cfg}
}

func (c *Controller) setSPR(spr, bits uint32) {
	c.core.MoveToSPR(spr, c.core.MoveFromSPR(spr)|bits)
}

func (c *Controller) clearSPR(spr, bits uint32) {
	c.core.MoveToSPR(spr, c.core.MoveFromSPR(spr)&^bits)
}

func (c *Controller) EnableData() {
	c.core.Sync()
	c.setSPR(SPR_HID0, HID0_DCE)
	glog.V(2).Info("cache: d-cache enabled")
}

func (c *Controller) DisableData() {
	c.core.Sync()
	c.clearSPR(SPR_HID0, HID0_DCE)
	glog.V(2).Info("cache: d-cache disabled")
}

func (c *Controller) EnableInstruction() {
	c.core.Sync()
	c.core.Isync()
	c.setSPR(SPR_HID0, HID0_ICE)
	glog.V(2).Info("cache: i-cache enabled")
}

func (c *Controller) DisableInstruction() {
	c.core.Sync()
	c.core.Isync()
	c.clearSPR(SPR_HID0, HID0_ICE)
	glog.V(2).Info("cache: i-cache disabled")
}

func (c *Controller) EnableL2() {
	c.core.Sync()
	c.setSPR(SPR_L2CR, L2CR_L2E)
	glog.V(2).Info("cache: L2 enabled")
}

func (c *Controller) DisableL2() {
	c.core.Sync()
	c.clearSPR(SPR_L2CR, L2CR_L2E)
	c.core.Sync()
	glog.V(2).Info("cache: L2 disabled")
}

func (c *Controller) LockData() {
	c.core.Sync()
	c.setSPR(SPR_HID0, HID0_DLOCK)
}

func (c *Controller) UnlockData() {
	c.core.Sync()
	c.clearSPR(SPR_HID0, HID0_DLOCK)
}

func (c *Controller) LockInstruction() {
	c.core.Isync()
	c.setSPR(SPR_HID0, HID0_ILOCK)
}

func (c *Controller) UnlockInstruction() {
	c.core.Isync()
	c.clearSPR(SPR_HID0, HID0_ILOCK)
}

// FlashInvalidateData drops every d-cache line, dirty or not.
func (c *Controller) FlashInvalidateData() {
	c.setSPR(SPR_HID0, HID0_DCFI)
	glog.V(2).Info("cache: d-cache flash invalidated")
}

// FlashInvalidateInstruction drops every i-cache block. Fetches miss while
// the invalidate is in progress.
func (c *Controller) FlashInvalidateInstruction() {
	c.setSPR(SPR_HID0, HID0_ICFI)
	glog.V(2).Info("cache: i-cache flash invalidated")
}

// InvalidateL2 performs the L2 global invalidate. The L2 is left disabled.
func (c *Controller) InvalidateL2(ctx context.Context) error {
	c.DisableL2()
	c.setSPR(SPR_L2CR, L2CR_L2I)
	err := mmio.Poll(ctx, c.cfg.L2InvalidatePolls, func() bool {
		return c.core.MoveFromSPR(SPR_L2CR)&L2CR_L2IP == 0
	})
	c.clearSPR(SPR_L2CR, L2CR_L2I)
	if err != nil {
		return fmt.Errorf("cache: L2 global invalidate: %w", err)
	}
	glog.V(2).Info("cache: L2 invalidated")
	return nil
}

func checkRange(op string, start, length uint32) error {
	if start&LINE_MASK != 0 || length&LINE_MASK != 0 {
		return &AlignmentError{Op: op, Start: start, Length: length}
	}
	return nil
}

func (c *Controller) eachLine(start, length uint32, line func(ea uint32)) {
	for off := uint32(0); off < length; off += LINE_SIZE {
		line(start + off)
	}
}

// InvalidateRange discards the d-cache lines of [start, start+length)
// without writing them back.
func (c *Controller) InvalidateRange(start, length uint32) error {
	if err := checkRange("InvalidateRange", start, length); err != nil {
		return err
	}
	c.eachLine(start, length, c.core.InvalidateLine)
	return nil
}

// FlushRange writes back and invalidates [start, start+length), then syncs.
func (c *Controller) FlushRange(start, length uint32) error {
	if err := c.FlushRangeNoSync(start, length); err != nil {
		return err
	}
	c.core.Sync()
	return nil
}

func (c *Controller) FlushRangeNoSync(start, length uint32) error {
	if err := checkRange("FlushRange", start, length); err != nil {
		return err
	}
	c.eachLine(start, length, c.core.FlushLine)
	glog.V(2).Infof("cache: flushed 0x%08X+0x%X", start, length)
	return nil
}

// StoreRange writes back [start, start+length) keeping the lines valid,
// then syncs.
func (c *Controller) StoreRange(start, length uint32) error {
	if err := c.StoreRangeNoSync(start, length); err != nil {
		return err
	}
	c.core.Sync()
	return nil
}

func (c *Controller) StoreRangeNoSync(start, length uint32) error {
	if err := checkRange("StoreRange", start, length); err != nil {
		return err
	}
	c.eachLine(start, length, c.core.StoreLine)
	return nil
}

// InvalidateInstructionRange discards the i-cache blocks of a range so
// freshly written code is fetched from memory.
func (c *Controller) InvalidateInstructionRange(start, length uint32) error {
	if err := checkRange("InvalidateInstructionRange", start, length); err != nil {
		return err
	}
	c.eachLine(start, length, c.core.InvalidateInstructionLine)
	c.core.Sync()
	c.core.Isync()
	return nil
}

// InvalidateInstructionBlock discards the i-cache block at ea if resident.
func (c *Controller) InvalidateInstructionBlock(ea uint32) error {
	if err := checkRange("InvalidateInstructionBlock", ea, 0); err != nil {
		return err
	}
	c.core.InvalidateInstructionLine(ea)
	c.core.Sync()
	c.core.Isync()
	return nil
}

// disableInterrupts clears MSR[EE] and returns the previous MSR.
func (c *Controller) disableInterrupts() uint32 {
	msr := c.core.MoveFromMSR()
	c.core.MoveToMSR(msr &^ MSR_EE)
	return msr
}

func (c *Controller) restoreInterrupts(level uint32) {
	if level&MSR_EE != 0 {
		c.core.MoveToMSR(c.core.MoveFromMSR() | MSR_EE)
	}
}

// EnhanceL2 switches the L2 to 64-byte fetch mode with dual castout buffers
// and 2-deep miss-under-miss. HID4 and L2CR are shared and not reentrant,
// so the whole sequence runs with external interrupts disabled. It reports
// false when the core has no HID4 access.
func (c *Controller) EnhanceL2(ctx context.Context) (bool, error) {
	level := c.disableInterrupts()
	defer c.restoreInterrupts(level)

	hid4 := c.core.MoveFromSPR(SPR_HID4)
	if hid4&HID4_H4A == 0 {
		glog.V(1).Infof("cache: HID4 0x%08X has no H4A, L2 left alone", hid4)
		return false, nil
	}

	for _, r := range c.cfg.EnhanceFlush {
		if err := c.FlushRangeNoSync(r.Start, r.Length); err != nil {
			return false, fmt.Errorf("cache: enhance L2: %w", err)
		}
	}
	if err := c.InvalidateL2(ctx); err != nil {
		return false, fmt.Errorf("cache: enhance L2: %w", err)
	}
	c.core.MoveToSPR(SPR_HID4, hid4|HID4_ENHANCE)
	c.EnableL2()
	glog.V(2).Infof("cache: L2 enhanced, HID4 0x%08X", hid4|HID4_ENHANCE)
	return true, nil
}
