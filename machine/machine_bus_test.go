package machine

import (
	"bytes"
	"errors"
	"testing"
)

func smallBus() *MachineBus {
	return NewMachineBus(Config{MEM1Size: 0x10000, MEM2Size: 0x10000})
}

func TestMachineBus_BigEndianRAM(t *testing.T) {
	bus := smallBus()
	bus.Write32(0x100, 0x11223344)

	if got := bus.Read8(0x100); got != 0x11 {
		t.Errorf("expected most significant byte first 0x11, got 0x%02X", got)
	}
	if got := bus.Read16(0x102); got != 0x3344 {
		t.Errorf("expected 0x3344, got 0x%04X", got)
	}

	bus.Write16(MEM2_BASE+0x20, 0xBEEF)
	if got := bus.Read32(MEM2_BASE + 0x20); got != 0xBEEF0000 {
		t.Errorf("expected 0xBEEF0000 in MEM2, got 0x%08X", got)
	}
}

func TestMachineBus_UnmappedFaults(t *testing.T) {
	bus := smallBus()

	if _, ok := bus.Read32WithFault(0x08000000); ok {
		t.Error("expected fault for read between banks")
	}
	if ok := bus.Write32WithFault(0x0000FFFE, 1); ok {
		t.Error("expected fault for word straddling the end of MEM1")
	}
	if got := bus.Read32(0x08000000); got != 0 {
		t.Errorf("expected unmapped read as zero, got 0x%08X", got)
	}
}

func TestMachineBus_MapIO(t *testing.T) {
	bus := smallBus()
	var lastAddr, lastVal uint32
	err := bus.MapIO(0x0D000000, 0x0D00000F,
		func(addr uint32) uint32 { return addr & 0xF },
		func(addr uint32, value uint32) { lastAddr, lastVal = addr, value })
	if err != nil {
		t.Fatal(err)
	}

	if got := bus.Read32(0x0D000008); got != 8 {
		t.Errorf("expected callback value 8, got %d", got)
	}
	bus.Write16(0x0D000004, 0x1234)
	if lastAddr != 0x0D000004 || lastVal != 0x1234 {
		t.Errorf("expected write 0x1234 at 0x0D000004, got 0x%X at 0x%08X", lastVal, lastAddr)
	}
	if _, ok := bus.Read32WithFault(0x0D000010); ok {
		t.Error("expected fault just past the region")
	}
}

func TestMachineBus_MapIOAcrossPages(t *testing.T) {
	bus := smallBus()
	reads := 0
	if err := bus.MapIO(0x0C0030F0, 0x0C003110, func(uint32) uint32 { reads++; return 0 }, nil); err != nil {
		t.Fatal(err)
	}
	bus.Read32(0x0C0030F0)
	bus.Read32(0x0C003110)
	if reads != 2 {
		t.Errorf("expected both pages to dispatch, got %d reads", reads)
	}
}

func TestMachineBus_Seal(t *testing.T) {
	bus := smallBus()
	bus.Seal()
	err := bus.MapIO(0x0D000000, 0x0D00000F, nil, nil)
	if !errors.Is(err, ErrSealed) {
		t.Errorf("expected ErrSealed, got %v", err)
	}
}

func TestMachineBus_PhysBlocks(t *testing.T) {
	bus := smallBus()
	payload := []byte("published block")
	if err := bus.WritePhys(MEM2_BASE+0x40, payload); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(payload))
	if err := bus.ReadPhys(MEM2_BASE+0x40, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}
	if err := bus.WritePhys(0xFFF0, make([]byte, 32)); err == nil {
		t.Error("expected error for block crossing the end of MEM1")
	}

	bus.Reset()
	if err := bus.ReadPhys(MEM2_BASE+0x40, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, make([]byte, len(payload))) {
		t.Errorf("expected zeroed RAM after reset, got %q", got)
	}
}
