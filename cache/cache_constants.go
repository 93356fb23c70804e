// cache_constants.go - Broadway cache and processor register constants

package cache

// Special purpose register numbers.
const (
	SPR_PVR  = 287
	SPR_HID2 = 920
	SPR_HID0 = 1008
	SPR_HID4 = 1011
	SPR_L2CR = 1017
)

// HID0 cache control bits.
const (
	HID0_ICE   = 0x00008000 // i-cache enable
	HID0_DCE   = 0x00004000 // d-cache enable
	HID0_ILOCK = 0x00002000 // i-cache lock
	HID0_DLOCK = 0x00001000 // d-cache lock
	HID0_ICFI  = 0x00000800 // i-cache flash invalidate
	HID0_DCFI  = 0x00000400 // d-cache flash invalidate
)

// L2CR bits.
const (
	L2CR_L2E  = 0x80000000 // enable
	L2CR_L2I  = 0x00200000 // global invalidate
	L2CR_L2IP = 0x00000001 // invalidate in progress
)

// HID4 bits.
const (
	HID4_H4A     = 0x80000000 // HID4 access, set on Broadway
	HID4_L2FM    = 0x20000000 // 64-byte L2 fetch mode
	HID4_BCO     = 0x04000000 // dual castout buffers
	HID4_L2MUM   = 0x00200000 // 2-deep miss-under-miss
	HID4_ENHANCE = HID4_L2FM | HID4_BCO | HID4_L2MUM
)

const MSR_EE = 0x00008000

const (
	LINE_SIZE = 32
	LINE_MASK = LINE_SIZE - 1

	// Reset values of the simulated core.
	BROADWAY_PVR       = 0x00087102
	BROADWAY_HID0      = HID0_ICE | HID0_DCE
	BROADWAY_HID4      = 0x83900000
	DEFAULT_L2IP_POLLS = 8
)
