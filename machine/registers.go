// registers.go - Physical memory map of the simulated platform

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
registers.go - Master Physical Address Map

This file is the reference for every region the simulated platform places
on the physical bus. The register layouts themselves live with the code that
drives them: ipc/ipc_constants.go for the IPC block, irq/irq_constants.go for
the interrupt sources, cache/cache_constants.go for the processor SPRs.

MEMORY MAP OVERVIEW
===================

Address Range           Size    Region              Constants File
---------------------------------------------------------------------------
0x00000000-0x017FFFFF   24MB    MEM1                machine_bus.go
0x0C003000-0x0C0030FF   256B    Processor Interface irq/irq_constants.go
0x0C004000-0x0C00407F   128B    Memory Interface    irq/irq_constants.go
0x0C005000-0x0C00503F   64B     DSP Interface       irq/irq_constants.go
0x0C006800-0x0C00683F   64B     EXI (GameCube)      irq/irq_constants.go
0x0C006C00-0x0C006C1F   32B     AI (GameCube)       irq/irq_constants.go
0x0D000000-0x0D00000F   16B     IPC                 ipc/ipc_constants.go
0x0D006800-0x0D00683F   64B     EXI (Wii)           irq/irq_constants.go
0x0D006C00-0x0D006C1F   32B     AI (Wii)            irq/irq_constants.go
0x10000000-0x13FFFFFF   64MB    MEM2                machine_bus.go

EFFECTIVE ADDRESS WINDOWS
=========================

The application CPU reaches physical memory through three windows. Only the
cached window goes through the L1/L2 model; the coprocessor always sees the
physical address.

0x00000000 | pa   physical
0x80000000 | pa   cached
0xC0000000 | pa   uncached

IPC SCRATCH
===========

The platform hands the top 1MB of MEM2 to ipc.Arena for control blocks and
published buffers. MEM2 is where the coprocessor expects them.
*/

package machine

const (
	IPC_ARENA_SIZE = 0x00100000
	IPC_ARENA_BASE = MEM2_BASE + MEM2_DEFAULT_SIZE - IPC_ARENA_SIZE

	IO_PI_BASE  = 0x0C003000
	IO_PI_END   = 0x0C0030FF
	IO_MI_BASE  = 0x0C004000
	IO_MI_END   = 0x0C00407F
	IO_DSP_BASE = 0x0C005000
	IO_DSP_END  = 0x0C00503F
	IO_IPC_BASE = 0x0D000000
	IO_IPC_END  = 0x0D00000F

	IO_EXI_GC_BASE  = 0x0C006800
	IO_EXI_RVL_BASE = 0x0D006800
	IO_EXI_SIZE     = 0x40
	IO_AI_GC_BASE   = 0x0C006C00
	IO_AI_RVL_BASE  = 0x0D006C00
	IO_AI_SIZE      = 0x20
)
