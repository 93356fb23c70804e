// irq_constants.go - Interrupt numbers, masks and source register layout

package irq

// IRQ is an interrupt number. Its mask bit is 0x80000000 >> IRQ.
type IRQ uint32

const (
	IRQ_MEM0        IRQ = 0
	IRQ_MEM1        IRQ = 1
	IRQ_MEM2        IRQ = 2
	IRQ_MEM3        IRQ = 3
	IRQ_MEMADDRESS  IRQ = 4
	IRQ_DSP_AI      IRQ = 5
	IRQ_DSP_ARAM    IRQ = 6
	IRQ_DSP_DSP     IRQ = 7
	IRQ_AI          IRQ = 8
	IRQ_EXI0_EXI    IRQ = 9
	IRQ_EXI0_TC     IRQ = 10
	IRQ_EXI0_EXT    IRQ = 11
	IRQ_EXI1_EXI    IRQ = 12
	IRQ_EXI1_TC     IRQ = 13
	IRQ_EXI1_EXT    IRQ = 14
	IRQ_EXI2_EXI    IRQ = 15
	IRQ_EXI2_TC     IRQ = 16
	IRQ_PI_CP       IRQ = 17
	IRQ_PI_PETOKEN  IRQ = 18
	IRQ_PI_PEFINISH IRQ = 19
	IRQ_PI_SI       IRQ = 20
	IRQ_PI_DI       IRQ = 21
	IRQ_PI_RSW      IRQ = 22
	IRQ_PI_ERROR    IRQ = 23
	IRQ_PI_VI       IRQ = 24
	IRQ_PI_DEBUG    IRQ = 25
	IRQ_PI_HSP      IRQ = 26
	IRQ_PI_ACR      IRQ = 27 // Wii only
	IRQ_MAX             = 32
)

func mask(irq IRQ) uint32 {
	return 0x80000000 >> irq
}

const (
	IM_MEM0       = 0x80000000 >> IRQ_MEM0
	IM_MEM1       = 0x80000000 >> IRQ_MEM1
	IM_MEM2       = 0x80000000 >> IRQ_MEM2
	IM_MEM3       = 0x80000000 >> IRQ_MEM3
	IM_MEMADDRESS = 0x80000000 >> IRQ_MEMADDRESS
	IM_MEM        = IM_MEM0 | IM_MEM1 | IM_MEM2 | IM_MEM3 | IM_MEMADDRESS

	IM_DSP_AI   = 0x80000000 >> IRQ_DSP_AI
	IM_DSP_ARAM = 0x80000000 >> IRQ_DSP_ARAM
	IM_DSP_DSP  = 0x80000000 >> IRQ_DSP_DSP
	IM_DSP      = IM_DSP_AI | IM_DSP_ARAM | IM_DSP_DSP

	IM_AI = 0x80000000 >> IRQ_AI

	IM_EXI0_EXI = 0x80000000 >> IRQ_EXI0_EXI
	IM_EXI0_TC  = 0x80000000 >> IRQ_EXI0_TC
	IM_EXI0_EXT = 0x80000000 >> IRQ_EXI0_EXT
	IM_EXI0     = IM_EXI0_EXI | IM_EXI0_TC | IM_EXI0_EXT
	IM_EXI1_EXI = 0x80000000 >> IRQ_EXI1_EXI
	IM_EXI1_TC  = 0x80000000 >> IRQ_EXI1_TC
	IM_EXI1_EXT = 0x80000000 >> IRQ_EXI1_EXT
	IM_EXI1     = IM_EXI1_EXI | IM_EXI1_TC | IM_EXI1_EXT
	IM_EXI2_EXI = 0x80000000 >> IRQ_EXI2_EXI
	IM_EXI2_TC  = 0x80000000 >> IRQ_EXI2_TC
	IM_EXI2     = IM_EXI2_EXI | IM_EXI2_TC
	IM_EXI      = IM_EXI0 | IM_EXI1 | IM_EXI2

	IM_PI_CP       = 0x80000000 >> IRQ_PI_CP
	IM_PI_PETOKEN  = 0x80000000 >> IRQ_PI_PETOKEN
	IM_PI_PEFINISH = 0x80000000 >> IRQ_PI_PEFINISH
	IM_PI_SI       = 0x80000000 >> IRQ_PI_SI
	IM_PI_DI       = 0x80000000 >> IRQ_PI_DI
	IM_PI_RSW      = 0x80000000 >> IRQ_PI_RSW
	IM_PI_ERROR    = 0x80000000 >> IRQ_PI_ERROR
	IM_PI_VI       = 0x80000000 >> IRQ_PI_VI
	IM_PI_DEBUG    = 0x80000000 >> IRQ_PI_DEBUG
	IM_PI_HSP      = 0x80000000 >> IRQ_PI_HSP
	IM_PI_ACR      = 0x80000000 >> IRQ_PI_ACR
	IM_PI          = IM_PI_CP | IM_PI_PETOKEN | IM_PI_PEFINISH | IM_PI_SI | IM_PI_DI | IM_PI_RSW | IM_PI_ERROR | IM_PI_VI | IM_PI_DEBUG | IM_PI_HSP | IM_PI_ACR
)

// Processor interface registers, relative to Layout.PI.
const (
	PI_INTSR = 0x00 // cause
	PI_INTMR = 0x04 // mask

	PI_CAUSE_RESERVED = 0x00010000 // reset switch state, not a cause
)

// PI cause bits.
const (
	PI_CAUSE_ERROR    = 0x0001
	PI_CAUSE_RSW      = 0x0002
	PI_CAUSE_DI       = 0x0004
	PI_CAUSE_SI       = 0x0008
	PI_CAUSE_EXI      = 0x0010
	PI_CAUSE_AI       = 0x0020
	PI_CAUSE_DSP      = 0x0040
	PI_CAUSE_MEM      = 0x0080
	PI_CAUSE_VI       = 0x0100
	PI_CAUSE_PETOKEN  = 0x0200
	PI_CAUSE_PEFINISH = 0x0400
	PI_CAUSE_CP       = 0x0800
	PI_CAUSE_DEBUG    = 0x1000
	PI_CAUSE_HSP      = 0x2000
	PI_CAUSE_ACR      = 0x4000
)

// Device status registers, byte offsets from their Layout base.
const (
	MI_INTSR   = 0x1E // 16-bit register 15
	DSP_CSR    = 0x0A // 16-bit register 5
	AI_CR      = 0x00
	EXI_STRIDE = 0x14 // five 32-bit registers per channel
	EXI_CSR    = 0x00
)

// Device status bits.
const (
	MI_MEM0       = 0x0001
	MI_MEM1       = 0x0002
	MI_MEM2       = 0x0004
	MI_MEM3       = 0x0008
	MI_MEMADDRESS = 0x0010

	DSP_CSR_AIDINT = 0x0008
	DSP_CSR_ARINT  = 0x0020
	DSP_CSR_DSPINT = 0x0080
	AI_CR_AIINT    = 0x0008
	EXI_CSR_EXIINT = 0x0002
	EXI_CSR_TCINT  = 0x0008
	EXI_CSR_EXTINT = 0x0800
)

const PRIORITY_SLOTS = 12
