// sources.go - Simulated interrupt source registers (PI, MI, DSP, AI, EXI)

package platform

import (
	"fmt"
	"sync"

	"github.com/intuitionamiga/IntuitionHAL/irq"
)

// PI causes that are not owned by a device status register.
var directCause = map[irq.IRQ]uint32{
	irq.IRQ_PI_CP:       irq.PI_CAUSE_CP,
	irq.IRQ_PI_PETOKEN:  irq.PI_CAUSE_PETOKEN,
	irq.IRQ_PI_PEFINISH: irq.PI_CAUSE_PEFINISH,
	irq.IRQ_PI_SI:       irq.PI_CAUSE_SI,
	irq.IRQ_PI_DI:       irq.PI_CAUSE_DI,
	irq.IRQ_PI_RSW:      irq.PI_CAUSE_RSW,
	irq.IRQ_PI_ERROR:    irq.PI_CAUSE_ERROR,
	irq.IRQ_PI_VI:       irq.PI_CAUSE_VI,
	irq.IRQ_PI_DEBUG:    irq.PI_CAUSE_DEBUG,
	irq.IRQ_PI_HSP:      irq.PI_CAUSE_HSP,
	irq.IRQ_PI_ACR:      irq.PI_CAUSE_ACR,
}

var exiBits = [3]uint32{irq.EXI_CSR_EXIINT, irq.EXI_CSR_TCINT, irq.EXI_CSR_EXTINT}

const (
	dspIntBits = irq.DSP_CSR_AIDINT | irq.DSP_CSR_ARINT | irq.DSP_CSR_DSPINT
	exiIntBits = irq.EXI_CSR_EXIINT | irq.EXI_CSR_TCINT | irq.EXI_CSR_EXTINT
)

// sources models the registers the interrupt controller reads. Device
// status bits are write-one-to-clear; the PI cause is recomputed from them
// after every change.
type sources struct {
	layout irq.Layout

	mu     sync.Mutex
	direct uint32 // PI-direct causes
	mask   uint32
	mi     uint16
	dsp    uint16
	ai     uint32
	exi    [3]uint32
}

func newSources(layout irq.Layout) *sources {
	return &sources{layout: layout, mask: 0xFFFF}
}

// set drives one line and reports whether any unmasked cause is pending
// afterwards.
func (s *sources) set(line irq.IRQ, on bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply16 := func(reg *uint16, bit uint16) {
		if on {
			*reg |= bit
		} else {
			*reg &^= bit
		}
	}
	apply32 := func(reg *uint32, bit uint32) {
		if on {
			*reg |= bit
		} else {
			*reg &^= bit
		}
	}

	switch {
	case line <= irq.IRQ_MEMADDRESS:
		apply16(&s.mi, irq.MI_MEM0<<(line-irq.IRQ_MEM0))
	case line == irq.IRQ_DSP_AI:
		apply16(&s.dsp, irq.DSP_CSR_AIDINT)
	case line == irq.IRQ_DSP_ARAM:
		apply16(&s.dsp, irq.DSP_CSR_ARINT)
	case line == irq.IRQ_DSP_DSP:
		apply16(&s.dsp, irq.DSP_CSR_DSPINT)
	case line == irq.IRQ_AI:
		apply32(&s.ai, irq.AI_CR_AIINT)
	case line >= irq.IRQ_EXI0_EXI && line <= irq.IRQ_EXI2_TC:
		n := line - irq.IRQ_EXI0_EXI
		apply32(&s.exi[n/3], exiBits[n%3])
	default:
		bit, ok := directCause[line]
		if !ok {
			return false, fmt.Errorf("platform: no source for interrupt %d", line)
		}
		if line == irq.IRQ_PI_ACR && !s.layout.RVL {
			return false, fmt.Errorf("platform: %s has no ACR interrupt", s.layout.Name)
		}
		apply32(&s.direct, bit)
	}
	return s.cause()&s.mask != 0, nil
}

// cause returns the PI cause register. Called with mu held.
func (s *sources) cause() uint32 {
	c := s.direct
	if s.mi != 0 {
		c |= irq.PI_CAUSE_MEM
	}
	if s.dsp&dspIntBits != 0 {
		c |= irq.PI_CAUSE_DSP
	}
	if s.ai&irq.AI_CR_AIINT != 0 {
		c |= irq.PI_CAUSE_AI
	}
	for _, st := range s.exi {
		if st&exiIntBits != 0 {
			c |= irq.PI_CAUSE_EXI
		}
	}
	return c
}

func (s *sources) asserted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause()&s.mask != 0
}

func (s *sources) registers() (cause, mask uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause(), s.mask
}

func (s *sources) readPI(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch addr - s.layout.PI {
	case irq.PI_INTSR:
		return s.cause()
	case irq.PI_INTMR:
		return s.mask
	}
	return 0
}

func (s *sources) writePI(addr uint32, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch addr - s.layout.PI {
	case irq.PI_INTSR:
		s.direct &^= value &^ irq.PI_CAUSE_RESERVED
	case irq.PI_INTMR:
		s.mask = value
	}
}

func (s *sources) readMI(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr-s.layout.MEM == irq.MI_INTSR {
		return uint32(s.mi)
	}
	return 0
}

func (s *sources) writeMI(addr uint32, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr-s.layout.MEM == irq.MI_INTSR {
		s.mi &^= uint16(value)
	}
}

func (s *sources) readDSP(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr-s.layout.DSP == irq.DSP_CSR {
		return uint32(s.dsp)
	}
	return 0
}

func (s *sources) writeDSP(addr uint32, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr-s.layout.DSP == irq.DSP_CSR {
		s.dsp &^= uint16(value) & dspIntBits
	}
}

func (s *sources) readAI(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr-s.layout.AI == irq.AI_CR {
		return s.ai
	}
	return 0
}

func (s *sources) writeAI(addr uint32, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr-s.layout.AI == irq.AI_CR {
		s.ai &^= value & irq.AI_CR_AIINT
	}
}

func (s *sources) exiChannel(addr uint32) (int, bool) {
	off := addr - s.layout.EXI
	ch := off / irq.EXI_STRIDE
	if ch >= uint32(len(s.exi)) || off%irq.EXI_STRIDE != irq.EXI_CSR {
		return 0, false
	}
	return int(ch), true
}

func (s *sources) readEXI(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.exiChannel(addr); ok {
		return s.exi[ch]
	}
	return 0
}

func (s *sources) writeEXI(addr uint32, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.exiChannel(addr); ok {
		s.exi[ch] &^= value & exiIntBits
	}
}
