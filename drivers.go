// drivers.go - Default interrupt handlers installed by the console

package main

import (
	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

var piCauses = map[irq.IRQ]uint32{
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

var exiStatus = [3]uint32{irq.EXI_CSR_EXIINT, irq.EXI_CSR_TCINT, irq.EXI_CSR_EXTINT}

// ackDriver acknowledges an interrupt at its source the way a device
// driver would, so the same line can be raised again. The IPC line is
// left alone: its cause follows the coprocessor's Y1/Y2 bits.
type ackDriver struct {
	bus    mmio.Bus
	layout irq.Layout
	seen   func(irq.IRQ)
}

func (d *ackDriver) HandleIRQ(line irq.IRQ, ctx any) {
	l := d.layout
	switch {
	case line <= irq.IRQ_MEMADDRESS:
		d.bus.Write16(l.MEM+irq.MI_INTSR, irq.MI_MEM0<<(line-irq.IRQ_MEM0))
	case line == irq.IRQ_DSP_AI:
		d.bus.Write16(l.DSP+irq.DSP_CSR, irq.DSP_CSR_AIDINT)
	case line == irq.IRQ_DSP_ARAM:
		d.bus.Write16(l.DSP+irq.DSP_CSR, irq.DSP_CSR_ARINT)
	case line == irq.IRQ_DSP_DSP:
		d.bus.Write16(l.DSP+irq.DSP_CSR, irq.DSP_CSR_DSPINT)
	case line == irq.IRQ_AI:
		d.bus.Write32(l.AI+irq.AI_CR, irq.AI_CR_AIINT)
	case line >= irq.IRQ_EXI0_EXI && line <= irq.IRQ_EXI2_TC:
		n := uint32(line - irq.IRQ_EXI0_EXI)
		d.bus.Write32(l.EXI+(n/3)*irq.EXI_STRIDE+irq.EXI_CSR, exiStatus[n%3])
	case line == irq.IRQ_PI_ACR:
	default:
		d.bus.Write32(l.PI+irq.PI_INTSR, piCauses[line])
	}
	glog.V(1).Infof("intuitionhal: serviced %s", line)
	if d.seen != nil {
		d.seen(line)
	}
}

// installDrivers registers d for every line the layout can raise.
func installDrivers(c *irq.Controller, d *ackDriver) error {
	for line := irq.IRQ_MEM0; line <= irq.IRQ_PI_ACR; line++ {
		if line == irq.IRQ_PI_ACR && !c.Layout().RVL {
			continue
		}
		if _, err := c.Register(line, d, nil); err != nil {
			return err
		}
	}
	return nil
}
