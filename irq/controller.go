// controller.go - Interrupt controller: priority arbitration and handler dispatch

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
controller.go - Interrupt Controller

Every external interrupt arrives through one exception vector. Dispatch
works out which line caused it and calls the handler registered for that
line.

Dispatch sequence:

    1. Read the PI cause and mask. Nothing pending, or nothing unmasked,
       counts as spurious and runs no handler.
    2. For each device class flagged in the cause, read the device's own
       status register and translate its bits into IM_* bits. PI-internal
       causes translate directly.
    3. Drop lines still being serviced or serviced by the previous call.
    4. Walk the priority table; the first group with a pending line wins,
       and within the group the lowest IRQ number.
    5. Call the handler, or count the interrupt as dropped.

Debounce:

    cur   holds the line whose handler is running.
    prev  holds the line serviced by the last call, empty if it serviced
          nothing. A level-triggered line is therefore re-dispatched only
          after a call that found nothing new, and never while its own
          handler runs.

The handler table is a fixed array indexed by IRQ. Registration and
dispatch share a mutex; handlers are called with it released so they may
register, unregister or dispatch again.
*/

package irq

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// Handler services one interrupt line.
type Handler interface {
	HandleIRQ(irq IRQ, ctx any)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(irq IRQ, ctx any)

func (f HandlerFunc) HandleIRQ(irq IRQ, ctx any) {
	f(irq, ctx)
}

// Entry is one slot of the handler table.
type Entry struct {
	Handler Handler
	Context any
}

type Controller struct {
	bus      mmio.Bus
	layout   Layout
	priority [PRIORITY_SLOTS]uint32

	mu       sync.Mutex
	handlers [IRQ_MAX]Entry
	prev     uint32
	cur      uint32

	spurious atomic.Uint64
	dropped  atomic.Uint64
	serviced atomic.Uint64
}

func NewController(bus mmio.Bus, layout Layout) *Controller {
	return &Controller{bus: bus, layout: layout, priority: PriorityTable(layout)}
}

func (c *Controller) Layout() Layout {
	return c.layout
}

// Priority returns the arbitration table fixed at construction.
func (c *Controller) Priority() [PRIORITY_SLOTS]uint32 {
	return c.priority
}

// Register installs h for irq and returns the entry it replaced.
func (c *Controller) Register(irq IRQ, h Handler, ctx any) (Entry, error) {
	if irq >= IRQ_MAX {
		return Entry{}, fmt.Errorf("irq: %d out of range", irq)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.handlers[irq]
	c.handlers[irq] = Entry{Handler: h, Context: ctx}
	glog.V(2).Infof("irq: handler registered for %d", irq)
	return old, nil
}

// Unregister removes the handler for irq and returns it.
func (c *Controller) Unregister(irq IRQ) (Entry, error) {
	return c.Register(irq, nil, nil)
}

// Spurious counts exceptions with no unmasked cause.
func (c *Controller) Spurious() uint64 { return c.spurious.Load() }

// Dropped counts interrupts selected for dispatch that had no handler.
func (c *Controller) Dropped() uint64 { return c.dropped.Load() }

// Serviced counts handler invocations.
func (c *Controller) Serviced() uint64 { return c.serviced.Load() }

// Masks returns the debounce state.
func (c *Controller) Masks() (prev, cur uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prev, c.cur
}

// pending reads the cause registers and returns the aggregated IM_* bits.
// ok is false for a spurious exception.
func (c *Controller) pending() (uint32, bool) {
	cause := c.bus.Read32(c.layout.PI+PI_INTSR) &^ PI_CAUSE_RESERVED
	enabled := c.bus.Read32(c.layout.PI + PI_INTMR)
	if cause == 0 || cause&enabled == 0 {
		return 0, false
	}

	var agg uint32
	set := func(cond bool, im uint32) {
		if cond {
			agg |= im
		}
	}

	if cause&PI_CAUSE_MEM != 0 {
		st := c.bus.Read16(c.layout.MEM + MI_INTSR)
		set(st&MI_MEM0 != 0, IM_MEM0)
		set(st&MI_MEM1 != 0, IM_MEM1)
		set(st&MI_MEM2 != 0, IM_MEM2)
		set(st&MI_MEM3 != 0, IM_MEM3)
		set(st&MI_MEMADDRESS != 0, IM_MEMADDRESS)
	}
	if cause&PI_CAUSE_DSP != 0 {
		st := c.bus.Read16(c.layout.DSP + DSP_CSR)
		set(st&DSP_CSR_AIDINT != 0, IM_DSP_AI)
		set(st&DSP_CSR_ARINT != 0, IM_DSP_ARAM)
		set(st&DSP_CSR_DSPINT != 0, IM_DSP_DSP)
	}
	if cause&PI_CAUSE_AI != 0 {
		st := c.bus.Read32(c.layout.AI + AI_CR)
		set(st&AI_CR_AIINT != 0, IM_AI)
	}
	if cause&PI_CAUSE_EXI != 0 {
		exi := [3][3]uint32{
			{IM_EXI0_EXI, IM_EXI0_TC, IM_EXI0_EXT},
			{IM_EXI1_EXI, IM_EXI1_TC, IM_EXI1_EXT},
			{IM_EXI2_EXI, IM_EXI2_TC, 0}, // channel 2 has no external line
		}
		for ch, im := range exi {
			st := c.bus.Read32(c.layout.EXI + uint32(ch)*EXI_STRIDE + EXI_CSR)
			set(st&EXI_CSR_EXIINT != 0, im[0])
			set(st&EXI_CSR_TCINT != 0, im[1])
			set(st&EXI_CSR_EXTINT != 0, im[2])
		}
	}

	set(cause&PI_CAUSE_ERROR != 0, IM_PI_ERROR)
	set(cause&PI_CAUSE_RSW != 0, IM_PI_RSW)
	set(cause&PI_CAUSE_DI != 0, IM_PI_DI)
	set(cause&PI_CAUSE_SI != 0, IM_PI_SI)
	set(cause&PI_CAUSE_VI != 0, IM_PI_VI)
	set(cause&PI_CAUSE_PETOKEN != 0, IM_PI_PETOKEN)
	set(cause&PI_CAUSE_PEFINISH != 0, IM_PI_PEFINISH)
	set(cause&PI_CAUSE_CP != 0, IM_PI_CP)
	set(cause&PI_CAUSE_DEBUG != 0, IM_PI_DEBUG)
	set(cause&PI_CAUSE_HSP != 0, IM_PI_HSP)
	set(c.layout.RVL && cause&PI_CAUSE_ACR != 0, IM_PI_ACR)
	return agg, true
}

// arbitrate picks the winning line from pending.
func (c *Controller) arbitrate(pending uint32) (IRQ, bool) {
	for _, group := range c.priority {
		if hit := pending & group; hit != 0 {
			return IRQ(mmio.Cntlzw(hit)), true
		}
	}
	return 0, false
}

// Dispatch services at most one interrupt and reports which line it
// selected. ok is false when the exception was spurious or debounced.
func (c *Controller) Dispatch() (irq IRQ, ok bool) {
	agg, valid := c.pending()
	if !valid {
		c.spurious.Add(1)
		glog.V(2).Info("irq: spurious interrupt")
		return 0, false
	}

	c.mu.Lock()
	pending := agg &^ (c.prev | c.cur)
	irq, ok = c.arbitrate(pending)
	if !ok {
		c.prev = 0
		c.mu.Unlock()
		return 0, false
	}
	entry := c.handlers[irq]
	if entry.Handler == nil {
		c.prev = 0
		c.mu.Unlock()
		c.dropped.Add(1)
		glog.V(1).Infof("irq: no handler for %d, dropped", irq)
		return irq, true
	}
	bit := mask(irq)
	c.cur |= bit
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cur &^= bit
		c.prev = bit
		c.mu.Unlock()
	}()

	entry.Handler.HandleIRQ(irq, entry.Context)
	c.serviced.Add(1)
	return irq, true
}
