// platform.go - The simulated Broadway/Starlet system, fully wired

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
platform.go - Platform Assembly

Builds one simulated console out of the HAL and its simulated hardware:

    machine.MachineBus    physical RAM and MMIO
    cache.SimCore         Broadway's caches and SPRs, backed by the bus
    cache.Controller      the cache control unit driving the core
    ipc.Arena             top of MEM2, reached through the cached window
    ipc.Channel           the IPC channel, flushing through the controller
    starlet.Starlet       the coprocessor behind the IPC registers
    irq.Controller        dispatch over the simulated source registers

Interrupt delivery follows the processor: an asserted, unmasked cause
takes the external-interrupt exception only while MSR[EE] is set. Taken
with EE clear it stays pending and is delivered when the core sets EE
again, which is what happens at the end of the L2 enhancement sequence.
EE is cleared for the duration of the dispatch, as on exception entry.

On the Wii layout the coprocessor's IPC interrupt line is routed to the
ACR cause.
*/

package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/cache"
	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/machine"
	"github.com/intuitionamiga/IntuitionHAL/starlet"
)

type Config struct {
	Layout  irq.Layout
	Memory  machine.Config
	Core    cache.SimConfig
	Cache   cache.Config
	IPC     ipc.Config
	Starlet starlet.Config
}

func DefaultConfig() Config {
	return Config{
		Layout:  irq.WiiLayout,
		Memory:  machine.DefaultConfig(),
		Core:    cache.DefaultSimConfig(),
		Cache:   cache.DefaultConfig(),
		IPC:     ipc.DefaultConfig(),
		Starlet: starlet.DefaultConfig(),
	}
}

type Platform struct {
	Bus     *machine.MachineBus
	Core    *cache.SimCore
	Cache   *cache.Controller
	Arena   *ipc.Arena
	Channel *ipc.Channel
	Starlet *starlet.Starlet
	STM     *starlet.STMResource
	IRQ     *irq.Controller

	sources *sources

	mu         sync.Mutex
	pending    bool
	exceptions uint64
	deferred   uint64
}

func New(cfg Config) (*Platform, error) {
	if cfg.Memory.MEM2Size < machine.IPC_ARENA_SIZE {
		return nil, fmt.Errorf("platform: MEM2 of 0x%X bytes cannot hold the IPC arena", cfg.Memory.MEM2Size)
	}
	p := &Platform{
		Bus:     machine.NewMachineBus(cfg.Memory),
		sources: newSources(cfg.Layout),
		STM:     starlet.NewSTMResource(),
	}
	p.Core = cache.NewSimCore(p.Bus, cfg.Core)
	p.Cache = cache.NewController(p.Core, cfg.Cache)

	arenaBase := machine.MEM2_BASE + cfg.Memory.MEM2Size - machine.IPC_ARENA_SIZE
	arena, err := ipc.NewArena(p.Core, arenaBase, machine.IPC_ARENA_SIZE)
	if err != nil {
		return nil, err
	}
	p.Arena = arena
	p.Channel = ipc.NewChannel(p.Bus, p.Cache, p.Arena, cfg.IPC)

	p.Starlet = starlet.New(p.Bus, cfg.Starlet)
	p.Starlet.Mount("/dev/stm", p.STM)
	if cfg.Layout.RVL {
		p.Starlet.SetInterrupt(func(asserted bool) {
			if err := p.drive(irq.IRQ_PI_ACR, asserted); err != nil {
				glog.Errorf("platform: IPC interrupt: %v", err)
			}
		})
	}

	p.IRQ = irq.NewController(p.Bus, cfg.Layout)
	p.Core.OnInterruptsEnabled(p.deliverPending)

	if err := p.mapIO(cfg.Layout); err != nil {
		return nil, err
	}
	p.Bus.Seal()
	return p, nil
}

func (p *Platform) mapIO(l irq.Layout) error {
	s := p.sources
	regions := []struct {
		start, end uint32
		read       func(uint32) uint32
		write      func(uint32, uint32)
	}{
		{machine.IO_IPC_BASE, machine.IO_IPC_END, p.Starlet.HandleRead, p.Starlet.HandleWrite},
		{l.PI, l.PI + machine.IO_PI_END - machine.IO_PI_BASE, s.readPI, s.writePI},
		{l.MEM, l.MEM + machine.IO_MI_END - machine.IO_MI_BASE, s.readMI, s.writeMI},
		{l.DSP, l.DSP + machine.IO_DSP_END - machine.IO_DSP_BASE, s.readDSP, s.writeDSP},
		{l.AI, l.AI + machine.IO_AI_SIZE - 1, s.readAI, s.writeAI},
		{l.EXI, l.EXI + machine.IO_EXI_SIZE - 1, s.readEXI, s.writeEXI},
	}
	for _, r := range regions {
		if err := p.Bus.MapIO(r.start, r.end, r.read, r.write); err != nil {
			return err
		}
	}
	return nil
}

// Mount adds a coprocessor resource under prefix.
func (p *Platform) Mount(prefix string, r starlet.Resource) {
	p.Starlet.Mount(prefix, r)
}

// Start runs the coprocessor.
func (p *Platform) Start(ctx context.Context) {
	p.Starlet.Start(ctx)
}

func (p *Platform) Stop() error {
	return p.Starlet.Stop()
}

// Raise asserts line at its source register and takes the exception if
// the line is unmasked.
func (p *Platform) Raise(line irq.IRQ) error {
	return p.drive(line, true)
}

// Lower deasserts line at its source register.
func (p *Platform) Lower(line irq.IRQ) error {
	return p.drive(line, false)
}

func (p *Platform) drive(line irq.IRQ, on bool) error {
	asserted, err := p.sources.set(line, on)
	if err != nil {
		return err
	}
	glog.V(2).Infof("platform: line %d -> %v", line, on)
	if on && asserted {
		p.Exception()
	}
	return nil
}

// Exception is the external-interrupt exception. It dispatches when
// MSR[EE] is set and otherwise leaves the exception pending. It reports
// the line that was dispatched, if any.
func (p *Platform) Exception() (irq.IRQ, bool) {
	p.mu.Lock()
	p.exceptions++
	if !p.Core.InterruptsEnabled() {
		p.pending = true
		p.deferred++
		p.mu.Unlock()
		glog.V(2).Info("platform: external interrupt deferred, MSR[EE] clear")
		return 0, false
	}
	p.mu.Unlock()
	return p.dispatch()
}

func (p *Platform) dispatch() (irq.IRQ, bool) {
	msr := p.Core.MoveFromMSR()
	p.Core.MoveToMSR(msr &^ cache.MSR_EE)
	line, ok := p.IRQ.Dispatch()
	p.Core.MoveToMSR(msr)
	return line, ok
}

// deliverPending runs when the core sets MSR[EE].
func (p *Platform) deliverPending() {
	p.mu.Lock()
	if !p.pending {
		p.mu.Unlock()
		return
	}
	p.pending = false
	p.mu.Unlock()
	if !p.sources.asserted() {
		return
	}
	glog.V(2).Info("platform: delivering deferred external interrupt")
	p.dispatch()
}

// Status is a snapshot of the platform for the monitor and control socket.
type Status struct {
	Layout       string `json:"layout"`
	ChannelState string `json:"channel_state"`
	Requests     uint64 `json:"requests"`
	Replies      uint64 `json:"replies"`
	Descriptors  int    `json:"descriptors"`
	ArenaRegions int    `json:"arena_regions"`
	InterruptsOn bool   `json:"interrupts_enabled"`
	Cause        uint32 `json:"pi_cause"`
	Mask         uint32 `json:"pi_mask"`
	Exceptions   uint64 `json:"exceptions"`
	Deferred     uint64 `json:"deferred"`
	Serviced     uint64 `json:"serviced"`
	Dropped      uint64 `json:"dropped"`
	Spurious     uint64 `json:"spurious"`
}

func (p *Platform) Status() Status {
	cause, mask := p.sources.registers()
	p.mu.Lock()
	exceptions, deferred := p.exceptions, p.deferred
	p.mu.Unlock()
	return Status{
		Layout:       p.IRQ.Layout().Name,
		ChannelState: p.Channel.State().String(),
		Requests:     p.Starlet.Requests(),
		Replies:      p.Starlet.Replies(),
		Descriptors:  p.Starlet.OpenDescriptors(),
		ArenaRegions: p.Arena.InUse(),
		InterruptsOn: p.Core.InterruptsEnabled(),
		Cause:        cause,
		Mask:         mask,
		Exceptions:   exceptions,
		Deferred:     deferred,
		Serviced:     p.IRQ.Serviced(),
		Dropped:      p.IRQ.Dropped(),
		Spurious:     p.IRQ.Spurious(),
	}
}
