// channel.go - Synchronous request/reply channel to the I/O coprocessor

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
channel.go - IPC Channel

The application CPU talks to the coprocessor through four registers and a
32-byte control block in shared RAM. The coprocessor reads RAM directly and
does not snoop the CPU's caches, so every byte it is meant to see is
written back with a range flush before its address is published.

Handshake, one request at a time:

    Idle          no request in flight
    Sent          block flushed, address in PPCMSG, execute raised
    Acknowledged  Y2 observed and written back
    Replied       Y1 observed, reply address read from ARMMSG
    Consumed      reply tag checked, Y1 written back

Both waits spin on HW_IPC_PPCCTRL with nothing in between. Unlike the
firmware this is modelled on, they are bounded by Config.MaxPolls and the
caller's context and give up with ErrTransportTimeout. A block whose wait
timed out is left with the coprocessor. Its reply may still turn up while a
later request waits for its own; replies are matched by address, so the
late one is released and skipped.
*/

package ipc

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

//go:generate mockgen -destination=mock_cache_test.go -package=ipc . Cache

// Cache is the part of the cache control unit the channel needs.
type Cache interface {
	FlushRange(start, length uint32) error
}

// State is the position of the channel in the handshake.
type State int

const (
	StateIdle State = iota
	StateSent
	StateAcknowledged
	StateReplied
	StateConsumed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateAcknowledged:
		return "acknowledged"
	case StateReplied:
		return "replied"
	case StateConsumed:
		return "consumed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Config struct {
	// MaxPolls bounds each of the two busy-waits. Zero spins until the
	// context ends, which with context.Background is forever.
	MaxPolls uint64
}

func DefaultConfig() Config {
	return Config{MaxPolls: 1 << 24}
}

type Channel struct {
	cache    Cache
	boundary Boundary
	cfg      Config

	ppcmsg  mmio.Register32
	ppcctrl mmio.Register32
	armmsg  mmio.Register32

	inflight sync.Mutex // one request at a time

	mu      sync.Mutex
	state   State
	sent    uint64
	orphans map[uint32]func() // timed-out block address -> buffer release
}

func NewChannel(bus mmio.Bus, cache Cache, boundary Boundary, cfg Config) *Channel {
	return &Channel{
		cache:    cache,
		boundary: boundary,
		cfg:      cfg,
		ppcmsg:   mmio.Register32{Bus: bus, Addr: HW_IPC_PPCMSG},
		ppcctrl:  mmio.Register32{Bus: bus, Addr: HW_IPC_PPCCTRL},
		armmsg:   mmio.Register32{Bus: bus, Addr: HW_IPC_ARMMSG},
		orphans:  make(map[uint32]func()),
	}
}

// State returns the handshake state. It does not wait for a request in
// flight. Outside Send it is StateIdle unless a wait timed out.
func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Requests returns the number of blocks handed to the coprocessor.
func (ch *Channel) Requests() uint64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.sent
}

// Orphans returns the number of timed-out blocks still awaiting a reply.
func (ch *Channel) Orphans() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.orphans)
}

func (ch *Channel) setState(s State) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	glog.V(2).Infof("ipc: %s -> %s", ch.state, s)
	ch.state = s
}

func (ch *Channel) orphan(pa uint32, release func()) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.orphans[pa] = release
	glog.V(1).Infof("ipc: block 0x%08X left with the coprocessor", pa)
}

// adopt releases the timed-out block at pa, and its buffers, once its
// late reply has been seen. It reports false for an address no request
// was ever sent from.
func (ch *Channel) adopt(pa uint32) bool {
	ch.mu.Lock()
	release, ok := ch.orphans[pa]
	delete(ch.orphans, pa)
	ch.mu.Unlock()
	if !ok {
		return false
	}
	glog.V(1).Infof("ipc: late reply for 0x%08X discarded", pa)
	if err := ch.boundary.Reclaim(mmio.Cached(pa), nil); err != nil {
		glog.Warningf("ipc: releasing late block 0x%08X: %v", pa, err)
	}
	if release != nil {
		release()
	}
	return true
}

func (ch *Channel) waitControl(ctx context.Context, what string, bit uint) error {
	err := mmio.Poll(ctx, ch.cfg.MaxPolls, func() bool {
		return mmio.Bit(ch.ppcctrl.Get(), bit)
	})
	if err != nil {
		return fmt.Errorf("%w: waiting for %s: %w", ErrTransportTimeout, what, err)
	}
	return nil
}

// Send hands req to the coprocessor and blocks until the reply arrives.
// Once published, req is detached and may not be sent again. A reply that
// is not tagged CMD_REPLY, or that answers a block never sent, panics with
// *ProtocolError.
func (ch *Channel) Send(ctx context.Context, req *ControlBlock) (*ControlBlock, error) {
	return ch.send(ctx, req, nil)
}

// send is Send with release run once a timed-out req's late reply arrives.
func (ch *Channel) send(ctx context.Context, req *ControlBlock, release func()) (*ControlBlock, error) {
	ch.inflight.Lock()
	defer ch.inflight.Unlock()
	if req.detached {
		return nil, ErrDetached
	}

	raw, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	ea, err := ch.boundary.Publish(raw)
	if err != nil {
		return nil, fmt.Errorf("ipc: publish %s: %w", req.Command, err)
	}
	if err := ch.cache.FlushRange(ea, CONTROL_BLOCK_SIZE); err != nil {
		if rerr := ch.boundary.Reclaim(ea, nil); rerr != nil {
			glog.Warningf("ipc: releasing unsent block: %v", rerr)
		}
		return nil, fmt.Errorf("ipc: flush %s: %w", req.Command, err)
	}
	req.detached = true
	ch.mu.Lock()
	ch.sent++
	ch.mu.Unlock()

	pa := mmio.Physical(ea)
	ch.ppcmsg.Set(uint32(MessageAddress(0).WithAddress(pa)))
	if PPCControl(ch.ppcctrl.Get()).Acknowledge() {
		// Emulators report a stale acknowledge at boot; clear it along
		// with the execute.
		glog.Warningf("ipc: acknowledge already set before %s, writing ack|execute", req.Command)
		ch.ppcctrl.Set(uint32(PPCControl(0).WithAcknowledge(true).WithExecute(true)))
	} else {
		ch.ppcctrl.Set(uint32(PPCControl(0).WithExecute(true)))
	}
	ch.setState(StateSent)

	if err := ch.waitControl(ctx, "acknowledge", PPC_Y2); err != nil {
		ch.orphan(pa, release)
		return nil, err
	}
	ch.ppcctrl.Set(uint32(PPCControl(0).WithAcknowledge(true)))
	ch.setState(StateAcknowledged)

	for {
		if err := ch.waitControl(ctx, "reply", PPC_Y1); err != nil {
			ch.orphan(pa, release)
			return nil, err
		}
		replyPA := MessageAddress(ch.armmsg.Get()).Address()
		if replyPA == pa {
			break
		}
		if !ch.adopt(replyPA) {
			panic(&ProtocolError{Addr: replyPA, Reason: fmt.Sprintf("reply for unknown block, waiting on 0x%08X", pa)})
		}
		ch.ppcctrl.Set(uint32(PPCControl(0).WithReply(true)))
		// Our own reply may have landed while the late one was cleared.
		if MessageAddress(ch.armmsg.Get()).Address() == pa {
			break
		}
	}
	ch.setState(StateReplied)

	replyEA := mmio.Cached(pa)
	buf := make([]byte, CONTROL_BLOCK_SIZE)
	if err := ch.boundary.Reclaim(replyEA, buf); err != nil {
		panic(&ProtocolError{Addr: pa, Reason: err.Error()})
	}
	reply := &ControlBlock{}
	if err := reply.UnmarshalBinary(buf); err != nil {
		panic(&ProtocolError{Addr: pa, Reason: err.Error()})
	}
	if reply.Command != CMD_REPLY {
		panic(&ProtocolError{
			Addr:   pa,
			Reason: fmt.Sprintf("reply tagged %s, want %s", reply.Command, CMD_REPLY),
		})
	}

	ch.ppcctrl.Set(uint32(PPCControl(0).WithReply(true)))
	ch.setState(StateConsumed)
	ch.setState(StateIdle)
	return reply, nil
}
