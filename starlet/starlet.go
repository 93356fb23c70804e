// starlet.go - Simulated I/O coprocessor behind the IPC registers

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
starlet.go - Simulated Coprocessor

The coprocessor side of the IPC block. The application CPU sees four
registers at HW_IPC_PPCMSG..HW_IPC_ARMCTRL; this device implements them and
runs one worker goroutine that services requests:

    PPCCTRL write X1     latch PPCMSG, wake the worker
    worker               clear X1, set Y2 (acknowledge)
    worker               read the control block from physical RAM
    worker               dispatch by command to the open descriptor
    worker               write the reply in place, command = CMD_REPLY
    worker               ARMMSG = block address, set Y1 (reply)
    PPCCTRL write Y1/Y2  write-one-to-clear

IY1 and IY2 are plain read/write enables. While Y1&IY1 or Y2&IY2 holds the
interrupt line passed to SetInterrupt is asserted.

Memory is always accessed physically. The worker never sees the
application CPU's caches, which is the whole reason the channel flushes.
*/

package starlet

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// Memory is physical RAM as the coprocessor sees it.
type Memory interface {
	ReadPhys(pa uint32, p []byte) error
	WritePhys(pa uint32, p []byte) error
	IsRAM(pa, n uint32) bool
}

type Config struct {
	// AckOnBoot powers on with the acknowledge bit already set, as some
	// emulators do.
	AckOnBoot bool

	// Unresponsive latches requests but never acknowledges them.
	Unresponsive bool

	// ReplyDelay is slept between acknowledge and reply.
	ReplyDelay time.Duration
}

func DefaultConfig() Config {
	return Config{}
}

type Starlet struct {
	mem Memory
	cfg Config

	mu       sync.Mutex
	ppcmsg   uint32
	armmsg   uint32
	ctrl     ipc.PPCControl
	latched  bool
	line     bool
	onIRQ    func(asserted bool)
	mounts   []mount
	fds      fdTable
	requests uint64
	replies  uint64

	wake   chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(mem Memory, cfg Config) *Starlet {
	s := &Starlet{
		mem:  mem,
		cfg:  cfg,
		wake: make(chan struct{}, 1),
	}
	if cfg.AckOnBoot {
		s.ctrl = s.ctrl.WithAcknowledge(true)
	}
	return s
}

// Mount serves path and everything below it from r.
func (s *Starlet) Mount(prefix string, r Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts = append(s.mounts, mount{prefix: prefix, resource: r})
}

// SetInterrupt installs the callback driven by the IY1/IY2 interrupt line.
// It is called outside the device lock on every level change.
func (s *Starlet) SetInterrupt(fn func(asserted bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIRQ = fn
}

// Requests returns the number of execute requests latched.
func (s *Starlet) Requests() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Replies returns the number of replies posted.
func (s *Starlet) Replies() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replies
}

// OpenDescriptors returns the number of occupied descriptor slots.
func (s *Starlet) OpenDescriptors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fds.open()
}

// HandleRead serves the application CPU's register reads.
func (s *Starlet) HandleRead(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch addr &^ 3 {
	case ipc.HW_IPC_PPCMSG:
		return s.ppcmsg
	case ipc.HW_IPC_PPCCTRL:
		return uint32(s.ctrl)
	case ipc.HW_IPC_ARMMSG:
		return s.armmsg
	case ipc.HW_IPC_ARMCTRL:
		return uint32(ipc.ARMControl(0).
			WithExecute(s.ctrl.Execute()).
			WithAcknowledge(s.ctrl.Acknowledge()).
			WithReply(s.ctrl.Reply()))
	}
	return 0
}

// HandleWrite serves the application CPU's register writes.
func (s *Starlet) HandleWrite(addr uint32, value uint32) {
	s.mu.Lock()
	switch addr &^ 3 {
	case ipc.HW_IPC_PPCMSG:
		s.ppcmsg = value
	case ipc.HW_IPC_PPCCTRL:
		s.writeControl(ipc.PPCControl(value))
	case ipc.HW_IPC_ARMMSG, ipc.HW_IPC_ARMCTRL:
		glog.V(1).Infof("starlet: ignoring write 0x%08X to coprocessor-side register 0x%08X", value, addr)
	}
	fire := s.updateLine()
	s.mu.Unlock()
	fire()
}

func (s *Starlet) writeControl(v ipc.PPCControl) {
	if v.Acknowledge() {
		s.ctrl = s.ctrl.WithAcknowledge(false)
	}
	if v.Reply() {
		s.ctrl = s.ctrl.WithReply(false)
	}
	s.ctrl = s.ctrl.WithReplyIRQ(v.ReplyIRQ()).WithAcknowledgeIRQ(v.AcknowledgeIRQ())
	if v.Relaunch() {
		glog.V(1).Infof("starlet: relaunch requested, ignored")
	}
	if v.Execute() {
		if s.latched {
			glog.Warningf("starlet: execute while 0x%08X still pending, overwriting", s.ppcmsg)
		}
		s.ctrl = s.ctrl.WithExecute(true)
		s.latched = true
		s.requests++
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// updateLine recomputes the interrupt line under the lock and returns the
// notification to run once it is released.
func (s *Starlet) updateLine() func() {
	line := (s.ctrl.Reply() && s.ctrl.ReplyIRQ()) || (s.ctrl.Acknowledge() && s.ctrl.AcknowledgeIRQ())
	if line == s.line || s.onIRQ == nil {
		s.line = line
		return func() {}
	}
	s.line = line
	fn := s.onIRQ
	return func() { fn(line) }
}

// Start runs the request worker until ctx ends or Stop is called.
func (s *Starlet) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = g
	g.Go(func() error {
		return s.run(ctx)
	})
}

// Stop halts the worker and closes every open descriptor.
func (s *Starlet) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	err := s.group.Wait()
	s.cancel = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	for fd, h := range s.fds.slots {
		if h == nil {
			continue
		}
		if cerr := h.Close(); cerr != nil {
			glog.Warningf("starlet: closing descriptor %d: %v", fd, cerr)
		}
		s.fds.slots[fd] = nil
	}
	return err
}

func (s *Starlet) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
		if s.cfg.Unresponsive {
			continue
		}

		s.mu.Lock()
		if !s.latched {
			s.mu.Unlock()
			continue
		}
		pa := ipc.MessageAddress(s.ppcmsg).Address()
		s.latched = false
		s.ctrl = s.ctrl.WithExecute(false).WithAcknowledge(true)
		fire := s.updateLine()
		s.mu.Unlock()
		fire()

		if s.cfg.ReplyDelay > 0 {
			t := time.NewTimer(s.cfg.ReplyDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}

		if err := s.serve(pa); err != nil {
			// Nothing to reply to; the application CPU will time out.
			glog.Errorf("starlet: request at 0x%08X: %v", pa, err)
			continue
		}

		s.mu.Lock()
		s.armmsg = uint32(ipc.MessageAddress(0).WithAddress(pa))
		s.ctrl = s.ctrl.WithReply(true)
		s.replies++
		fire = s.updateLine()
		s.mu.Unlock()
		fire()
	}
}

// serve executes the control block at pa and writes the reply over it.
func (s *Starlet) serve(pa uint32) error {
	raw := make([]byte, ipc.CONTROL_BLOCK_SIZE)
	if err := s.mem.ReadPhys(pa, raw); err != nil {
		return err
	}
	req := &ipc.ControlBlock{}
	if err := req.UnmarshalBinary(raw); err != nil {
		return err
	}

	ret, err := s.execute(req)
	if err != nil {
		glog.V(1).Infof("starlet: %s: %v", req, err)
		ret = Code(err)
	} else {
		glog.V(2).Infof("starlet: %s -> %d", req, ret)
	}

	reply := *req
	reply.Command = ipc.CMD_REPLY
	reply.Result = ret
	out, err := reply.MarshalBinary()
	if err != nil {
		return err
	}
	return s.mem.WritePhys(pa, out)
}

func (s *Starlet) execute(req *ipc.ControlBlock) (int32, error) {
	a := req.Args
	switch req.Command {
	case ipc.CMD_OPEN:
		return s.open(uint32(a[0]), ipc.Mode(a[1]))
	case ipc.CMD_CLOSE:
		return 0, s.close(req.FD)
	}

	s.mu.Lock()
	h, err := s.fds.get(req.FD)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	switch req.Command {
	case ipc.CMD_READ:
		buf, err := s.scratch(uint32(a[0]), a[1])
		if err != nil {
			return 0, err
		}
		n, err := h.Read(buf)
		if err != nil {
			return 0, err
		}
		return n, s.store(uint32(a[0]), buf[:min(int(n), len(buf))])
	case ipc.CMD_WRITE:
		buf, err := s.load(uint32(a[0]), a[1])
		if err != nil {
			return 0, err
		}
		return h.Write(buf)
	case ipc.CMD_SEEK:
		return h.Seek(a[0], ipc.Whence(a[1]))
	case ipc.CMD_IOCTL:
		in, err := s.load(uint32(a[1]), a[2])
		if err != nil {
			return 0, err
		}
		out, err := s.scratch(uint32(a[3]), a[4])
		if err != nil {
			return 0, err
		}
		ret, err := h.Ioctl(a[0], in, out)
		if err != nil {
			return 0, err
		}
		return ret, s.store(uint32(a[3]), out)
	case ipc.CMD_IOCTLV:
		return s.ioctlv(h, a[0], a[1], a[2], uint32(a[3]))
	}
	return 0, fmt.Errorf("%w: command %s", EINVAL, req.Command)
}

func (s *Starlet) ioctlv(h Handle, num, argcIn, argcIO int32, vecPA uint32) (int32, error) {
	if argcIn < 0 || argcIO < 0 {
		return 0, EINVAL
	}
	n := argcIn + argcIO
	vec, err := s.load(vecPA, n*ipc.IOVEC_SIZE)
	if err != nil {
		return 0, err
	}
	bufs := make([][]byte, n)
	addrs := make([]uint32, n)
	for i := range bufs {
		addrs[i] = binary.BigEndian.Uint32(vec[i*ipc.IOVEC_SIZE:])
		size := int32(binary.BigEndian.Uint32(vec[i*ipc.IOVEC_SIZE+4:]))
		if bufs[i], err = s.load(addrs[i], size); err != nil {
			return 0, err
		}
	}
	ret, err := h.Ioctlv(num, bufs[:argcIn], bufs[argcIn:])
	if err != nil {
		return 0, err
	}
	for i := argcIn; i < n; i++ {
		if err := s.store(addrs[i], bufs[i]); err != nil {
			return 0, err
		}
	}
	return ret, nil
}

func (s *Starlet) open(pathPA uint32, mode ipc.Mode) (int32, error) {
	raw, err := s.load(pathPA, PATH_BUFFER)
	if err != nil {
		return 0, err
	}
	end := bytes.IndexByte(raw, 0)
	if end < 0 {
		return 0, fmt.Errorf("%w: unterminated path", EINVAL)
	}
	path := string(raw[:end])

	s.mu.Lock()
	r, rest, ok := lookup(s.mounts, path)
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ENOENT, path)
	}
	h, err := r.Open(rest, mode)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	fd, err := s.fds.insert(h)
	s.mu.Unlock()
	if err != nil {
		if cerr := h.Close(); cerr != nil {
			glog.Warningf("starlet: closing unplaced handle for %q: %v", path, cerr)
		}
		return 0, err
	}
	glog.V(1).Infof("starlet: open %q mode %d -> fd %d", path, mode, fd)
	return fd, nil
}

func (s *Starlet) close(fd int32) error {
	s.mu.Lock()
	h, err := s.fds.remove(fd)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return h.Close()
}

// scratch returns a buffer for the n bytes at pa, refusing lengths that do
// not fit in RAM there before anything is allocated.
func (s *Starlet) scratch(pa uint32, n int32) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: length %d", EINVAL, n)
	}
	if n > 0 && !s.mem.IsRAM(mmio.Physical(pa), uint32(n)) {
		return nil, fmt.Errorf("%w: 0x%08X+0x%X outside RAM", EINVAL, mmio.Physical(pa), n)
	}
	return make([]byte, n), nil
}

// load reads n bytes at pa. An empty buffer never touches memory.
func (s *Starlet) load(pa uint32, n int32) ([]byte, error) {
	buf, err := s.scratch(pa, n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return buf, nil
	}
	if err := s.mem.ReadPhys(mmio.Physical(pa), buf); err != nil {
		return nil, fmt.Errorf("%w: %w", EINVAL, err)
	}
	return buf, nil
}

func (s *Starlet) store(pa uint32, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := s.mem.WritePhys(mmio.Physical(pa), p); err != nil {
		return fmt.Errorf("%w: %w", EINVAL, err)
	}
	return nil
}
