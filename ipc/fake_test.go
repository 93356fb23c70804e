package ipc

import (
	"fmt"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

const (
	testMemBase   = 0x10000000
	testMemSize   = 0x4000
	testArenaBase = 0x10001000
	testArenaSize = 0x1000
)

// testMemory is uncached RAM at testMemBase.
type testMemory struct {
	data []byte
}

func newTestMemory() *testMemory {
	return &testMemory{data: make([]byte, testMemSize)}
}

func (m *testMemory) window(ea uint32, n int) ([]byte, error) {
	pa := mmio.Physical(ea)
	if pa < testMemBase || int(pa-testMemBase)+n > len(m.data) {
		return nil, fmt.Errorf("0x%08X+%d outside test memory", pa, n)
	}
	return m.data[pa-testMemBase : int(pa-testMemBase)+n], nil
}

func (m *testMemory) ReadAt(p []byte, ea uint32) error {
	w, err := m.window(ea, len(p))
	if err != nil {
		return err
	}
	copy(p, w)
	return nil
}

func (m *testMemory) WriteAt(p []byte, ea uint32) error {
	w, err := m.window(ea, len(p))
	if err != nil {
		return err
	}
	copy(w, p)
	return nil
}

// fakeCoprocessor answers every execute synchronously from inside the
// PPCCTRL write, the way a very fast coprocessor would. Replies are posted
// one at a time: the next waits until Y1 has been written back.
type fakeCoprocessor struct {
	mem     *testMemory
	ppcmsg  uint32
	ppcctrl uint32
	armmsg  uint32

	silent   bool    // never acknowledges
	hold     bool    // acknowledges, keeps replies until release
	replyTag Command // tag written into replies, CMD_REPLY when zero
	handle   func(req ControlBlock) int32
	replies  []uint32 // answered blocks not yet posted

	requests   []ControlBlock
	ctrlWrites []uint32
	executedAt []int // len(ctrlWrites) when each execute was seen
}

func newFakeCoprocessor(handle func(req ControlBlock) int32) *fakeCoprocessor {
	return &fakeCoprocessor{mem: newTestMemory(), handle: handle}
}

func (f *fakeCoprocessor) Read32(addr uint32) uint32 {
	switch addr {
	case HW_IPC_PPCMSG:
		return f.ppcmsg
	case HW_IPC_PPCCTRL:
		return f.ppcctrl
	case HW_IPC_ARMMSG:
		return f.armmsg
	}
	return 0
}

func (f *fakeCoprocessor) Write32(addr uint32, v uint32) {
	switch addr {
	case HW_IPC_PPCMSG:
		f.ppcmsg = v
	case HW_IPC_PPCCTRL:
		f.ctrlWrites = append(f.ctrlWrites, v)
		ctrl := PPCControl(v)
		if ctrl.Acknowledge() {
			f.ppcctrl = uint32(PPCControl(f.ppcctrl).WithAcknowledge(false))
		}
		if ctrl.Reply() {
			f.ppcctrl = uint32(PPCControl(f.ppcctrl).WithReply(false))
		}
		if ctrl.Execute() && !f.silent {
			f.execute()
		}
		f.post()
	}
}

// post raises Y1 for the oldest held reply once the previous one has been
// consumed.
func (f *fakeCoprocessor) post() {
	if f.hold || len(f.replies) == 0 || PPCControl(f.ppcctrl).Reply() {
		return
	}
	f.armmsg = f.replies[0]
	f.replies = f.replies[1:]
	f.ppcctrl = uint32(PPCControl(f.ppcctrl).WithReply(true))
}

// release lets held replies through.
func (f *fakeCoprocessor) release() {
	f.hold = false
	f.post()
}

func (f *fakeCoprocessor) Read16(addr uint32) uint16 { return uint16(f.Read32(addr)) }
func (f *fakeCoprocessor) Write16(addr uint32, v uint16) { f.Write32(addr, uint32(v)) }

func (f *fakeCoprocessor) execute() {
	f.executedAt = append(f.executedAt, len(f.ctrlWrites))
	raw := make([]byte, CONTROL_BLOCK_SIZE)
	if err := f.mem.ReadAt(raw, f.ppcmsg); err != nil {
		panic(err)
	}
	var req ControlBlock
	if err := req.UnmarshalBinary(raw); err != nil {
		panic(err)
	}
	f.requests = append(f.requests, req)

	reply := req
	reply.Result = f.handle(req)
	reply.Command = f.replyTag
	if reply.Command == 0 {
		reply.Command = CMD_REPLY
	}
	out, _ := reply.MarshalBinary()
	if err := f.mem.WriteAt(out, f.ppcmsg); err != nil {
		panic(err)
	}
	f.replies = append(f.replies, f.ppcmsg)
	f.ppcctrl = uint32(PPCControl(f.ppcctrl).WithAcknowledge(true))
}

// readString returns the NUL-terminated string at physical address pa.
func (f *fakeCoprocessor) readString(pa int32) string {
	buf := make([]byte, MAX_PATH)
	if err := f.mem.ReadAt(buf, uint32(pa)); err != nil {
		panic(err)
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// nopCache records flushes without a cache behind them.
type nopCache struct {
	flushes []flushRange
}

type flushRange struct{ Start, Length uint32 }

func (c *nopCache) FlushRange(start, length uint32) error {
	c.flushes = append(c.flushes, flushRange{start, length})
	return nil
}

func newTestChannel(f *fakeCoprocessor, cache Cache, cfg Config) (*Channel, *Arena) {
	arena, err := NewArena(f.mem, testArenaBase, testArenaSize)
	if err != nil {
		panic(err)
	}
	return NewChannel(f, cache, arena, cfg), arena
}
