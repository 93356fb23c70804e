package ipc

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestChannel_OpenCloseImmediate(t *testing.T) {
	var f *fakeCoprocessor
	f = newFakeCoprocessor(func(req ControlBlock) int32 {
		switch req.Command {
		case CMD_OPEN:
			if got := f.readString(req.Args[0]); got != "/dev/stm/immediate" {
				t.Errorf("expected path /dev/stm/immediate, got %q", got)
			}
			return 5
		case CMD_CLOSE:
			return 0
		}
		return IPC_EINVAL
	})
	ch, arena := newTestChannel(f, &nopCache{}, DefaultConfig())
	ctx := context.Background()

	fd, err := ch.Open(ctx, "/dev/stm/immediate", MODE_NONE)
	if err != nil {
		t.Fatal(err)
	}
	if fd != 5 {
		t.Errorf("expected descriptor 5, got %d", fd)
	}
	if err := ch.Close(ctx, fd); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}

	want := []ControlBlock{
		{Command: CMD_OPEN, FD: -1, Args: [5]int32{f.requests[0].Args[0], int32(MODE_NONE)}},
		{Command: CMD_CLOSE, FD: 5},
	}
	if diff := cmp.Diff(want, f.requests, cmpopts.IgnoreUnexported(ControlBlock{})); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	if arena.InUse() != 0 {
		t.Errorf("expected every region reclaimed, %d still published", arena.InUse())
	}
	if ch.State() != StateIdle {
		t.Errorf("expected idle channel, got %s", ch.State())
	}
}

func TestChannel_ReadFlushesBufferBeforeExecute(t *testing.T) {
	payload := []byte("0123456789abcdef")
	var f *fakeCoprocessor
	f = newFakeCoprocessor(func(req ControlBlock) int32 {
		if req.Command != CMD_READ || req.FD != 3 || req.Args[1] != 16 {
			t.Errorf("unexpected request %v", req.String())
			return IPC_EINVAL
		}
		if err := f.mem.WriteAt(payload, uint32(req.Args[0])); err != nil {
			t.Fatal(err)
		}
		return 16
	})

	type flush struct {
		length     uint32
		ctrlWrites int
	}
	var log []flush
	ctrl := gomock.NewController(t)
	cache := NewMockCache(ctrl)
	cache.EXPECT().FlushRange(gomock.Any(), gomock.Any()).DoAndReturn(func(start, length uint32) error {
		log = append(log, flush{length: length, ctrlWrites: len(f.ctrlWrites)})
		return nil
	}).Times(2)

	ch, _ := newTestChannel(f, cache, DefaultConfig())
	buf := make([]byte, 16)
	n, err := ch.Read(context.Background(), 3, buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 16 {
		t.Errorf("expected 16 bytes, got %d", n)
	}
	if !bytes.Equal(buf, payload) {
		t.Errorf("expected %q, got %q", payload, buf)
	}
	// The buffer first, then the control block, both before execute.
	want := []flush{{length: 32}, {length: CONTROL_BLOCK_SIZE}}
	if diff := cmp.Diff(want, log, cmp.AllowUnexported(flush{})); diff != "" {
		t.Errorf("flush log mismatch (-want +got):\n%s", diff)
	}
	if len(f.executedAt) != 1 || f.executedAt[0] != 1 {
		t.Errorf("expected execute on the first control write, got %v", f.executedAt)
	}
}

func TestChannel_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		do   func(ch *Channel) (int32, error)
		cmd  Command
		ret  int32
	}{
		{"write", func(ch *Channel) (int32, error) { return ch.Write(context.Background(), 4, []byte("hello")) }, CMD_WRITE, 5},
		{"seek", func(ch *Channel) (int32, error) { return 0, ch.Seek(context.Background(), 4, -8, SEEK_END) }, CMD_SEEK, 0},
		{"ioctl", func(ch *Channel) (int32, error) {
			return ch.Ioctl(context.Background(), 4, 0x7001, nil, make([]byte, 4))
		}, CMD_IOCTL, 0},
		{"read enoent", func(ch *Channel) (int32, error) { return ch.Read(context.Background(), 9, make([]byte, 8)) }, CMD_READ, IPC_ENOENT},
		{"write eacces", func(ch *Channel) (int32, error) { return ch.Write(context.Background(), 9, []byte{1}) }, CMD_WRITE, IPC_EACCES},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeCoprocessor(func(req ControlBlock) int32 {
				if req.Command != tc.cmd {
					t.Errorf("expected %s, got %s", tc.cmd, req.Command)
				}
				return tc.ret
			})
			ch, arena := newTestChannel(f, &nopCache{}, DefaultConfig())
			got, err := tc.do(ch)
			if tc.ret < 0 {
				var re *RemoteError
				if !errors.As(err, &re) || re.Code != tc.ret || re.Command != tc.cmd {
					t.Fatalf("expected RemoteError code %d, got %v", tc.ret, err)
				}
			} else if err != nil {
				t.Fatal(err)
			} else if tc.cmd != CMD_SEEK && got != tc.ret {
				t.Errorf("expected %d, got %d", tc.ret, got)
			}
			if arena.InUse() != 0 {
				t.Errorf("expected arena empty after reply, %d regions left", arena.InUse())
			}
		})
	}
}

func TestChannel_SeekEncoding(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())
	for _, w := range []Whence{SEEK_START, SEEK_CURRENT, SEEK_END} {
		if err := ch.Seek(context.Background(), 2, 100, w); err != nil {
			t.Fatal(err)
		}
	}
	for i, req := range f.requests {
		if req.Args[0] != 100 || req.Args[1] != int32(i) {
			t.Errorf("seek %d: expected args [100 %d], got %v", i, i, req.Args[:2])
		}
	}
}

func TestChannel_SentBlockIsDetached(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())

	req := NewRequest(CMD_CLOSE, 7)
	reply, err := ch.Send(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if reply == req {
		t.Error("expected reply to be a distinct block")
	}
	if !req.Detached() {
		t.Error("expected request to be detached after send")
	}
	if _, err := ch.Send(context.Background(), req); !errors.Is(err, ErrDetached) {
		t.Errorf("expected ErrDetached on reuse, got %v", err)
	}
	if len(f.requests) != 1 {
		t.Errorf("expected one request on the wire, got %d", len(f.requests))
	}
}

func TestChannel_TimeoutOnSilentCoprocessor(t *testing.T) {
	f := newFakeCoprocessor(nil)
	f.silent = true
	ch, arena := newTestChannel(f, &nopCache{}, Config{MaxPolls: 10})

	_, err := ch.Write(context.Background(), 1, []byte("lost"))
	if !errors.Is(err, ErrTransportTimeout) {
		t.Fatalf("expected ErrTransportTimeout, got %v", err)
	}
	if ch.State() != StateSent {
		t.Errorf("expected channel stuck in sent, got %s", ch.State())
	}
	// Buffer and block stay with the coprocessor.
	if arena.InUse() != 2 {
		t.Errorf("expected 2 regions still published, got %d", arena.InUse())
	}
}

func TestChannel_TimeoutOnContext(t *testing.T) {
	f := newFakeCoprocessor(nil)
	f.silent = true
	ch, _ := newTestChannel(f, &nopCache{}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ch.Close(ctx, 1)
	if !errors.Is(err, ErrTransportTimeout) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected timeout wrapping context.Canceled, got %v", err)
	}
}

func TestChannel_LateReplyAfterTimeoutIsSkipped(t *testing.T) {
	var f *fakeCoprocessor
	f = newFakeCoprocessor(func(req ControlBlock) int32 {
		if f.readString(req.Args[0]) == "/dev/stm/immediate" {
			return 5
		}
		return IPC_ENOENT
	})
	f.hold = true
	ch, arena := newTestChannel(f, &nopCache{}, Config{MaxPolls: 10})
	ctx := context.Background()

	if _, err := ch.Open(ctx, "/dev/stm/immediate", MODE_NONE); !errors.Is(err, ErrTransportTimeout) {
		t.Fatalf("expected ErrTransportTimeout, got %v", err)
	}
	if ch.Orphans() != 1 || arena.InUse() != 2 {
		t.Fatalf("expected one orphan holding 2 regions, got %d orphans, %d regions", ch.Orphans(), arena.InUse())
	}

	// The first open is answered only now, ahead of the second.
	f.release()
	fd, err := ch.Open(ctx, "/does/not/exist", MODE_NONE)
	var re *RemoteError
	if !errors.As(err, &re) || re.Code != IPC_ENOENT {
		t.Fatalf("expected ENOENT for the missing path, got fd %d, %v", fd, err)
	}
	if ch.Orphans() != 0 {
		t.Errorf("expected the late reply to release its orphan, %d left", ch.Orphans())
	}
	if arena.InUse() != 0 {
		t.Errorf("expected every region reclaimed, %d still published", arena.InUse())
	}
	if ch.State() != StateIdle {
		t.Errorf("expected idle channel, got %s", ch.State())
	}

	fd, err = ch.Open(ctx, "/dev/stm/immediate", MODE_NONE)
	if err != nil || fd != 5 {
		t.Errorf("expected descriptor 5 after recovery, got %d, %v", fd, err)
	}
}

func TestChannel_ReplyForUnknownBlockPanics(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	f.armmsg = testArenaBase + 0x800
	f.ppcctrl = uint32(PPCControl(0).WithReply(true))
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())

	defer func() {
		pe, ok := recover().(*ProtocolError)
		if !ok {
			t.Fatal("expected *ProtocolError panic")
		}
		if pe.Addr != testArenaBase+0x800 {
			t.Errorf("expected desync at 0x%08X, got 0x%08X", testArenaBase+0x800, pe.Addr)
		}
	}()
	ch.Close(context.Background(), 1)
	t.Error("expected panic")
}

func TestChannel_StateVisibleWhileWaiting(t *testing.T) {
	f := newFakeCoprocessor(nil)
	f.silent = true
	ch, _ := newTestChannel(f, &nopCache{}, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- ch.Close(ctx, 1)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for ch.State() != StateSent {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("channel never reported sent, state %s", ch.State())
		}
		time.Sleep(time.Millisecond)
	}
	if ch.Requests() != 1 {
		t.Errorf("expected 1 request while waiting, got %d", ch.Requests())
	}
	cancel()
	if err := <-done; !errors.Is(err, ErrTransportTimeout) {
		t.Errorf("expected ErrTransportTimeout, got %v", err)
	}
}

func TestChannel_ConcurrentResendOfOneBlock(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())
	req := NewRequest(CMD_CLOSE, 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ch.Send(context.Background(), req)
		}()
	}
	wg.Wait()

	detached := 0
	for _, err := range errs {
		if errors.Is(err, ErrDetached) {
			detached++
		} else if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if detached != 1 || len(f.requests) != 1 {
		t.Errorf("expected one send and one ErrDetached, got %d detached, %d on the wire", detached, len(f.requests))
	}
}

func TestChannel_AcknowledgeAlreadySet(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	f.ppcctrl = uint32(PPCControl(0).WithAcknowledge(true))
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())

	if err := ch.Close(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := ch.Close(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	// ack|execute, ack, reply for the first call; execute, ack, reply after.
	want := []uint32{3, 2, 4, 1, 2, 4}
	if diff := cmp.Diff(want, f.ctrlWrites); diff != "" {
		t.Errorf("PPCCTRL writes mismatch (-want +got):\n%s", diff)
	}
}

func TestChannel_MessageAddressIsPhysical(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())
	if err := ch.Close(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if f.ppcmsg != testArenaBase {
		t.Errorf("expected physical block address 0x%08X, got 0x%08X", testArenaBase, f.ppcmsg)
	}
}

func TestChannel_ReplyTagMismatchPanics(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	f.replyTag = CMD_CLOSE
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())

	defer func() {
		r := recover()
		pe, ok := r.(*ProtocolError)
		if !ok {
			t.Fatalf("expected *ProtocolError panic, got %v", r)
		}
		if pe.Addr != testArenaBase {
			t.Errorf("expected desync at 0x%08X, got 0x%08X", testArenaBase, pe.Addr)
		}
	}()
	ch.Close(context.Background(), 1)
	t.Error("expected panic")
}

func TestChannel_OpenRejectsLongPath(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	ch, _ := newTestChannel(f, &nopCache{}, DefaultConfig())
	long := "/" + string(bytes.Repeat([]byte("a"), MAX_PATH-1))

	if _, err := ch.Open(context.Background(), long, MODE_READ); !errors.Is(err, ErrPathTooLong) {
		t.Errorf("expected ErrPathTooLong, got %v", err)
	}
	if len(f.requests) != 0 {
		t.Errorf("expected nothing sent, got %d requests", len(f.requests))
	}
	if _, err := ch.Open(context.Background(), long[:MAX_PATH-1], MODE_READ); err != nil {
		t.Errorf("expected 63-byte path accepted, got %v", err)
	}
}

func TestChannel_FlushFailureTouchesNoRegister(t *testing.T) {
	f := newFakeCoprocessor(func(ControlBlock) int32 { return 0 })
	ctrl := gomock.NewController(t)
	cache := NewMockCache(ctrl)
	boom := errors.New("flush failed")
	cache.EXPECT().FlushRange(gomock.Any(), gomock.Any()).Return(boom)
	ch, arena := newTestChannel(f, cache, DefaultConfig())

	if _, err := ch.Write(context.Background(), 1, []byte("x")); !errors.Is(err, boom) {
		t.Errorf("expected flush error, got %v", err)
	}
	if len(f.ctrlWrites) != 0 || f.ppcmsg != 0 {
		t.Error("expected no register writes")
	}
	if arena.InUse() != 0 {
		t.Errorf("expected unsent buffers released, %d left", arena.InUse())
	}
}

func TestChannel_Ioctlv(t *testing.T) {
	var f *fakeCoprocessor
	f = newFakeCoprocessor(func(req ControlBlock) int32 {
		if req.Args[0] != 0x10 || req.Args[1] != 1 || req.Args[2] != 1 {
			t.Errorf("unexpected ioctlv args %v", req.Args)
		}
		vec := make([]byte, 2*IOVEC_SIZE)
		if err := f.mem.ReadAt(vec, uint32(req.Args[3])); err != nil {
			t.Fatal(err)
		}
		inAddr, inLen := binary.BigEndian.Uint32(vec[0:]), binary.BigEndian.Uint32(vec[4:])
		ioAddr, ioLen := binary.BigEndian.Uint32(vec[8:]), binary.BigEndian.Uint32(vec[12:])
		in := make([]byte, inLen)
		if err := f.mem.ReadAt(in, inAddr); err != nil {
			t.Fatal(err)
		}
		out := bytes.ToUpper(in)
		if err := f.mem.WriteAt(out[:ioLen], ioAddr); err != nil {
			t.Fatal(err)
		}
		return int32(ioLen)
	})
	ch, arena := newTestChannel(f, &nopCache{}, DefaultConfig())

	io := make([]byte, 5)
	n, err := ch.Ioctlv(context.Background(), 3, 0x10, [][]byte{[]byte("hello")}, [][]byte{io})
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || string(io) != "HELLO" {
		t.Errorf("expected 5 bytes HELLO, got %d %q", n, io)
	}
	if arena.InUse() != 0 {
		t.Errorf("expected arena empty, %d left", arena.InUse())
	}
}
