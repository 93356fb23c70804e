// ops.go - open/close/read/write/seek/ioctl/ioctlv request builders

package ipc

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// FD is a descriptor returned by Open.
type FD int32

// transfer tracks the buffers published for one request.
type transfer struct {
	ch      *Channel
	regions []transferRegion
}

type transferRegion struct {
	ea   uint32
	back []byte // copied back after the reply, nil for input-only buffers
}

// add publishes p, flushes it and returns the physical address and length
// to place in the request.
func (t *transfer) add(p []byte, copyBack bool) (int32, int32, error) {
	if len(p) == 0 {
		return 0, 0, nil
	}
	ea, err := t.ch.boundary.Publish(p)
	if err != nil {
		return 0, 0, err
	}
	r := transferRegion{ea: ea}
	if copyBack {
		r.back = p
	}
	t.regions = append(t.regions, r)
	if err := t.ch.cache.FlushRange(ea, mmio.AlignUp(uint32(len(p)))); err != nil {
		return 0, 0, err
	}
	return int32(mmio.Physical(ea)), int32(len(p)), nil
}

// finish reclaims every region, copying back the output buffers.
func (t *transfer) finish() error {
	var first error
	for _, r := range t.regions {
		if err := t.ch.boundary.Reclaim(r.ea, r.back); err != nil && first == nil {
			first = err
		}
	}
	t.regions = nil
	return first
}

// abandon releases regions the coprocessor never saw.
func (t *transfer) abandon() {
	for _, r := range t.regions {
		if err := t.ch.boundary.Reclaim(r.ea, nil); err != nil {
			glog.Warningf("ipc: releasing 0x%08X: %v", r.ea, err)
		}
	}
	t.regions = nil
}

// call sends req with the buffers in t and maps a negative result to
// *RemoteError. On a transport timeout the buffers stay published until
// the late reply shows up: the coprocessor may still write them.
func (ch *Channel) call(ctx context.Context, t *transfer, req *ControlBlock) (int32, error) {
	reply, err := ch.send(ctx, req, t.abandon)
	if err != nil {
		if !req.Detached() {
			t.abandon()
		}
		return 0, err
	}
	if err := t.finish(); err != nil {
		return 0, fmt.Errorf("ipc: %s: %w", req.Command, err)
	}
	if reply.Result < 0 {
		return reply.Result, &RemoteError{Command: req.Command, Code: reply.Result}
	}
	return reply.Result, nil
}

// Open opens path on the coprocessor. The path travels in a 64-byte
// NUL-terminated buffer, so it must be shorter than MAX_PATH.
func (ch *Channel) Open(ctx context.Context, path string, mode Mode) (FD, error) {
	if len(path) >= MAX_PATH {
		return -1, fmt.Errorf("%w: %q is %d bytes, limit %d", ErrPathTooLong, path, len(path), MAX_PATH-1)
	}
	name := make([]byte, MAX_PATH)
	copy(name, path)

	t := &transfer{ch: ch}
	addr, _, err := t.add(name, false)
	if err != nil {
		t.abandon()
		return -1, fmt.Errorf("ipc: open %q: %w", path, err)
	}
	ret, err := ch.call(ctx, t, NewRequest(CMD_OPEN, -1, addr, int32(mode)))
	if err != nil {
		return -1, err
	}
	return FD(ret), nil
}

func (ch *Channel) Close(ctx context.Context, fd FD) error {
	_, err := ch.call(ctx, &transfer{ch: ch}, NewRequest(CMD_CLOSE, int32(fd)))
	return err
}

// Read fills p from fd and returns the number of bytes the coprocessor
// reports.
func (ch *Channel) Read(ctx context.Context, fd FD, p []byte) (int32, error) {
	t := &transfer{ch: ch}
	addr, n, err := t.add(p, true)
	if err != nil {
		t.abandon()
		return 0, fmt.Errorf("ipc: read: %w", err)
	}
	return ch.call(ctx, t, NewRequest(CMD_READ, int32(fd), addr, n))
}

func (ch *Channel) Write(ctx context.Context, fd FD, p []byte) (int32, error) {
	t := &transfer{ch: ch}
	addr, n, err := t.add(p, false)
	if err != nil {
		t.abandon()
		return 0, fmt.Errorf("ipc: write: %w", err)
	}
	return ch.call(ctx, t, NewRequest(CMD_WRITE, int32(fd), addr, n))
}

func (ch *Channel) Seek(ctx context.Context, fd FD, offset int32, whence Whence) error {
	_, err := ch.call(ctx, &transfer{ch: ch}, NewRequest(CMD_SEEK, int32(fd), offset, int32(whence)))
	return err
}

// Ioctl issues request num with an input buffer and an output buffer.
// out is filled from the reply.
func (ch *Channel) Ioctl(ctx context.Context, fd FD, num int32, in, out []byte) (int32, error) {
	t := &transfer{ch: ch}
	inAddr, inLen, err := t.add(in, false)
	if err != nil {
		t.abandon()
		return 0, fmt.Errorf("ipc: ioctl 0x%X: %w", num, err)
	}
	outAddr, outLen, err := t.add(out, true)
	if err != nil {
		t.abandon()
		return 0, fmt.Errorf("ipc: ioctl 0x%X: %w", num, err)
	}
	return ch.call(ctx, t, NewRequest(CMD_IOCTL, int32(fd), num, inAddr, inLen, outAddr, outLen))
}

// Ioctlv issues request num with a vector of input buffers followed by a
// vector of in/out buffers. Each vector entry is {address, length}.
func (ch *Channel) Ioctlv(ctx context.Context, fd FD, num int32, in, io [][]byte) (int32, error) {
	t := &transfer{ch: ch}
	vec := make([]byte, IOVEC_SIZE*(len(in)+len(io)))
	for i, p := range append(append([][]byte(nil), in...), io...) {
		addr, n, err := t.add(p, i >= len(in))
		if err != nil {
			t.abandon()
			return 0, fmt.Errorf("ipc: ioctlv 0x%X: %w", num, err)
		}
		binary.BigEndian.PutUint32(vec[IOVEC_SIZE*i:], uint32(addr))
		binary.BigEndian.PutUint32(vec[IOVEC_SIZE*i+4:], uint32(n))
	}
	vecAddr, _, err := t.add(vec, false)
	if err != nil {
		t.abandon()
		return 0, fmt.Errorf("ipc: ioctlv 0x%X: %w", num, err)
	}
	return ch.call(ctx, t, NewRequest(CMD_IOCTLV, int32(fd), num, int32(len(in)), int32(len(io)), vecAddr))
}
