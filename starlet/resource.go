// resource.go - Devices served by the simulated coprocessor

package starlet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
)

// Resource is a device node or tree mounted under a path prefix. Open
// receives the part of the requested path below the mount point, without
// a leading slash.
type Resource interface {
	Open(name string, mode ipc.Mode) (Handle, error)
}

// Handle is an open descriptor. A non-negative result goes back to the
// application CPU as is; errors are turned into result codes with Code.
type Handle interface {
	Read(p []byte) (int32, error)
	Write(p []byte) (int32, error)
	Seek(offset int32, whence ipc.Whence) (int32, error)
	Ioctl(num int32, in, out []byte) (int32, error)
	Ioctlv(num int32, in, io [][]byte) (int32, error)
	Close() error
}

// Errno is a coprocessor result code used as an error.
type Errno int32

func (e Errno) Error() string {
	if name := ipc.ErrorName(int32(e)); name != "" {
		return "starlet: " + name
	}
	return fmt.Sprintf("starlet: error %d", int32(e))
}

const (
	EACCES = Errno(ipc.IPC_EACCES)
	EEXIST = Errno(ipc.IPC_EEXIST)
	EINVAL = Errno(ipc.IPC_EINVAL)
	ENOENT = Errno(ipc.IPC_ENOENT)
	ENOMEM = Errno(ipc.IPC_ENOMEM)
)

// Code maps err onto the result code placed in a reply.
func Code(err error) int32 {
	var errno Errno
	switch {
	case err == nil:
		return 0
	case errors.As(err, &errno):
		return int32(errno)
	case errors.Is(err, fs.ErrNotExist):
		return ipc.IPC_ENOENT
	case errors.Is(err, fs.ErrPermission):
		return ipc.IPC_EACCES
	case errors.Is(err, fs.ErrExist):
		return ipc.IPC_EEXIST
	}
	return ipc.IPC_EINVAL
}

// Unsupported rejects every operation with EINVAL. Handles embed it and
// override what they implement.
type Unsupported struct{}

func (Unsupported) Read([]byte) (int32, error) { return 0, EINVAL }
func (Unsupported) Write([]byte) (int32, error) { return 0, EINVAL }
func (Unsupported) Seek(int32, ipc.Whence) (int32, error) { return 0, EINVAL }
func (Unsupported) Ioctl(int32, []byte, []byte) (int32, error) { return 0, EINVAL }
func (Unsupported) Ioctlv(int32, [][]byte, [][]byte) (int32, error) { return 0, EINVAL }
func (Unsupported) Close() error { return nil }

type mount struct {
	prefix   string
	resource Resource
}

// lookup returns the resource with the longest prefix covering path, and
// the remainder of the path.
func lookup(mounts []mount, path string) (Resource, string, bool) {
	best := -1
	for i, m := range mounts {
		if path != m.prefix && !strings.HasPrefix(path, strings.TrimSuffix(m.prefix, "/")+"/") {
			continue
		}
		if best < 0 || len(m.prefix) > len(mounts[best].prefix) {
			best = i
		}
	}
	if best < 0 {
		return nil, "", false
	}
	rest := strings.TrimPrefix(path[len(mounts[best].prefix):], "/")
	return mounts[best].resource, rest, true
}

// fdTable is the descriptor table. Slots are reused lowest first.
type fdTable struct {
	slots [MAX_FDS]Handle
}

func (t *fdTable) insert(h Handle) (int32, error) {
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = h
			return int32(i), nil
		}
	}
	return 0, ENOMEM
}

func (t *fdTable) get(fd int32) (Handle, error) {
	if fd < 0 || fd >= MAX_FDS || t.slots[fd] == nil {
		return nil, fmt.Errorf("%w: descriptor %d", EINVAL, fd)
	}
	return t.slots[fd], nil
}

func (t *fdTable) remove(fd int32) (Handle, error) {
	h, err := t.get(fd)
	if err != nil {
		return nil, err
	}
	t.slots[fd] = nil
	return h, nil
}

func (t *fdTable) open() int {
	n := 0
	for _, s := range t.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// openFlags maps an access mode onto host open flags.
func openFlags(mode ipc.Mode) (int, error) {
	switch mode {
	case ipc.MODE_NONE, ipc.MODE_READ:
		return os.O_RDONLY, nil
	case ipc.MODE_WRITE:
		return os.O_WRONLY | os.O_CREATE, nil
	case ipc.MODE_RW:
		return os.O_RDWR | os.O_CREATE, nil
	}
	return 0, fmt.Errorf("%w: mode %d", EINVAL, mode)
}
