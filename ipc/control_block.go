// control_block.go - The 32-byte request/reply record exchanged with the coprocessor

package ipc

import (
	"encoding/binary"
	"fmt"
)

// ControlBlock is one request or reply. On the wire it is eight big-endian
// words: command, result, descriptor, then five arguments.
//
// A block is owned by its builder until Send publishes it. From then on it
// belongs to the coprocessor and the caller only gets the reply back.
type ControlBlock struct {
	Command Command
	Result  int32
	FD      int32
	Args    [5]int32

	detached bool
}

// NewRequest builds a request block. Requests that do not act on a
// descriptor pass -1.
func NewRequest(cmd Command, fd int32, args ...int32) *ControlBlock {
	cb := &ControlBlock{Command: cmd, FD: fd}
	copy(cb.Args[:], args)
	return cb
}

// Detached reports whether the block has been handed to the coprocessor.
func (cb *ControlBlock) Detached() bool {
	return cb.detached
}

func (cb *ControlBlock) MarshalBinary() ([]byte, error) {
	b := make([]byte, CONTROL_BLOCK_SIZE)
	binary.BigEndian.PutUint32(b[0:], uint32(cb.Command))
	binary.BigEndian.PutUint32(b[4:], uint32(cb.Result))
	binary.BigEndian.PutUint32(b[8:], uint32(cb.FD))
	for i, a := range cb.Args {
		binary.BigEndian.PutUint32(b[12+4*i:], uint32(a))
	}
	return b, nil
}

func (cb *ControlBlock) UnmarshalBinary(b []byte) error {
	if len(b) < CONTROL_BLOCK_SIZE {
		return fmt.Errorf("ipc: control block needs %d bytes, got %d", CONTROL_BLOCK_SIZE, len(b))
	}
	cb.Command = Command(binary.BigEndian.Uint32(b[0:]))
	cb.Result = int32(binary.BigEndian.Uint32(b[4:]))
	cb.FD = int32(binary.BigEndian.Uint32(b[8:]))
	for i := range cb.Args {
		cb.Args[i] = int32(binary.BigEndian.Uint32(b[12+4*i:]))
	}
	return nil
}

func (cb *ControlBlock) String() string {
	return fmt.Sprintf("%s fd=%d ret=%d args=%v", cb.Command, cb.FD, cb.Result, cb.Args)
}
