// errors.go - IPC error values

package ipc

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportTimeout is returned when the coprocessor does not
	// acknowledge or reply within the configured bound.
	ErrTransportTimeout = errors.New("ipc: transport timeout")

	// ErrDetached is returned when a block that was already sent is sent again.
	ErrDetached = errors.New("ipc: control block already handed to the coprocessor")

	ErrPathTooLong  = errors.New("ipc: path too long")
	ErrArenaFull    = errors.New("ipc: arena exhausted")
	ErrNotPublished = errors.New("ipc: address was not published")
)

// RemoteError is a negative result code returned by the coprocessor.
type RemoteError struct {
	Command Command
	Code    int32
}

func (e *RemoteError) Error() string {
	if name, ok := errorNames[e.Code]; ok {
		return fmt.Sprintf("ipc: %s failed with code %d (%s)", e.Command, e.Code, name)
	}
	return fmt.Sprintf("ipc: %s failed with code %d", e.Command, e.Code)
}

// ProtocolError means the handshake lost step with the coprocessor. It is
// raised with panic: no state the channel holds can be trusted afterwards.
type ProtocolError struct {
	Addr   uint32
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ipc: protocol desynchronised at 0x%08X: %s", e.Addr, e.Reason)
}
