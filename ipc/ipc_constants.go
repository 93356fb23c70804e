// ipc_constants.go - IPC register map and request encodings

package ipc

import "fmt"

// Register addresses (physical).
const (
	HW_IPC_PPCMSG  = 0x0D000000 // request address, PPC -> ARM
	HW_IPC_PPCCTRL = 0x0D000004 // PPC side control
	HW_IPC_ARMMSG  = 0x0D000008 // reply address, ARM -> PPC
	HW_IPC_ARMCTRL = 0x0D00000C // ARM side control
)

// HW_IPC_PPCCTRL bit positions.
const (
	PPC_X1  = 0 // execute request
	PPC_Y2  = 1 // request acknowledged
	PPC_Y1  = 2 // reply available
	PPC_X2  = 3 // relaunch
	PPC_IY1 = 4 // reply raises an interrupt
	PPC_IY2 = 5 // acknowledge raises an interrupt
)

// HW_IPC_ARMCTRL bit positions.
const (
	ARM_Y1  = 0 // reply available
	ARM_X2  = 1 // relaunch
	ARM_X1  = 2 // execute request
	ARM_Y2  = 3 // request acknowledged
	ARM_IX1 = 4 // execute raises an interrupt
	ARM_IX2 = 5 // relaunch raises an interrupt
)

const (
	MESSAGE_ADDRESS_MASK = 0x7FFFFFFF

	CONTROL_BLOCK_SIZE = 32
	MAX_PATH           = 0x40 // open buffer size, path plus NUL
	IOVEC_SIZE         = 8
)

// Command is the request tag in the first word of a control block.
type Command uint32

const (
	CMD_OPEN   Command = 1
	CMD_CLOSE  Command = 2
	CMD_READ   Command = 3
	CMD_WRITE  Command = 4
	CMD_SEEK   Command = 5
	CMD_IOCTL  Command = 6
	CMD_IOCTLV Command = 7
	CMD_REPLY  Command = 8 // set by the coprocessor on every reply
)

var commandNames = map[Command]string{
	CMD_OPEN:   "open",
	CMD_CLOSE:  "close",
	CMD_READ:   "read",
	CMD_WRITE:  "write",
	CMD_SEEK:   "seek",
	CMD_IOCTL:  "ioctl",
	CMD_IOCTLV: "ioctlv",
	CMD_REPLY:  "reply",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", uint32(c))
}

// Mode is the access mode argument of open.
type Mode int32

const (
	MODE_NONE  Mode = 0
	MODE_READ  Mode = 1
	MODE_WRITE Mode = 2
	MODE_RW    Mode = 3
)

// Whence is the origin argument of seek.
type Whence int32

const (
	SEEK_START   Whence = 0
	SEEK_CURRENT Whence = 1
	SEEK_END     Whence = 2
)

// Error codes returned by the coprocessor.
const (
	IPC_EACCES     = -1
	IPC_EEXIST     = -2
	IPC_EINVAL     = -4
	IPC_ENOENT     = -6
	IPC_EQUEUEFULL = -8
	IPC_ENOMEM     = -22
)

var errorNames = map[int32]string{
	IPC_EACCES:     "EACCES",
	IPC_EEXIST:     "EEXIST",
	IPC_EINVAL:     "EINVAL",
	IPC_ENOENT:     "ENOENT",
	IPC_EQUEUEFULL: "EQUEUEFULL",
	IPC_ENOMEM:     "ENOMEM",
}

// ErrorName returns the symbolic name of a result code, or "" if it has none.
func ErrorName(code int32) string {
	return errorNames[code]
}
