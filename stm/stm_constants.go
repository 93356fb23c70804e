// stm_constants.go - State transition manager device paths and ioctls

package stm

const (
	PATH_IMMEDIATE = "/dev/stm/immediate"
	PATH_EVENTHOOK = "/dev/stm/eventhook"
)

// Ioctl numbers.
const (
	IOCTL_EVENTHOOK  = 0x1000
	IOCTL_HOTRESET   = 0x2001
	IOCTL_SHUTDOWN   = 0x2003
	IOCTL_IDLE       = 0x2004
	IOCTL_WAKEUP     = 0x2005
	IOCTL_UNREGISTER = 0x3002
	IOCTL_VIDIMMING  = 0x5001
	IOCTL_LEDFLASH   = 0x6001
	IOCTL_LEDMODE    = 0x6002
	IOCTL_READVER    = 0x7001
)

// LED modes.
const (
	LED_OFF    = 0
	LED_DIM    = 1
	LED_BRIGHT = 2
)

// Events delivered through the event hook.
const (
	EVENT_RESET = 0x00020000
	EVENT_POWER = 0x00000800
)

const BUFFER_SIZE = 0x20
