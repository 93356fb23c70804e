// starlet_constants.go - Simulated coprocessor limits and firmware values

package starlet

const (
	MAX_FDS = 32 // open descriptor slots

	PATH_BUFFER = 0x40 // bytes read from an open request's path argument

	// STM_VERSION is what /dev/stm/immediate reports for IOCTL_READVER.
	STM_VERSION = 0x00020011
)
