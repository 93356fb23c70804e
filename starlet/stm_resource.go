// stm_resource.go - State transition manager device

package starlet

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/stm"
)

// PowerState is the console power state tracked by the STM.
type PowerState int

const (
	PowerOn PowerState = iota
	PowerIdle
	PowerOff
)

func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerIdle:
		return "idle"
	case PowerOff:
		return "off"
	}
	return fmt.Sprintf("power(%d)", int(p))
}

// STMState is a snapshot of everything the STM ioctls have changed.
type STMState struct {
	Power      PowerState
	LEDMode    uint32
	LEDFlashes int
	Dimming    bool
	HotResets  int
	Events     []uint32 // posted, not yet collected through the event hook
}

// STMResource serves /dev/stm/immediate and /dev/stm/eventhook. Mount it
// at /dev/stm.
type STMResource struct {
	mu    sync.Mutex
	state STMState
}

func NewSTMResource() *STMResource {
	return &STMResource{}
}

// State returns a copy of the current state.
func (r *STMResource) State() STMState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state
	st.Events = append([]uint32(nil), r.state.Events...)
	return st
}

// Post queues an event for the event hook, such as stm.EVENT_POWER when
// the power button is pressed.
func (r *STMResource) Post(event uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Events = append(r.state.Events, event)
}

func (r *STMResource) Open(name string, mode ipc.Mode) (Handle, error) {
	switch name {
	case "immediate":
		return &stmImmediate{r: r}, nil
	case "eventhook":
		return &stmEventHook{r: r}, nil
	}
	return nil, fmt.Errorf("%w: /dev/stm/%s", ENOENT, name)
}

type stmImmediate struct {
	Unsupported
	r *STMResource
}

func (h *stmImmediate) Ioctl(num int32, in, out []byte) (int32, error) {
	var arg uint32
	if len(in) >= 4 {
		arg = binary.BigEndian.Uint32(in)
	}
	r := h.r
	r.mu.Lock()
	defer r.mu.Unlock()
	switch num {
	case stm.IOCTL_HOTRESET:
		r.state.HotResets++
		r.state.Power = PowerOn
	case stm.IOCTL_SHUTDOWN:
		r.state.Power = PowerOff
	case stm.IOCTL_IDLE:
		r.state.Power = PowerIdle
	case stm.IOCTL_WAKEUP:
		r.state.Power = PowerOn
	case stm.IOCTL_LEDMODE:
		if arg > stm.LED_BRIGHT {
			return 0, fmt.Errorf("%w: LED mode %d", EINVAL, arg)
		}
		r.state.LEDMode = arg
	case stm.IOCTL_LEDFLASH:
		r.state.LEDFlashes++
	case stm.IOCTL_VIDIMMING:
		r.state.Dimming = arg != 0
	case stm.IOCTL_READVER:
		if len(out) < 4 {
			return 0, EINVAL
		}
		binary.BigEndian.PutUint32(out, STM_VERSION)
	case stm.IOCTL_UNREGISTER:
	default:
		return 0, fmt.Errorf("%w: stm ioctl 0x%04X", EINVAL, num)
	}
	glog.V(1).Infof("stm: ioctl 0x%04X arg %d, power %s", num, arg, r.state.Power)
	return 0, nil
}

// stmEventHook hands out posted events one per IOCTL_EVENTHOOK. Real
// firmware holds the reply until an event arrives; here an empty queue
// replies at once with event 0.
type stmEventHook struct {
	Unsupported
	r *STMResource
}

func (h *stmEventHook) Ioctl(num int32, in, out []byte) (int32, error) {
	if num != stm.IOCTL_EVENTHOOK || len(out) < 4 {
		return 0, fmt.Errorf("%w: eventhook ioctl 0x%04X", EINVAL, num)
	}
	r := h.r
	r.mu.Lock()
	defer r.mu.Unlock()
	var ev uint32
	if len(r.state.Events) > 0 {
		ev = r.state.Events[0]
		r.state.Events = r.state.Events[1:]
	}
	binary.BigEndian.PutUint32(out, ev)
	return 0, nil
}
