// registers.go - Typed views of the IPC control and message registers

package ipc

import "github.com/intuitionamiga/IntuitionHAL/mmio"

// PPCControl is the value of HW_IPC_PPCCTRL.
type PPCControl uint32

func (c PPCControl) Execute() bool { return mmio.Bit(uint32(c), PPC_X1) }
func (c PPCControl) Acknowledge() bool { return mmio.Bit(uint32(c), PPC_Y2) }
func (c PPCControl) Reply() bool { return mmio.Bit(uint32(c), PPC_Y1) }
func (c PPCControl) Relaunch() bool { return mmio.Bit(uint32(c), PPC_X2) }
func (c PPCControl) ReplyIRQ() bool { return mmio.Bit(uint32(c), PPC_IY1) }
func (c PPCControl) AcknowledgeIRQ() bool { return mmio.Bit(uint32(c), PPC_IY2) }

func (c PPCControl) WithExecute(on bool) PPCControl {
	return PPCControl(mmio.WithBit(uint32(c), PPC_X1, on))
}

func (c PPCControl) WithAcknowledge(on bool) PPCControl {
	return PPCControl(mmio.WithBit(uint32(c), PPC_Y2, on))
}

func (c PPCControl) WithReply(on bool) PPCControl {
	return PPCControl(mmio.WithBit(uint32(c), PPC_Y1, on))
}

func (c PPCControl) WithRelaunch(on bool) PPCControl {
	return PPCControl(mmio.WithBit(uint32(c), PPC_X2, on))
}

func (c PPCControl) WithReplyIRQ(on bool) PPCControl {
	return PPCControl(mmio.WithBit(uint32(c), PPC_IY1, on))
}

func (c PPCControl) WithAcknowledgeIRQ(on bool) PPCControl {
	return PPCControl(mmio.WithBit(uint32(c), PPC_IY2, on))
}

// ARMControl is the value of HW_IPC_ARMCTRL.
type ARMControl uint32

func (c ARMControl) Reply() bool { return mmio.Bit(uint32(c), ARM_Y1) }
func (c ARMControl) Relaunch() bool { return mmio.Bit(uint32(c), ARM_X2) }
func (c ARMControl) Execute() bool { return mmio.Bit(uint32(c), ARM_X1) }
func (c ARMControl) Acknowledge() bool { return mmio.Bit(uint32(c), ARM_Y2) }
func (c ARMControl) ExecuteIRQ() bool { return mmio.Bit(uint32(c), ARM_IX1) }
func (c ARMControl) RelaunchIRQ() bool { return mmio.Bit(uint32(c), ARM_IX2) }

func (c ARMControl) WithReply(on bool) ARMControl {
	return ARMControl(mmio.WithBit(uint32(c), ARM_Y1, on))
}

func (c ARMControl) WithRelaunch(on bool) ARMControl {
	return ARMControl(mmio.WithBit(uint32(c), ARM_X2, on))
}

func (c ARMControl) WithExecute(on bool) ARMControl {
	return ARMControl(mmio.WithBit(uint32(c), ARM_X1, on))
}

func (c ARMControl) WithAcknowledge(on bool) ARMControl {
	return ARMControl(mmio.WithBit(uint32(c), ARM_Y2, on))
}

func (c ARMControl) WithExecuteIRQ(on bool) ARMControl {
	return ARMControl(mmio.WithBit(uint32(c), ARM_IX1, on))
}

func (c ARMControl) WithRelaunchIRQ(on bool) ARMControl {
	return ARMControl(mmio.WithBit(uint32(c), ARM_IX2, on))
}

// MessageAddress is the value of HW_IPC_PPCMSG or HW_IPC_ARMMSG: a 31-bit
// physical address, the top bit reserved.
type MessageAddress uint32

func (m MessageAddress) Address() uint32 {
	return uint32(m) & MESSAGE_ADDRESS_MASK
}

func (m MessageAddress) WithAddress(pa uint32) MessageAddress {
	return MessageAddress(uint32(m)&^MESSAGE_ADDRESS_MASK | pa&MESSAGE_ADDRESS_MASK)
}
