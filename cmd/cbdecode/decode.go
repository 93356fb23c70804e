package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

// argNames labels the argument words of each request.
var argNames = map[ipc.Command][]string{
	ipc.CMD_OPEN:   {"path", "mode"},
	ipc.CMD_READ:   {"buf", "len"},
	ipc.CMD_WRITE:  {"buf", "len"},
	ipc.CMD_SEEK:   {"offset", "whence"},
	ipc.CMD_IOCTL:  {"num", "in", "inlen", "out", "outlen"},
	ipc.CMD_IOCTLV: {"num", "nin", "nio", "vec"},
}

var addressArgs = map[string]bool{"path": true, "buf": true, "in": true, "out": true, "vec": true}

// ParseBlock reads a control block written as hex. Spaces, colons and a
// leading 0x are ignored.
func ParseBlock(s string) (*ipc.ControlBlock, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", "\t", "", ":", "").Replace(s)
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex: %w", err)
	}
	if len(raw) != ipc.CONTROL_BLOCK_SIZE {
		return nil, fmt.Errorf("control block is %d bytes, got %d", ipc.CONTROL_BLOCK_SIZE, len(raw))
	}
	cb := &ipc.ControlBlock{}
	if err := cb.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return cb, nil
}

// DescribeBlock renders cb with its arguments named.
func DescribeBlock(cb *ipc.ControlBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s fd=%d", cb.Command, cb.FD)
	if cb.Command == ipc.CMD_REPLY {
		fmt.Fprintf(&sb, " result=%d", cb.Result)
		if name := ipc.ErrorName(cb.Result); name != "" {
			fmt.Fprintf(&sb, " (%s)", name)
		}
	}
	names := argNames[cb.Command]
	for i, a := range cb.Args {
		name := fmt.Sprintf("arg%d", i)
		if i < len(names) {
			name = names[i]
		} else if a == 0 {
			continue
		}
		if addressArgs[name] {
			fmt.Fprintf(&sb, " %s=0x%08X", name, uint32(a))
		} else {
			fmt.Fprintf(&sb, " %s=%d", name, a)
		}
	}
	return sb.String()
}

type bitName struct {
	bit  uint
	name string
}

var ppcBits = []bitName{
	{ipc.PPC_X1, "X1"}, {ipc.PPC_Y2, "Y2"}, {ipc.PPC_Y1, "Y1"},
	{ipc.PPC_X2, "X2"}, {ipc.PPC_IY1, "IY1"}, {ipc.PPC_IY2, "IY2"},
}

var armBits = []bitName{
	{ipc.ARM_Y1, "Y1"}, {ipc.ARM_X2, "X2"}, {ipc.ARM_X1, "X1"},
	{ipc.ARM_Y2, "Y2"}, {ipc.ARM_IX1, "IX1"}, {ipc.ARM_IX2, "IX2"},
}

func describeBits(v uint32, names []bitName) string {
	var set []string
	for _, b := range names {
		if mmio.Bit(v, b.bit) {
			set = append(set, b.name)
		}
	}
	if len(set) == 0 {
		return "-"
	}
	return strings.Join(set, "|")
}

// DescribePPCControl names the bits set in a HW_IPC_PPCCTRL value.
func DescribePPCControl(v uint32) string { return describeBits(v, ppcBits) }

// DescribeARMControl names the bits set in a HW_IPC_ARMCTRL value.
func DescribeARMControl(v uint32) string { return describeBits(v, armBits) }

var piCauseNames = []struct {
	bit  uint32
	name string
}{
	{irq.PI_CAUSE_ERROR, "ERROR"},
	{irq.PI_CAUSE_RSW, "RSW"},
	{irq.PI_CAUSE_DI, "DI"},
	{irq.PI_CAUSE_SI, "SI"},
	{irq.PI_CAUSE_EXI, "EXI"},
	{irq.PI_CAUSE_AI, "AI"},
	{irq.PI_CAUSE_DSP, "DSP"},
	{irq.PI_CAUSE_MEM, "MEM"},
	{irq.PI_CAUSE_VI, "VI"},
	{irq.PI_CAUSE_PETOKEN, "PETOKEN"},
	{irq.PI_CAUSE_PEFINISH, "PEFINISH"},
	{irq.PI_CAUSE_CP, "CP"},
	{irq.PI_CAUSE_DEBUG, "DEBUG"},
	{irq.PI_CAUSE_HSP, "HSP"},
	{irq.PI_CAUSE_ACR, "ACR"},
	{irq.PI_CAUSE_RESERVED, "RSWST"},
}

// DescribeCause names the bits of a PI cause or mask value.
func DescribeCause(v uint32) string {
	var set []string
	for _, c := range piCauseNames {
		if v&c.bit != 0 {
			set = append(set, c.name)
		}
	}
	if len(set) == 0 {
		return "-"
	}
	return strings.Join(set, "|")
}

// DescribeRegisters reads the IPC register block through bus.
func DescribeRegisters(bus mmio.Bus) string {
	ppcmsg := bus.Read32(ipc.HW_IPC_PPCMSG)
	ppcctrl := bus.Read32(ipc.HW_IPC_PPCCTRL)
	armmsg := bus.Read32(ipc.HW_IPC_ARMMSG)
	armctrl := bus.Read32(ipc.HW_IPC_ARMCTRL)
	return fmt.Sprintf("PPCMSG  %08X\nPPCCTRL %08X %s\nARMMSG  %08X\nARMCTRL %08X %s",
		ppcmsg, ppcctrl, DescribePPCControl(ppcctrl), armmsg, armctrl, DescribeARMControl(armctrl))
}
