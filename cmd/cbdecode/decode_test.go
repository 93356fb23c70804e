package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

func blockHex(t *testing.T, cb *ipc.ControlBlock) string {
	t.Helper()
	raw, err := cb.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	h := hex.EncodeToString(raw)
	words := make([]string, 0, len(h)/8)
	for i := 0; i < len(h); i += 8 {
		words = append(words, h[i:i+8])
	}
	return strings.Join(words, " ")
}

func TestDescribeBlock(t *testing.T) {
	reply := ipc.NewRequest(ipc.CMD_REPLY, 3)
	reply.Result = ipc.IPC_ENOENT
	cases := []struct {
		cb   *ipc.ControlBlock
		want string
	}{
		{ipc.NewRequest(ipc.CMD_OPEN, -1, 0x133E0000, int32(ipc.MODE_RW)), "open fd=-1 path=0x133E0000 mode=3"},
		{ipc.NewRequest(ipc.CMD_CLOSE, 2), "close fd=2"},
		{ipc.NewRequest(ipc.CMD_SEEK, 1, -16, int32(ipc.SEEK_END)), "seek fd=1 offset=-16 whence=2"},
		{ipc.NewRequest(ipc.CMD_IOCTL, 0, 0x7001, 0, 0, 0x133E0020, 4), "ioctl fd=0 num=28673 in=0x00000000 inlen=0 out=0x133E0020 outlen=4"},
		{reply, "reply fd=3 result=-6 (ENOENT)"},
	}
	for _, tc := range cases {
		cb, err := ParseBlock(blockHex(t, tc.cb))
		if err != nil {
			t.Fatal(err)
		}
		if got := DescribeBlock(cb); got != tc.want {
			t.Errorf("got  %q\nwant %q", got, tc.want)
		}
	}
}

func TestParseBlock_Errors(t *testing.T) {
	for _, s := range []string{"zz", "00000001", strings.Repeat("00", 33)} {
		if _, err := ParseBlock(s); err == nil {
			t.Errorf("ParseBlock(%q) accepted", s)
		}
	}
	if _, err := ParseBlock("0x" + strings.Repeat("00:", 31) + "00"); err != nil {
		t.Errorf("colon separated block refused: %v", err)
	}
}

func TestDescribeControl(t *testing.T) {
	ppc := ipc.PPCControl(0).WithExecute(true).WithReply(true).WithReplyIRQ(true)
	if got := DescribePPCControl(uint32(ppc)); got != "X1|Y1|IY1" {
		t.Errorf("PPCCTRL: %q", got)
	}
	arm := ipc.ARMControl(0).WithAcknowledge(true).WithExecute(true)
	if got := DescribeARMControl(uint32(arm)); got != "X1|Y2" {
		t.Errorf("ARMCTRL: %q", got)
	}
	if got := DescribePPCControl(0); got != "-" {
		t.Errorf("empty: %q", got)
	}
	if got := DescribeCause(0x4120); got != "AI|VI|ACR" {
		t.Errorf("cause: %q", got)
	}
}

// regs is a register file keyed by address.
type regs map[uint32]uint32

func (r regs) Read32(addr uint32) uint32 { return r[addr] }
func (r regs) Write32(addr uint32, v uint32) { r[addr] = v }
func (r regs) Read16(addr uint32) uint16 { return uint16(r[addr]) }
func (r regs) Write16(addr uint32, v uint16) { r[addr] = uint32(v) }

var _ mmio.Bus = regs(nil)

func TestDescribeRegisters(t *testing.T) {
	r := regs{
		ipc.HW_IPC_PPCMSG:  0x133E0000,
		ipc.HW_IPC_PPCCTRL: 0x02,
		ipc.HW_IPC_ARMMSG:  0x133E0000,
		ipc.HW_IPC_ARMCTRL: 0x01,
	}
	want := "PPCMSG  133E0000\nPPCCTRL 00000002 Y2\nARMMSG  133E0000\nARMCTRL 00000001 Y1"
	if diff := cmp.Diff(want, DescribeRegisters(r)); diff != "" {
		t.Errorf("register dump mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLines(t *testing.T) {
	cb := ipc.NewRequest(ipc.CMD_CLOSE, 4)
	in := "# captured\n" + blockHex(t, cb) + "\n\nnot hex\n"
	var out bytes.Buffer
	if decodeLines(strings.NewReader(in), &out) {
		t.Error("expected the bad line to be reported")
	}
	if got := out.String(); got != "close fd=4\n" {
		t.Errorf("output %q", got)
	}
}

func TestDescribeRegisters_DevMem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs")
	size := os.Getpagesize()
	raw := make([]byte, size)
	binary.NativeEndian.PutUint32(raw[4:], 0x04) // PPCCTRL Y1
	if err := os.WriteFile(path, raw, 0600); err != nil {
		t.Fatal(err)
	}
	m, err := mmio.OpenDevMem(path, 0, uint32(size))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if got := DescribePPCControl(m.Read32(4)); got != "Y1" {
		t.Errorf("PPCCTRL through the mapping: %q", got)
	}
}
