package platform

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/intuitionamiga/IntuitionHAL/cache"
	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/machine"
	"github.com/intuitionamiga/IntuitionHAL/starlet"
	"github.com/intuitionamiga/IntuitionHAL/stm"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Memory = machine.Config{MEM1Size: 0x10000, MEM2Size: 0x200000}
	cfg.IPC = ipc.Config{}
	return cfg
}

func newTestPlatform(t *testing.T, cfg Config) *Platform {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	p.Start(context.Background())
	t.Cleanup(func() {
		if err := p.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return p
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recorder collects dispatched lines.
type recorder struct {
	mu    sync.Mutex
	lines []irq.IRQ
}

func (r *recorder) HandleIRQ(line irq.IRQ, ctx any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recorder) got() []irq.IRQ {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]irq.IRQ(nil), r.lines...)
}

func TestPlatform_OpenCloseThroughCaches(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	ctx := testContext(t)

	fd, err := p.Channel.Open(ctx, stm.PATH_IMMEDIATE, ipc.MODE_NONE)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Channel.Close(ctx, fd); err != nil {
		t.Fatal(err)
	}

	st := p.Status()
	if st.Requests != 2 || st.Replies != 2 || st.Descriptors != 0 || st.ArenaRegions != 0 {
		t.Errorf("unexpected status after open/close: %+v", st)
	}
	if st.ChannelState != ipc.StateIdle.String() {
		t.Errorf("channel left in %s", st.ChannelState)
	}

	var flushes int
	for _, op := range p.Core.Ops() {
		if op.Name == "dcbf" {
			flushes++
		}
	}
	if flushes == 0 {
		t.Error("expected the control blocks to be flushed")
	}
}

func TestPlatform_ReadFileThroughCaches(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	dir := t.TempDir()
	content := bytes.Repeat([]byte("0123456789abcdef"), 9) // spans several lines
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), content, 0644); err != nil {
		t.Fatal(err)
	}
	fsr, err := starlet.NewFSResource(dir)
	if err != nil {
		t.Fatal(err)
	}
	p.Mount("/host", fsr)
	ctx := testContext(t)

	fd, err := p.Channel.Open(ctx, "/host/data.bin", ipc.MODE_READ)
	if err != nil {
		t.Fatal(err)
	}
	// Two reads into the same sized buffer reuse the same arena region;
	// the second must not see lines cached by the first.
	for _, want := range [][]byte{content[:64], content[64:128]} {
		buf := make([]byte, 64)
		n, err := p.Channel.Read(ctx, fd, buf)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf[:n], want) {
			t.Errorf("expected %q, got %q", want, buf[:n])
		}
	}
	if err := p.Channel.Close(ctx, fd); err != nil {
		t.Fatal(err)
	}
}

func TestPlatform_LateReplyDoesNotAnswerNextRequest(t *testing.T) {
	cfg := testConfig()
	cfg.Starlet.ReplyDelay = 100 * time.Millisecond
	p := newTestPlatform(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := p.Channel.Open(ctx, stm.PATH_IMMEDIATE, ipc.MODE_NONE)
	cancel()
	if !errors.Is(err, ipc.ErrTransportTimeout) {
		t.Fatalf("expected ErrTransportTimeout, got %v", err)
	}
	time.Sleep(300 * time.Millisecond) // the late reply lands

	fd, err := p.Channel.Open(testContext(t), "/does/not/exist", ipc.MODE_NONE)
	var re *ipc.RemoteError
	if !errors.As(err, &re) || re.Code != ipc.IPC_ENOENT {
		t.Fatalf("expected ENOENT, got fd %d, %v", fd, err)
	}
	if p.Channel.Orphans() != 0 {
		t.Errorf("expected the late reply consumed, %d orphans left", p.Channel.Orphans())
	}
	if p.Arena.InUse() != 0 {
		t.Errorf("expected every region reclaimed, %d still published", p.Arena.InUse())
	}
}

func TestPlatform_STMStateChanges(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	ctx := testContext(t)
	d, err := stm.Open(ctx, p.Channel)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if got := p.STM.State().Power; got != starlet.PowerOff {
		t.Errorf("expected power off, got %s", got)
	}
}

func TestPlatform_RaiseDispatches(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	rec := &recorder{}
	for _, line := range []irq.IRQ{irq.IRQ_PI_VI, irq.IRQ_EXI2_TC, irq.IRQ_MEM3, irq.IRQ_DSP_ARAM} {
		if _, err := p.IRQ.Register(line, rec, nil); err != nil {
			t.Fatal(err)
		}
	}
	for _, line := range []irq.IRQ{irq.IRQ_PI_VI, irq.IRQ_EXI2_TC, irq.IRQ_MEM3, irq.IRQ_DSP_ARAM} {
		if err := p.Raise(line); err != nil {
			t.Fatal(err)
		}
		if err := p.Lower(line); err != nil {
			t.Fatal(err)
		}
	}
	want := []irq.IRQ{irq.IRQ_PI_VI, irq.IRQ_EXI2_TC, irq.IRQ_MEM3, irq.IRQ_DSP_ARAM}
	if diff := cmp.Diff(want, rec.got()); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
	if st := p.Status(); st.Cause != 0 || st.Serviced != 4 {
		t.Errorf("expected sources quiet and 4 serviced: %+v", st)
	}
}

func TestPlatform_HandlerClearsSourceRegister(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	l := p.IRQ.Layout()
	cleared := false
	_, err := p.IRQ.Register(irq.IRQ_AI, irq.HandlerFunc(func(line irq.IRQ, ctx any) {
		p.Bus.Write32(l.AI+irq.AI_CR, irq.AI_CR_AIINT)
		cleared = true
	}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Raise(irq.IRQ_AI); err != nil {
		t.Fatal(err)
	}
	if !cleared {
		t.Fatal("handler did not run")
	}
	if cause := p.Bus.Read32(l.PI + irq.PI_INTSR); cause&irq.PI_CAUSE_AI != 0 {
		t.Errorf("AI cause still set after acknowledge: 0x%X", cause)
	}
}

func TestPlatform_MaskedLineTakesNoException(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	p.Bus.Write32(p.IRQ.Layout().PI+irq.PI_INTMR, 0)
	if err := p.Raise(irq.IRQ_PI_SI); err != nil {
		t.Fatal(err)
	}
	if st := p.Status(); st.Exceptions != 0 || st.Cause&irq.PI_CAUSE_SI == 0 {
		t.Errorf("expected a pending but masked cause: %+v", st)
	}
}

func TestPlatform_DeferredUntilInterruptsEnabled(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	rec := &recorder{}
	if _, err := p.IRQ.Register(irq.IRQ_PI_DI, rec, nil); err != nil {
		t.Fatal(err)
	}

	p.Core.MoveToMSR(p.Core.MoveFromMSR() &^ cache.MSR_EE)
	if err := p.Raise(irq.IRQ_PI_DI); err != nil {
		t.Fatal(err)
	}
	if len(rec.got()) != 0 {
		t.Fatal("dispatched with MSR[EE] clear")
	}
	if st := p.Status(); st.Deferred != 1 {
		t.Errorf("expected 1 deferred exception, got %d", st.Deferred)
	}

	p.Core.MoveToMSR(p.Core.MoveFromMSR() | cache.MSR_EE)
	if diff := cmp.Diff([]irq.IRQ{irq.IRQ_PI_DI}, rec.got()); diff != "" {
		t.Errorf("deferred dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestPlatform_EnhanceL2PreservesMasking(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	rec := &recorder{}
	if _, err := p.IRQ.Register(irq.IRQ_PI_RSW, rec, nil); err != nil {
		t.Fatal(err)
	}

	p.Core.MoveToMSR(p.Core.MoveFromMSR() &^ cache.MSR_EE)
	if err := p.Raise(irq.IRQ_PI_RSW); err != nil {
		t.Fatal(err)
	}
	ok, err := p.Cache.EnhanceL2(testContext(t))
	if err != nil || !ok {
		t.Fatalf("EnhanceL2 = %v, %v", ok, err)
	}
	if len(rec.got()) != 0 || p.Core.InterruptsEnabled() {
		t.Fatal("EnhanceL2 enabled interrupts that were disabled on entry")
	}

	p.Core.MoveToMSR(p.Core.MoveFromMSR() | cache.MSR_EE)
	if diff := cmp.Diff([]irq.IRQ{irq.IRQ_PI_RSW}, rec.got()); diff != "" {
		t.Errorf("deferred dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestPlatform_IPCInterruptOnACR(t *testing.T) {
	p := newTestPlatform(t, testConfig())
	fired := make(chan irq.IRQ, 4)
	_, err := p.IRQ.Register(irq.IRQ_PI_ACR, irq.HandlerFunc(func(line irq.IRQ, ctx any) {
		fired <- line
	}), nil)
	if err != nil {
		t.Fatal(err)
	}

	req, _ := ipc.NewRequest(ipc.CMD_CLOSE, 9).MarshalBinary()
	if err := p.Bus.WritePhys(machine.MEM2_BASE, req); err != nil {
		t.Fatal(err)
	}
	enable := ipc.PPCControl(0).WithReplyIRQ(true)
	p.Bus.Write32(ipc.HW_IPC_PPCMSG, machine.MEM2_BASE)
	p.Bus.Write32(ipc.HW_IPC_PPCCTRL, uint32(enable.WithExecute(true)))

	select {
	case line := <-fired:
		if line != irq.IRQ_PI_ACR {
			t.Errorf("expected ACR, got %d", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reply did not raise the ACR interrupt")
	}

	p.Bus.Write32(ipc.HW_IPC_PPCCTRL, uint32(enable.WithAcknowledge(true).WithReply(true)))
	if cause := p.Status().Cause; cause&irq.PI_CAUSE_ACR != 0 {
		t.Errorf("ACR cause still set after the reply was consumed: 0x%X", cause)
	}
}

func TestPlatform_GameCubeHasNoACR(t *testing.T) {
	cfg := testConfig()
	cfg.Layout = irq.GameCubeLayout
	p := newTestPlatform(t, cfg)
	if err := p.Raise(irq.IRQ_PI_ACR); err == nil {
		t.Error("expected ACR to be refused on the GameCube layout")
	}
	if err := p.Raise(irq.IRQ_MAX - 1); err == nil {
		t.Error("expected an unknown line to be refused")
	}
}

func TestNew_ArenaNeedsMEM2(t *testing.T) {
	cfg := testConfig()
	cfg.Memory.MEM2Size = 0x1000
	if _, err := New(cfg); err == nil {
		t.Error("expected New to refuse a MEM2 smaller than the arena")
	}
}
