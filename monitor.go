// monitor.go - Command monitor for the simulated platform

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionHAL
License: GPLv3 or later
*/

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/intuitionamiga/IntuitionHAL/cache"
	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/platform"
)

// MonitorCommand is a parsed command with name and arguments.
type MonitorCommand struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into a command name and arguments.
func ParseCommand(input string) MonitorCommand {
	input = strings.TrimSpace(input)
	if input == "" {
		return MonitorCommand{}
	}
	parts := strings.Fields(input)
	return MonitorCommand{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// ParseValue parses a monitor number: $hex, 0xhex or decimal, optionally
// negative.
func ParseValue(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		return int64(v), err == nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	return v, err == nil
}

var monitorHelp = []struct{ usage, what string }{
	{"open <path> [none|r|w|rw]", "open a coprocessor resource"},
	{"close <fd>", "close a descriptor"},
	{"read <fd> <len>", "read up to len bytes"},
	{"write <fd> <text>", "write text"},
	{"seek <fd> <offset> [start|cur|end]", "move the file position"},
	{"ioctl <fd> <num> [inhex|-] [outlen]", "issue an ioctl"},
	{"raise <irq>", "assert an interrupt line"},
	{"lower <irq>", "deassert an interrupt line"},
	{"irq", "show interrupt controller state"},
	{"cache [flush|store|inval <addr> <len>]", "show cache registers or maintain a range"},
	{"l2", "run the L2 enhancement sequence"},
	{"state", "platform status as JSON"},
	{"help", "this list"},
}

// Monitor executes text commands against a platform. Commands from the
// console, the control socket and scenario scripts that drive the platform
// are serialised; irq, state and help only read it and never wait.
type Monitor struct {
	p       *platform.Platform
	timeout time.Duration
	busy    sync.Mutex

	mu      sync.Mutex
	history []string
}

// NewMonitor returns a monitor whose channel operations give up after
// timeout. Zero waits for as long as the channel's own poll bound allows.
func NewMonitor(p *platform.Platform, timeout time.Duration) *Monitor {
	return &Monitor{p: p, timeout: timeout}
}

func (m *Monitor) context() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(context.Background(), m.timeout)
	}
	return context.WithCancel(context.Background())
}

// channelCall is what do hands to its callback.
type channelCall struct {
	ctx context.Context
	ch  *ipc.Channel
}

// do runs fn against the channel, one caller at a time.
func (m *Monitor) do(fn func(*channelCall) error) error {
	m.busy.Lock()
	defer m.busy.Unlock()
	ctx, cancel := m.context()
	defer cancel()
	return fn(&channelCall{ctx: ctx, ch: m.p.Channel})
}

func (m *Monitor) drive(line irq.IRQ, on bool) error {
	m.busy.Lock()
	defer m.busy.Unlock()
	if on {
		return m.p.Raise(line)
	}
	return m.p.Lower(line)
}

func (m *Monitor) status() platform.Status {
	return m.p.Status()
}

// History returns the executed command lines, oldest first.
func (m *Monitor) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// Execute runs one command line and returns its output.
func (m *Monitor) Execute(input string) (string, error) {
	cmd := ParseCommand(input)
	if cmd.Name == "" {
		return "", nil
	}

	m.mu.Lock()
	if len(m.history) == 0 || m.history[len(m.history)-1] != input {
		m.history = append(m.history, input)
	}
	m.mu.Unlock()

	switch cmd.Name {
	case "irq":
		return m.cmdIRQ(cmd)
	case "state":
		return m.cmdState(cmd)
	case "?", "help":
		return m.cmdHelp(cmd)
	}

	m.busy.Lock()
	defer m.busy.Unlock()
	switch cmd.Name {
	case "open":
		return m.cmdOpen(cmd)
	case "close":
		return m.cmdClose(cmd)
	case "read":
		return m.cmdRead(cmd)
	case "write":
		return m.cmdWrite(cmd)
	case "seek":
		return m.cmdSeek(cmd)
	case "ioctl":
		return m.cmdIoctl(cmd)
	case "raise":
		return m.cmdLine(cmd, true)
	case "lower":
		return m.cmdLine(cmd, false)
	case "cache":
		return m.cmdCache(cmd)
	case "l2":
		return m.cmdL2(cmd)
	}
	return "", fmt.Errorf("unknown command: %s", cmd.Name)
}

func usageError(cmd MonitorCommand) error {
	for _, h := range monitorHelp {
		if strings.HasPrefix(h.usage, cmd.Name+" ") || h.usage == cmd.Name {
			return fmt.Errorf("usage: %s", h.usage)
		}
	}
	return fmt.Errorf("bad arguments to %s", cmd.Name)
}

func parseFD(s string) (ipc.FD, error) {
	v, ok := ParseValue(s)
	if !ok || v < 0 {
		return 0, fmt.Errorf("bad descriptor %q", s)
	}
	return ipc.FD(v), nil
}

func parseMode(s string) (ipc.Mode, error) {
	switch strings.ToLower(s) {
	case "none", "0":
		return ipc.MODE_NONE, nil
	case "r", "read", "1":
		return ipc.MODE_READ, nil
	case "w", "write", "2":
		return ipc.MODE_WRITE, nil
	case "rw", "3":
		return ipc.MODE_RW, nil
	}
	return 0, fmt.Errorf("bad mode %q", s)
}

func parseWhence(s string) (ipc.Whence, error) {
	switch strings.ToLower(s) {
	case "start", "set":
		return ipc.SEEK_START, nil
	case "cur", "current":
		return ipc.SEEK_CURRENT, nil
	case "end":
		return ipc.SEEK_END, nil
	}
	return 0, fmt.Errorf("bad whence %q", s)
}

func (m *Monitor) cmdOpen(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) < 1 || len(cmd.Args) > 2 {
		return "", usageError(cmd)
	}
	mode := ipc.MODE_NONE
	if len(cmd.Args) == 2 {
		var err error
		if mode, err = parseMode(cmd.Args[1]); err != nil {
			return "", err
		}
	}
	ctx, cancel := m.context()
	defer cancel()
	fd, err := m.p.Channel.Open(ctx, cmd.Args[0], mode)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("fd %d", fd), nil
}

func (m *Monitor) cmdClose(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) != 1 {
		return "", usageError(cmd)
	}
	fd, err := parseFD(cmd.Args[0])
	if err != nil {
		return "", err
	}
	ctx, cancel := m.context()
	defer cancel()
	if err := m.p.Channel.Close(ctx, fd); err != nil {
		return "", err
	}
	return fmt.Sprintf("closed %d", fd), nil
}

func (m *Monitor) cmdRead(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) != 2 {
		return "", usageError(cmd)
	}
	fd, err := parseFD(cmd.Args[0])
	if err != nil {
		return "", err
	}
	n, ok := ParseValue(cmd.Args[1])
	if !ok || n < 0 || n > transferLimit {
		return "", fmt.Errorf("bad length %q", cmd.Args[1])
	}
	buf := make([]byte, n)
	ctx, cancel := m.context()
	defer cancel()
	got, err := m.p.Channel.Read(ctx, fd, buf)
	if err != nil {
		return "", err
	}
	buf = buf[:got]
	return fmt.Sprintf("%d bytes %s %q", got, hex.EncodeToString(buf), buf), nil
}

// transferLimit caps one monitor buffer at a quarter of the arena.
const transferLimit = 0x40000

func (m *Monitor) cmdWrite(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) < 2 {
		return "", usageError(cmd)
	}
	fd, err := parseFD(cmd.Args[0])
	if err != nil {
		return "", err
	}
	ctx, cancel := m.context()
	defer cancel()
	n, err := m.p.Channel.Write(ctx, fd, []byte(strings.Join(cmd.Args[1:], " ")))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d", n), nil
}

func (m *Monitor) cmdSeek(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) < 2 || len(cmd.Args) > 3 {
		return "", usageError(cmd)
	}
	fd, err := parseFD(cmd.Args[0])
	if err != nil {
		return "", err
	}
	off, ok := ParseValue(cmd.Args[1])
	if !ok {
		return "", fmt.Errorf("bad offset %q", cmd.Args[1])
	}
	whence := ipc.SEEK_START
	if len(cmd.Args) == 3 {
		if whence, err = parseWhence(cmd.Args[2]); err != nil {
			return "", err
		}
	}
	ctx, cancel := m.context()
	defer cancel()
	if err := m.p.Channel.Seek(ctx, fd, int32(off), whence); err != nil {
		return "", err
	}
	return "ok", nil
}

func (m *Monitor) cmdIoctl(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) < 2 || len(cmd.Args) > 4 {
		return "", usageError(cmd)
	}
	fd, err := parseFD(cmd.Args[0])
	if err != nil {
		return "", err
	}
	num, ok := ParseValue(cmd.Args[1])
	if !ok {
		return "", fmt.Errorf("bad ioctl number %q", cmd.Args[1])
	}
	var in, out []byte
	if len(cmd.Args) >= 3 && cmd.Args[2] != "-" {
		if in, err = hex.DecodeString(cmd.Args[2]); err != nil {
			return "", fmt.Errorf("bad input buffer: %w", err)
		}
	}
	if len(cmd.Args) == 4 {
		n, ok := ParseValue(cmd.Args[3])
		if !ok || n < 0 || n > transferLimit {
			return "", fmt.Errorf("bad output length %q", cmd.Args[3])
		}
		out = make([]byte, n)
	}
	ctx, cancel := m.context()
	defer cancel()
	ret, err := m.p.Channel.Ioctl(ctx, fd, int32(num), in, out)
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return fmt.Sprintf("ret %d", ret), nil
	}
	return fmt.Sprintf("ret %d out %s", ret, hex.EncodeToString(out)), nil
}

func (m *Monitor) cmdLine(cmd MonitorCommand, on bool) (string, error) {
	if len(cmd.Args) != 1 {
		return "", usageError(cmd)
	}
	line, err := irq.ParseIRQ(cmd.Args[0])
	if err != nil {
		return "", err
	}
	before := m.p.IRQ.Serviced()
	if on {
		err = m.p.Raise(line)
	} else {
		err = m.p.Lower(line)
	}
	if err != nil {
		return "", err
	}
	if n := m.p.IRQ.Serviced() - before; n > 0 {
		return fmt.Sprintf("%s %s, %d handler call(s)", line, onOff(on), n), nil
	}
	return fmt.Sprintf("%s %s", line, onOff(on)), nil
}

func onOff(on bool) string {
	if on {
		return "raised"
	}
	return "lowered"
}

func (m *Monitor) cmdIRQ(cmd MonitorCommand) (string, error) {
	st := m.p.Status()
	prev, cur := m.p.IRQ.Masks()
	var sb strings.Builder
	fmt.Fprintf(&sb, "layout %s  EE %v\n", st.Layout, st.InterruptsOn)
	fmt.Fprintf(&sb, "PI cause %08X  mask %08X\n", st.Cause, st.Mask)
	fmt.Fprintf(&sb, "prev %08X  cur %08X\n", prev, cur)
	fmt.Fprintf(&sb, "exceptions %d  deferred %d  serviced %d  dropped %d  spurious %d",
		st.Exceptions, st.Deferred, st.Serviced, st.Dropped, st.Spurious)
	return sb.String(), nil
}

func (m *Monitor) cmdCache(cmd MonitorCommand) (string, error) {
	if len(cmd.Args) == 0 {
		core := m.p.Core
		regs := map[string]uint32{
			"HID0": core.MoveFromSPR(cache.SPR_HID0),
			"HID2": core.MoveFromSPR(cache.SPR_HID2),
			"HID4": core.MoveFromSPR(cache.SPR_HID4),
			"L2CR": core.MoveFromSPR(cache.SPR_L2CR),
			"PVR":  core.MoveFromSPR(cache.SPR_PVR),
			"MSR":  core.MoveFromMSR(),
		}
		names := make([]string, 0, len(regs))
		for name := range regs {
			names = append(names, name)
		}
		sort.Strings(names)
		var sb strings.Builder
		for _, name := range names {
			fmt.Fprintf(&sb, "%-4s %08X\n", name, regs[name])
		}
		fmt.Fprintf(&sb, "ops  %d", len(core.Ops()))
		return sb.String(), nil
	}
	if len(cmd.Args) != 3 {
		return "", usageError(cmd)
	}
	addr, ok1 := ParseValue(cmd.Args[1])
	length, ok2 := ParseValue(cmd.Args[2])
	if !ok1 || !ok2 || addr < 0 || length < 0 || addr+length > 1<<32 {
		return "", fmt.Errorf("bad range %s %s", cmd.Args[1], cmd.Args[2])
	}
	var err error
	switch strings.ToLower(cmd.Args[0]) {
	case "flush":
		err = m.p.Cache.FlushRange(uint32(addr), uint32(length))
	case "store":
		err = m.p.Cache.StoreRange(uint32(addr), uint32(length))
	case "inval":
		err = m.p.Cache.InvalidateRange(uint32(addr), uint32(length))
	default:
		return "", usageError(cmd)
	}
	if err != nil {
		return "", err
	}
	return "ok", nil
}

func (m *Monitor) cmdL2(cmd MonitorCommand) (string, error) {
	ctx, cancel := m.context()
	defer cancel()
	ok, err := m.p.Cache.EnhanceL2(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "L2 left alone, no HID4 access", nil
	}
	return fmt.Sprintf("L2 enhanced, HID4 %08X", m.p.Core.MoveFromSPR(cache.SPR_HID4)), nil
}

func (m *Monitor) cmdState(cmd MonitorCommand) (string, error) {
	data, err := json.MarshalIndent(m.p.Status(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *Monitor) cmdHelp(cmd MonitorCommand) (string, error) {
	var sb strings.Builder
	for i, h := range monitorHelp {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "  %-40s %s", h.usage, h.what)
	}
	return sb.String(), nil
}
