// scenario.go - Lua scenario scripts driving the monitor

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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/irq"
)

/*
A scenario is a Lua script run against the platform once it is up. It
gets a "hal" table:

    hal.exec(line)                  run a monitor command, raise on error
    hal.try(line)                   -> output, err
    hal.open(path [, mode])         -> fd | nil, err
    hal.close(fd)                   -> true | nil, err
    hal.read(fd, n)                 -> data | nil, err
    hal.write(fd, data)             -> n | nil, err
    hal.ioctl(fd, num [, in [, outlen]]) -> ret, out | nil, err
    hal.raise(irq) / hal.lower(irq)
    hal.status()                    -> table

Modes are the strings the monitor accepts ("r", "w", "rw", "none").
print writes to the scenario's output.
*/

// Scenario is one loaded script.
type Scenario struct {
	m   *Monitor
	out io.Writer
	vm  *lua.LState
}

// NewScenario prepares an interpreter bound to m.
func NewScenario(m *Monitor, out io.Writer) *Scenario {
	s := &Scenario{m: m, out: out, vm: lua.NewState()}
	s.install()
	return s
}

// RunScenario runs the script at path and closes the interpreter.
func RunScenario(m *Monitor, path string, out io.Writer) error {
	s := NewScenario(m, out)
	defer s.Close()
	if err := s.vm.DoFile(path); err != nil {
		return fmt.Errorf("scenario %s: %w", path, err)
	}
	return nil
}

// Run executes src.
func (s *Scenario) Run(src string) error {
	if err := s.vm.DoString(src); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	return nil
}

func (s *Scenario) Close() {
	s.vm.Close()
}

func (s *Scenario) install() {
	hal := s.vm.NewTable()
	s.vm.SetFuncs(hal, map[string]lua.LGFunction{
		"exec":   s.luaExec,
		"try":    s.luaTry,
		"open":   s.luaOpen,
		"close":  s.luaClose,
		"read":   s.luaRead,
		"write":  s.luaWrite,
		"ioctl":  s.luaIoctl,
		"raise":  s.luaRaise,
		"lower":  s.luaLower,
		"status": s.luaStatus,
	})
	s.vm.SetGlobal("hal", hal)
	s.vm.SetGlobal("print", s.vm.NewFunction(s.luaPrint))
}

// fail returns nil, msg to the script.
func fail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func (s *Scenario) luaPrint(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	fmt.Fprintln(s.out, strings.Join(parts, "\t"))
	return 0
}

func (s *Scenario) luaExec(L *lua.LState) int {
	out, err := s.m.Execute(L.CheckString(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LString(out))
	return 1
}

func (s *Scenario) luaTry(L *lua.LState) int {
	out, err := s.m.Execute(L.CheckString(1))
	L.Push(lua.LString(out))
	if err != nil {
		L.Push(lua.LString(err.Error()))
	} else {
		L.Push(lua.LNil)
	}
	return 2
}

func (s *Scenario) luaOpen(L *lua.LState) int {
	path := L.CheckString(1)
	mode, err := parseMode(L.OptString(2, "none"))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	var fd ipc.FD
	err = s.m.do(func(c *channelCall) (err error) {
		fd, err = c.ch.Open(c.ctx, path, mode)
		return err
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LNumber(fd))
	return 1
}

func (s *Scenario) luaClose(L *lua.LState) int {
	fd := ipc.FD(L.CheckInt(1))
	if err := s.m.do(func(c *channelCall) error { return c.ch.Close(c.ctx, fd) }); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (s *Scenario) luaRead(L *lua.LState) int {
	fd := ipc.FD(L.CheckInt(1))
	n := L.CheckInt(2)
	if n < 0 || n > transferLimit {
		L.ArgError(2, "length out of range")
		return 0
	}
	buf := make([]byte, n)
	var got int32
	err := s.m.do(func(c *channelCall) (err error) {
		got, err = c.ch.Read(c.ctx, fd, buf)
		return err
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LString(buf[:got]))
	return 1
}

func (s *Scenario) luaWrite(L *lua.LState) int {
	fd := ipc.FD(L.CheckInt(1))
	data := []byte(L.CheckString(2))
	var n int32
	err := s.m.do(func(c *channelCall) (err error) {
		n, err = c.ch.Write(c.ctx, fd, data)
		return err
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LNumber(n))
	return 1
}

func (s *Scenario) luaIoctl(L *lua.LState) int {
	fd := ipc.FD(L.CheckInt(1))
	num := int32(L.CheckInt(2))
	in := []byte(L.OptString(3, ""))
	outlen := L.OptInt(4, 0)
	if outlen < 0 || outlen > transferLimit {
		L.ArgError(4, "output length out of range")
		return 0
	}
	out := make([]byte, outlen)
	var ret int32
	err := s.m.do(func(c *channelCall) (err error) {
		ret, err = c.ch.Ioctl(c.ctx, fd, num, in, out)
		return err
	})
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LNumber(ret))
	L.Push(lua.LString(out))
	return 2
}

func (s *Scenario) line(L *lua.LState, on bool) int {
	line, err := irq.ParseIRQ(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	if err := s.m.drive(line, on); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (s *Scenario) luaRaise(L *lua.LState) int { return s.line(L, true) }

func (s *Scenario) luaLower(L *lua.LState) int { return s.line(L, false) }

func (s *Scenario) luaStatus(L *lua.LState) int {
	data, err := json.Marshal(s.m.status())
	if err != nil {
		return fail(L, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fail(L, err)
	}
	t := L.NewTable()
	for k, v := range fields {
		switch v := v.(type) {
		case float64:
			L.SetField(t, k, lua.LNumber(v))
		case bool:
			L.SetField(t, k, lua.LBool(v))
		case string:
			L.SetField(t, k, lua.LString(v))
		}
	}
	L.Push(t)
	return 1
}
