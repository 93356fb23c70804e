// console.go - Interactive monitor console on the controlling terminal

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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const consolePrompt = "hal> "

// Console runs the monitor on stdin/stdout. On a terminal stdin is put in
// raw mode for line editing and read non-blocking so Stop can end the
// session; anything else is read line by line.
type Console struct {
	m       *Monitor
	stopCh  chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewConsole(m *Monitor) *Console {
	return &Console{m: m, stopCh: make(chan struct{})}
}

// Run serves commands until quit, end of input or Stop.
func (c *Console) Run() error {
	c.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(c.fd) {
		return c.serve(os.Stdin, os.Stdout)
	}

	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		return fmt.Errorf("console: raw mode: %w", err)
	}
	c.oldTermState = oldState
	if err := unix.SetNonblock(c.fd, true); err != nil {
		c.restore()
		return fmt.Errorf("console: nonblocking stdin: %w", err)
	}
	c.nonblockSet = true
	defer c.restore()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{&stdinReader{fd: c.fd, stop: c.stopCh}, os.Stdout}, consolePrompt)
	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := c.execute(t, line); quit {
			return nil
		}
	}
}

// serve is the plain line mode used when stdin is not a terminal.
func (c *Console) serve(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case <-c.stopCh:
			return nil
		default:
		}
		if quit := c.execute(w, sc.Text()); quit {
			return nil
		}
	}
	return sc.Err()
}

func (c *Console) execute(w io.Writer, line string) (quit bool) {
	switch strings.TrimSpace(line) {
	case "quit", "exit", "q":
		return true
	}
	out, err := c.m.Execute(line)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return false
	}
	if out != "" {
		fmt.Fprintln(w, out)
	}
	return false
}

// Stop ends Run at the next read.
func (c *Console) Stop() {
	c.stopped.Do(func() {
		close(c.stopCh)
	})
}

func (c *Console) restore() {
	if c.nonblockSet {
		_ = unix.SetNonblock(c.fd, false)
		c.nonblockSet = false
	}
	if c.oldTermState != nil {
		_ = term.Restore(c.fd, c.oldTermState)
		c.oldTermState = nil
	}
}

// stdinReader polls a non-blocking descriptor until data arrives or stop
// is closed.
type stdinReader struct {
	fd   int
	stop <-chan struct{}
}

func (r *stdinReader) Read(p []byte) (int, error) {
	for {
		select {
		case <-r.stop:
			return 0, io.EOF
		default:
		}
		n, err := unix.Read(r.fd, p)
		if n > 0 {
			return n, nil
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
}
