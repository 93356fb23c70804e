// control.go - Unix domain socket control server for a running platform

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
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
)

const controlMaxRequestSize = 4096

type controlRequest struct {
	Cmd  string `json:"cmd"`
	Line string `json:"line,omitempty"`
}

type controlResponse struct {
	Status  string `json:"status"`
	Output  string `json:"output,omitempty"`
	Message string `json:"message,omitempty"`
}

// ControlServer accepts one JSON request per connection:
//
//	{"cmd":"exec","line":"open /dev/stm/immediate"}
//	{"cmd":"status"}
//
// and answers {"status":"ok","output":...} or {"status":"err","message":...}.
type ControlServer struct {
	listener net.Listener
	m        *Monitor
	done     chan struct{}
	sockPath string
}

func resolveSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "intuitionhal.sock")
	}
	return "/tmp/intuitionhal.sock"
}

// NewControlServer binds sockPath, or the default path when it is empty.
func NewControlServer(sockPath string, m *Monitor) (*ControlServer, error) {
	if sockPath == "" {
		sockPath = resolveSocketPath()
	}
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		// Stale socket cleanup: if nobody answers, remove it and retry.
		conn, dialErr := net.DialTimeout("unix", sockPath, 2*time.Second)
		if dialErr != nil {
			os.Remove(sockPath)
			ln, err = net.Listen("unix", sockPath)
			if err != nil {
				return nil, fmt.Errorf("control: bind %s: %w", sockPath, err)
			}
		} else {
			conn.Close()
			return nil, fmt.Errorf("control: %s is in use by another instance", sockPath)
		}
	}
	return &ControlServer{listener: ln, m: m, done: make(chan struct{}), sockPath: sockPath}, nil
}

func (s *ControlServer) Path() string {
	return s.sockPath
}

// Serve accepts connections until Stop.
func (s *ControlServer) Serve() error {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return nil
		}
		go s.handleConn(conn)
	}
}

// Stop closes the listener, waits for Serve to return and removes the
// socket.
func (s *ControlServer) Stop() {
	s.listener.Close()
	<-s.done
	os.Remove(s.sockPath)
}

func (s *ControlServer) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	buf := make([]byte, controlMaxRequestSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}
	resp := s.handle(buf[:n])
	data, _ := json.Marshal(resp)
	conn.Write(data)
}

func (s *ControlServer) handle(data []byte) controlResponse {
	var req controlRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return controlResponse{Status: "err", Message: "invalid json"}
	}
	var line string
	switch req.Cmd {
	case "exec":
		line = req.Line
	case "status":
		line = "state"
	default:
		return controlResponse{Status: "err", Message: "unknown command"}
	}
	glog.V(1).Infof("control: %s %q", req.Cmd, req.Line)
	out, err := s.m.Execute(line)
	if err != nil {
		return controlResponse{Status: "err", Message: err.Error()}
	}
	return controlResponse{Status: "ok", Output: out}
}

// SendControl runs line on the instance listening at sockPath, or at the
// default path when it is empty, and returns its output.
func SendControl(sockPath, line string) (string, error) {
	if sockPath == "" {
		sockPath = resolveSocketPath()
	}
	conn, err := net.DialTimeout("unix", sockPath, 10*time.Second)
	if err != nil {
		return "", fmt.Errorf("cannot connect to running instance: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	data, _ := json.Marshal(controlRequest{Cmd: "exec", Line: line})
	if _, err := conn.Write(data); err != nil {
		return "", fmt.Errorf("send failed: %w", err)
	}

	// The response is not bound by the request size limit.
	var resp controlResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	if resp.Status != "ok" {
		return "", fmt.Errorf("remote error: %s", resp.Message)
	}
	return resp.Output, nil
}
