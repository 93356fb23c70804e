// main.go - Main entry point for the IntuitionHAL simulated platform

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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/intuitionamiga/IntuitionHAL/ipc"
	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/platform"
	"github.com/intuitionamiga/IntuitionHAL/starlet"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █     ██░ ██  ▄▄▄       ██▓    \033[0m\n\033[38;2;255;80;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓██░ ██▒▒████▄    ▓██▒    \033[0m\n\033[38;2;255;140;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒██▀▀██░▒██  ▀█▄  ▒██░    \033[0m\n\033[38;2;255;200;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ░▓█ ░██ ░██▄▄▄▄██ ▒██░    \033[0m\n\033[38;2;255;255;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▓█▒░██▓ ▓█   ▓██▒░██████▒\033[0m")
	fmt.Println("\nBroadway/Starlet hardware abstraction layer on a simulated console.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionHAL")
	fmt.Println("License: GPLv3 or later")
}

// luaMounts collects -lua path=script pairs.
type luaMounts map[string]string

func (l luaMounts) String() string {
	pairs := make([]string, 0, len(l))
	for path, script := range l {
		pairs = append(pairs, path+"="+script)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (l luaMounts) Set(v string) error {
	path, script, ok := strings.Cut(v, "=")
	if !ok || !strings.HasPrefix(path, "/") || script == "" {
		return fmt.Errorf("expected /path=script.lua, got %q", v)
	}
	l[path] = script
	return nil
}

type options struct {
	layout    string
	root      string
	lua       luaMounts
	script    string
	monitor   bool
	listen    string
	send      string
	maxPolls  uint64
	timeout   time.Duration
	ackOnBoot bool
	version   bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	o := options{lua: luaMounts{}}
	fs.StringVar(&o.layout, "layout", "wii", "interrupt layout: wii or gamecube")
	fs.StringVar(&o.root, "root", "", "host directory served as the coprocessor file system")
	fs.Var(o.lua, "lua", "mount a Lua device model, /path=script.lua (repeatable)")
	fs.StringVar(&o.script, "script", "", "Lua scenario to run once the platform is up")
	fs.BoolVar(&o.monitor, "monitor", false, "run the interactive monitor")
	fs.StringVar(&o.listen, "listen", "", "control socket path, - for the default")
	fs.StringVar(&o.send, "send", "", "send a monitor command to a running instance and exit")
	fs.Uint64Var(&o.maxPolls, "max-polls", ipc.DefaultConfig().MaxPolls, "IPC busy-wait bound, 0 for none")
	fs.DurationVar(&o.timeout, "timeout", 5*time.Second, "per-command deadline, 0 for none")
	fs.BoolVar(&o.ackOnBoot, "ack-on-boot", false, "start with the coprocessor's acknowledge bit set")
	fs.BoolVar(&o.version, "version", false, "print version and compiled features")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if _, ok := irq.LayoutByName(o.layout); !ok {
		return o, fmt.Errorf("unknown layout %q", o.layout)
	}
	if o.listen == "-" {
		o.listen = resolveSocketPath()
	}
	return o, nil
}

// newPlatform builds the platform o describes on top of cfg. The returned
// cleanup releases the Lua device models once the platform has stopped.
func newPlatform(o options, cfg platform.Config) (*platform.Platform, func(), error) {
	cfg.Layout, _ = irq.LayoutByName(o.layout)
	cfg.IPC.MaxPolls = o.maxPolls
	cfg.Starlet.AckOnBoot = o.ackOnBoot

	p, err := platform.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	var models []*starlet.LuaResource
	cleanup := func() {
		for _, r := range models {
			r.Close()
		}
	}
	if o.root != "" {
		fsr, err := starlet.NewFSResource(o.root)
		if err != nil {
			return nil, nil, err
		}
		p.Mount("/", fsr)
	}
	for path, script := range o.lua {
		r, err := starlet.LoadLuaResource(script)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		models = append(models, r)
		p.Mount(path, r)
	}
	d := &ackDriver{bus: p.Bus, layout: cfg.Layout}
	if err := installDrivers(p.IRQ, d); err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-layout wii|gamecube] [-root dir] [-lua /path=script.lua] [-script scenario.lua] [-monitor] [-listen sock]\n", os.Args[0])
		flag.PrintDefaults()
	}
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	defer glog.Flush()

	if o.version {
		printFeatures(os.Stdout, o)
		return
	}
	if o.send != "" {
		out, err := SendControl(o.listen, o.send)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	boilerPlate()
	p, cleanup, err := newPlatform(o, platform.DefaultConfig())
	if err != nil {
		glog.Exitf("intuitionhal: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()
	p.Start(ctx)
	m := NewMonitor(p, o.timeout)

	if o.script != "" {
		if err := RunScenario(m, o.script, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if o.listen != "" {
		srv, err := NewControlServer(o.listen, m)
		if err != nil {
			glog.Exitf("intuitionhal: %v", err)
		}
		fmt.Printf("Control socket: %s\n", srv.Path())
		g.Go(srv.Serve)
		g.Go(func() error {
			<-gctx.Done()
			srv.Stop()
			return nil
		})
	}
	if o.monitor {
		console := NewConsole(m)
		fmt.Println("Type help for commands, quit to leave.")
		g.Go(func() error {
			defer stop()
			return console.Run()
		})
		g.Go(func() error {
			<-gctx.Done()
			console.Stop()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		glog.Errorf("intuitionhal: %v", err)
	}

	if err := p.Stop(); err != nil {
		glog.Errorf("intuitionhal: stopping coprocessor: %v", err)
	}
}
