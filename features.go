// features.go - Version, build features and platform defaults report

package main

import (
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/intuitionamiga/IntuitionHAL/irq"
	"github.com/intuitionamiga/IntuitionHAL/machine"
	"github.com/intuitionamiga/IntuitionHAL/platform"
)

// Version is set at link time with -ldflags "-X main.Version=...".
var Version = "dev"

// compiledFeatures tracks build-time feature flags via init() registration.
var compiledFeatures []string

// printFeatures describes the build and the platform o would start.
func printFeatures(w io.Writer, o options) {
	cfg := platform.DefaultConfig()
	layout, _ := irq.LayoutByName(o.layout)

	fmt.Fprintf(w, "IntuitionHAL %s\n", Version)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Platform:")
	fmt.Fprintf(w, "  layout:     %s (PI %08X, AI %08X, EXI %08X, ACR %v)\n",
		layout.Name, layout.PI, layout.AI, layout.EXI, layout.RVL)
	fmt.Fprintf(w, "  MEM1:       %08X+%X\n", machine.MEM1_BASE, cfg.Memory.MEM1Size)
	fmt.Fprintf(w, "  MEM2:       %08X+%X\n", machine.MEM2_BASE, cfg.Memory.MEM2Size)
	fmt.Fprintf(w, "  IPC arena:  %08X+%X\n", machine.MEM2_BASE+cfg.Memory.MEM2Size-machine.IPC_ARENA_SIZE, machine.IPC_ARENA_SIZE)
	fmt.Fprintf(w, "  IPC polls:  %d\n", o.maxPolls)
	fmt.Fprintf(w, "  timeout:    %v\n", o.timeout)
	fmt.Fprintf(w, "  ack boot:   %v\n", o.ackOnBoot)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compiled features:")

	sort.Strings(compiledFeatures)
	for _, f := range compiledFeatures {
		fmt.Fprintf(w, "  %s\n", f)
	}
	if len(compiledFeatures) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
}
