package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/intuitionamiga/IntuitionHAL/machine"
	"github.com/intuitionamiga/IntuitionHAL/mmio"
)

func main() {
	ppcctrl := flag.String("ppcctrl", "", "Decode a HW_IPC_PPCCTRL value")
	armctrl := flag.String("armctrl", "", "Decode a HW_IPC_ARMCTRL value")
	cause := flag.String("cause", "", "Decode a PI cause or mask value")
	devmem := flag.String("devmem", "", "Read the live IPC registers from a mapped file such as /dev/mem")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cbdecode [options] [block ...]\n\nDecodes IPC control blocks given as 32 bytes of hex, one per argument\nor one per line of stdin with -, and IPC/PI register values.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cbdecode 00000006ffffffff00000003000070010000000000000000133e000000000004\n")
		fmt.Fprintf(os.Stderr, "  cbdecode -ppcctrl 0x16\n")
		fmt.Fprintf(os.Stderr, "  cbdecode -devmem /dev/mem\n")
	}
	flag.Parse()

	if *ppcctrl == "" && *armctrl == "" && *cause == "" && *devmem == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, reg := range []struct {
		flag     string
		describe func(uint32) string
	}{
		{*ppcctrl, DescribePPCControl},
		{*armctrl, DescribeARMControl},
		{*cause, DescribeCause},
	} {
		if reg.flag == "" {
			continue
		}
		v, err := strconv.ParseUint(reg.flag, 0, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%08X %s\n", v, reg.describe(uint32(v)))
	}

	if *devmem != "" {
		m, err := mmio.OpenDevMem(*devmem, machine.IO_IPC_BASE, uint32(os.Getpagesize()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(DescribeRegisters(m))
		m.Close()
	}

	for _, arg := range flag.Args() {
		if arg == "-" {
			if !decodeLines(os.Stdin, os.Stdout) {
				failed = true
			}
			continue
		}
		if !decodeOne(arg, os.Stdout) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func decodeOne(s string, w io.Writer) bool {
	cb, err := ParseBlock(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	fmt.Fprintln(w, DescribeBlock(cb))
	return true
}

// decodeLines decodes one block per non-empty line of r.
func decodeLines(r io.Reader, w io.Writer) bool {
	ok := true
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !decodeOne(line, w) {
			ok = false
		}
	}
	return ok && sc.Err() == nil
}
