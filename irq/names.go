// names.go - Interrupt names for the monitor and logs

package irq

import (
	"fmt"
	"strconv"
	"strings"
)

var irqNames = [...]string{
	IRQ_MEM0:        "mem0",
	IRQ_MEM1:        "mem1",
	IRQ_MEM2:        "mem2",
	IRQ_MEM3:        "mem3",
	IRQ_MEMADDRESS:  "memaddress",
	IRQ_DSP_AI:      "dsp_ai",
	IRQ_DSP_ARAM:    "dsp_aram",
	IRQ_DSP_DSP:     "dsp_dsp",
	IRQ_AI:          "ai",
	IRQ_EXI0_EXI:    "exi0_exi",
	IRQ_EXI0_TC:     "exi0_tc",
	IRQ_EXI0_EXT:    "exi0_ext",
	IRQ_EXI1_EXI:    "exi1_exi",
	IRQ_EXI1_TC:     "exi1_tc",
	IRQ_EXI1_EXT:    "exi1_ext",
	IRQ_EXI2_EXI:    "exi2_exi",
	IRQ_EXI2_TC:     "exi2_tc",
	IRQ_PI_CP:       "pi_cp",
	IRQ_PI_PETOKEN:  "pi_petoken",
	IRQ_PI_PEFINISH: "pi_pefinish",
	IRQ_PI_SI:       "pi_si",
	IRQ_PI_DI:       "pi_di",
	IRQ_PI_RSW:      "pi_rsw",
	IRQ_PI_ERROR:    "pi_error",
	IRQ_PI_VI:       "pi_vi",
	IRQ_PI_DEBUG:    "pi_debug",
	IRQ_PI_HSP:      "pi_hsp",
	IRQ_PI_ACR:      "pi_acr",
}

func (i IRQ) String() string {
	if int(i) < len(irqNames) {
		return irqNames[i]
	}
	return fmt.Sprintf("irq(%d)", uint32(i))
}

// ParseIRQ accepts an interrupt name, case-insensitive, or its number.
func ParseIRQ(s string) (IRQ, error) {
	name := strings.TrimPrefix(strings.ToLower(s), "irq_")
	for i, n := range irqNames {
		if n == name {
			return IRQ(i), nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil || n >= IRQ_MAX {
		return 0, fmt.Errorf("irq: unknown interrupt %q", s)
	}
	return IRQ(n), nil
}
