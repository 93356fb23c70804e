// layout.go - Interrupt source register bases for GameCube and Wii

package irq

// Layout locates the interrupt source registers on the physical bus.
// The audio and EXI blocks moved on the Wii; the Wii also adds the ACR
// cause, which takes the spare slot of the priority table.
type Layout struct {
	Name string
	PI   uint32
	MEM  uint32
	DSP  uint32
	AI   uint32
	EXI  uint32
	RVL  bool
}

var GameCubeLayout = Layout{
	Name: "gamecube",
	PI:   0x0C003000,
	MEM:  0x0C004000,
	DSP:  0x0C005000,
	AI:   0x0C006C00,
	EXI:  0x0C006800,
}

var WiiLayout = Layout{
	Name: "wii",
	PI:   0x0C003000,
	MEM:  0x0C004000,
	DSP:  0x0C005000,
	AI:   0x0D006C00,
	EXI:  0x0D006800,
	RVL:  true,
}

// LayoutByName returns the preset called name.
func LayoutByName(name string) (Layout, bool) {
	switch name {
	case GameCubeLayout.Name, "gc", "dol":
		return GameCubeLayout, true
	case WiiLayout.Name, "rvl":
		return WiiLayout, true
	}
	return Layout{}, false
}

// PriorityTable returns the arbitration order for l, highest first. The
// trailing all-ones entry catches anything the named groups do not.
func PriorityTable(l Layout) [PRIORITY_SLOTS]uint32 {
	rvl := uint32(0xFFFFFFFF)
	if l.RVL {
		rvl = IM_PI_ACR
	}
	return [PRIORITY_SLOTS]uint32{
		IM_PI_ERROR,
		IM_PI_DEBUG,
		IM_MEM,
		IM_PI_RSW,
		IM_PI_VI,
		IM_PI_PETOKEN | IM_PI_PEFINISH,
		IM_PI_HSP,
		IM_DSP_ARAM | IM_DSP_DSP | IM_AI | IM_EXI | IM_PI_SI | IM_PI_DI,
		IM_DSP_AI,
		IM_PI_CP,
		rvl,
		0xFFFFFFFF,
	}
}
