// core.go - Processor primitives used by the cache control unit

package cache

//go:generate mockgen -destination=mock_core_test.go -package=cache . Core

// Core is the set of PowerPC instructions the cache control unit is built
// from. Addresses are effective addresses; line operations act on the
// 32-byte line containing ea.
type Core interface {
	Sync()  // sync
	Isync() // isync

	MoveFromSPR(spr uint32) uint32  // mfspr
	MoveToSPR(spr uint32, v uint32) // mtspr
	MoveFromMSR() uint32            // mfmsr
	MoveToMSR(v uint32)             // mtmsr

	FlushLine(ea uint32)                 // dcbf
	StoreLine(ea uint32)                 // dcbst
	InvalidateLine(ea uint32)            // dcbi
	InvalidateInstructionLine(ea uint32) // icbi
}
