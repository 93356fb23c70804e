package ipc

import (
	"bytes"
	"errors"
	"testing"
)

func TestArena_PublishIsLineAlignedAndCached(t *testing.T) {
	mem := newTestMemory()
	arena, err := NewArena(mem, testArenaBase, testArenaSize)
	if err != nil {
		t.Fatal(err)
	}
	a, err := arena.Publish([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := arena.Publish(make([]byte, 33))
	if err != nil {
		t.Fatal(err)
	}
	if a != 0x80000000|testArenaBase {
		t.Errorf("expected first region at cached 0x%08X, got 0x%08X", 0x80000000|testArenaBase, a)
	}
	if b != a+32 {
		t.Errorf("expected second region one line later, got 0x%08X", b)
	}
	c, err := arena.Publish([]byte{1})
	if err != nil {
		t.Fatal(err)
	}
	if c != b+64 {
		t.Errorf("expected 33 bytes to take two lines, got 0x%08X", c)
	}
}

func TestArena_ReclaimCopiesBackAndFrees(t *testing.T) {
	mem := newTestMemory()
	arena, _ := NewArena(mem, testArenaBase, testArenaSize)
	ea, err := arena.Publish([]byte("request"))
	if err != nil {
		t.Fatal(err)
	}
	// The coprocessor answers in place.
	if err := mem.WriteAt([]byte("REPLY!!"), ea); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 7)
	if err := arena.Reclaim(ea, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("REPLY!!")) {
		t.Errorf("expected reply bytes, got %q", got)
	}
	if err := arena.Reclaim(ea, nil); !errors.Is(err, ErrNotPublished) {
		t.Errorf("expected second reclaim to fail, got %v", err)
	}
	again, _ := arena.Publish([]byte("x"))
	if again != ea {
		t.Errorf("expected freed region reused at 0x%08X, got 0x%08X", ea, again)
	}
}

func TestArena_FirstFitAndExhaustion(t *testing.T) {
	mem := newTestMemory()
	arena, _ := NewArena(mem, testArenaBase, 0x80)
	first, _ := arena.Publish(make([]byte, 32))
	second, _ := arena.Publish(make([]byte, 32))
	if _, err := arena.Publish(make([]byte, 64)); err != nil {
		t.Fatal(err)
	}
	if _, err := arena.Publish(make([]byte, 1)); !errors.Is(err, ErrArenaFull) {
		t.Errorf("expected ErrArenaFull, got %v", err)
	}
	if err := arena.Reclaim(first, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := arena.Publish(make([]byte, 64)); !errors.Is(err, ErrArenaFull) {
		t.Errorf("expected a one-line hole to refuse two lines, got %v", err)
	}
	if err := arena.Reclaim(second, nil); err != nil {
		t.Fatal(err)
	}
	if got, err := arena.Publish(make([]byte, 64)); err != nil || got != first {
		t.Errorf("expected merged hole at 0x%08X, got 0x%08X %v", first, got, err)
	}
}

func TestArena_EmptyBuffersAreNotPublished(t *testing.T) {
	arena, _ := NewArena(newTestMemory(), testArenaBase, testArenaSize)
	ea, err := arena.Publish(nil)
	if err != nil || ea != 0 {
		t.Errorf("expected (0, nil), got (0x%08X, %v)", ea, err)
	}
	if err := arena.Reclaim(0, nil); err != nil {
		t.Errorf("expected no-op reclaim, got %v", err)
	}
	if arena.InUse() != 0 {
		t.Errorf("expected no regions, got %d", arena.InUse())
	}
}

func TestArena_RejectsMisalignedWindow(t *testing.T) {
	if _, err := NewArena(newTestMemory(), testArenaBase+4, testArenaSize); err == nil {
		t.Error("expected misaligned base rejected")
	}
}
