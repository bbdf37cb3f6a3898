package bridge

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/wippyai/wasm-thumbnail/alloc"
	wterrors "github.com/wippyai/wasm-thumbnail/errors"
)

func TestPackUnpack(t *testing.T) {
	tests := []Pair{
		{0, 0},
		{1, 0},
		{0, 1},
		{0x10000, 1234},
		{math.MaxUint32, 0},
		{0, math.MaxUint32},
		{math.MaxUint32, math.MaxUint32},
		{0xDEADBEEF, 0xCAFEBABE},
	}

	for _, p := range tests {
		packed := Pack(p)
		if got := Unpack(packed); got != p {
			t.Errorf("Unpack(Pack(%+v)) = %+v", p, got)
		}
		if uint32(packed>>32) != p.Ptr || uint32(packed) != p.Len {
			t.Errorf("Pack(%+v) = %#x: wrong bit layout", p, packed)
		}
	}
}

func TestPackLayout(t *testing.T) {
	if got := Pack(Pair{Ptr: 0x00000001, Len: 0x00000002}); got != 0x0000000100000002 {
		t.Fatalf("Pack = %#x, want 0x100000002", got)
	}
	p := Unpack(0xAABBCCDD11223344)
	if p.Ptr != 0xAABBCCDD || p.Len != 0x11223344 {
		t.Fatalf("Unpack = %+v", p)
	}
}

func TestPair_Helpers(t *testing.T) {
	if !(Pair{Ptr: 42}).Empty() {
		t.Error("zero-length pair should be empty")
	}
	if (Pair{Len: 1}).Empty() {
		t.Error("non-zero length pair should not be empty")
	}
	if got := (Pair{Ptr: math.MaxUint32, Len: 2}).End(); got != math.MaxUint32+2 {
		t.Errorf("End = %d", got)
	}
}

func TestCopyIn(t *testing.T) {
	mem := alloc.New()
	br := New(mem)

	addr := mem.Allocate(5)
	if err := mem.Write(addr, []byte("image")); err != nil {
		t.Fatal(err)
	}

	got, err := br.CopyIn(Pair{Ptr: addr, Len: 5})
	if err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if string(got) != "image" {
		t.Fatalf("CopyIn = %q", got)
	}

	// The copy must not alias guest memory.
	if err := mem.Write(addr, []byte("XXXXX")); err != nil {
		t.Fatal(err)
	}
	if string(got) != "image" {
		t.Fatal("CopyIn result aliases guest memory")
	}

	// Ownership of the source stays with the caller.
	if owner, ok := mem.Owner(addr); !ok || owner != alloc.OwnerCaller {
		t.Fatalf("source owner = %v, %v", owner, ok)
	}
}

func TestCopyIn_ZeroLength(t *testing.T) {
	br := New(alloc.New())

	got, err := br.CopyIn(Pair{Ptr: 0, Len: 0})
	if err != nil {
		t.Fatalf("CopyIn(0, 0): %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("CopyIn(0, 0) = %#v, want empty non-nil buffer", got)
	}
}

func TestCopyIn_OutOfBounds(t *testing.T) {
	br := New(alloc.New())

	_, err := br.CopyIn(Pair{Ptr: 0x1234, Len: 8})
	if err == nil {
		t.Fatal("expected error for untracked region")
	}
	if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseBridge, Kind: wterrors.KindOutOfBounds}) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLeakOut(t *testing.T) {
	mem := alloc.New()
	br := New(mem)
	buf := []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}

	p, err := br.LeakOut(buf)
	if err != nil {
		t.Fatalf("LeakOut: %v", err)
	}
	if p.Ptr == 0 || p.Len != uint32(len(buf)) {
		t.Fatalf("LeakOut = %+v", p)
	}
	if owner, ok := mem.Owner(p.Ptr); !ok || owner != alloc.OwnerCaller {
		t.Fatalf("leaked buffer owner = %v, %v", owner, ok)
	}

	view, err := mem.Read(p.Ptr, p.Len)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(view, buf) {
		t.Fatalf("leaked bytes = %x", view)
	}

	if !mem.Deallocate(p.Ptr, p.Len) {
		t.Fatal("Deallocate of leaked pair failed")
	}
}

func TestLeakOut_Empty(t *testing.T) {
	mem := alloc.New()
	br := New(mem)

	p, err := br.LeakOut(nil)
	if err != nil {
		t.Fatal(err)
	}
	if p != (Pair{}) {
		t.Fatalf("LeakOut(nil) = %+v, want zero pair", p)
	}
	if Pack(p) != 0 {
		t.Fatal("empty result must pack to 0")
	}
	if mem.Stats().Regions != 0 {
		t.Fatal("empty LeakOut must not publish a region")
	}
}
