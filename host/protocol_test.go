package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	wterrors "github.com/wippyai/wasm-thumbnail/errors"
)

// recordingGuest is a guestModule that logs every protocol step.
type recordingGuest struct {
	memory   map[uint32][]byte
	result   []byte
	calls    []string
	next     uint32
	packed   *uint64
	callErr  error
	diagText string
	ctxs     []context.Context

	onThumbnail func()
}

func newRecordingGuest() *recordingGuest {
	return &recordingGuest{memory: map[uint32][]byte{}, next: 0x100}
}

func (g *recordingGuest) Read(offset, length uint32) ([]byte, error) {
	g.calls = append(g.calls, fmt.Sprintf("read(%#x,%d)", offset, length))
	b, ok := g.memory[offset]
	if !ok || uint32(len(b)) < length {
		return nil, wterrors.OutOfBounds(wterrors.PhaseCall, offset, length, 0)
	}
	return b[:length], nil
}

func (g *recordingGuest) Write(offset uint32, data []byte) error {
	g.calls = append(g.calls, fmt.Sprintf("write(%#x,%d)", offset, len(data)))
	copy(g.memory[offset], data)
	return nil
}

func (g *recordingGuest) Alloc(ctx context.Context, size uint32) (uint32, error) {
	g.ctxs = append(g.ctxs, ctx)
	g.calls = append(g.calls, fmt.Sprintf("allocate(%d)", size))
	ptr := g.next
	g.memory[ptr] = make([]byte, size)
	g.next += 0x100
	return ptr, nil
}

func (g *recordingGuest) Free(ctx context.Context, ptr, size uint32) {
	g.ctxs = append(g.ctxs, ctx)
	g.calls = append(g.calls, fmt.Sprintf("deallocate(%#x,%d)", ptr, size))
}

func (g *recordingGuest) Thumbnail(_ context.Context, ptr, length, width, height uint32) (uint64, error) {
	g.calls = append(g.calls, fmt.Sprintf("thumbnail(%#x,%d,%d,%d)", ptr, length, width, height))
	if g.onThumbnail != nil {
		g.onThumbnail()
	}
	if g.callErr != nil {
		return 0, g.callErr
	}
	if g.packed != nil {
		return *g.packed, nil
	}
	if len(g.result) == 0 {
		return 0, nil
	}
	addr := g.next
	g.next += 0x100
	g.memory[addr] = g.result
	return uint64(addr)<<32 | uint64(len(g.result)), nil
}

func (g *recordingGuest) Diagnostics() string {
	return g.diagText
}

func TestConvert_Order(t *testing.T) {
	g := newRecordingGuest()
	g.result = []byte{0xFF, 0xD8, 0xFF, 0xD9}

	out, err := convert(context.Background(), g, []byte("source"), 10, 20)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if string(out) != string(g.result) {
		t.Fatalf("out = %x", out)
	}

	want := []string{
		"allocate(6)",
		"write(0x100,6)",
		"thumbnail(0x100,6,10,20)",
		"read(0x200,4)",
		"deallocate(0x200,4)",
		"deallocate(0x100,6)",
	}
	if !slices.Equal(g.calls, want) {
		t.Fatalf("calls:\n got %v\nwant %v", g.calls, want)
	}

	// The result must not alias guest memory.
	g.memory[0x200][0] = 0
	if out[0] != 0xFF {
		t.Fatal("result aliases guest memory")
	}
}

func TestConvert_EmptyResult(t *testing.T) {
	g := newRecordingGuest()
	g.diagText = "unsupported format"

	_, err := convert(context.Background(), g, []byte("x"), 1, 1)
	if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseCall, Kind: wterrors.KindEmptyResult}) {
		t.Fatalf("expected empty result, got %v", err)
	}
	var werr *wterrors.Error
	if !errors.As(err, &werr) || werr.Detail != "guest returned an empty result: unsupported format" {
		t.Fatalf("diagnostic not attached: %v", err)
	}

	// Only the source is returned; an empty result owns nothing.
	if last := g.calls[len(g.calls)-1]; last != "deallocate(0x100,1)" {
		t.Fatalf("last call = %s", last)
	}
	for _, c := range g.calls {
		if c == "deallocate(0x0,0)" {
			t.Fatal("empty result must not be deallocated")
		}
	}
}

func TestConvert_CallError(t *testing.T) {
	g := newRecordingGuest()
	g.callErr = wterrors.Call("thumbnail", errors.New("unreachable"))

	if _, err := convert(context.Background(), g, []byte("abc"), 1, 1); err == nil {
		t.Fatal("expected error")
	}
	if last := g.calls[len(g.calls)-1]; last != "deallocate(0x100,3)" {
		t.Fatalf("source not deallocated after failed call: %v", g.calls)
	}
}

func TestConvert_ResultOutOfBounds(t *testing.T) {
	g := newRecordingGuest()
	packed := uint64(0xFFFF0000)<<32 | 16
	g.packed = &packed

	_, err := convert(context.Background(), g, []byte("abc"), 1, 1)
	if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseCall, Kind: wterrors.KindOutOfBounds}) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
	want := []string{"deallocate(0xffff0000,16)", "deallocate(0x100,3)"}
	if !slices.Equal(g.calls[len(g.calls)-2:], want) {
		t.Fatalf("calls = %v", g.calls)
	}
}

type requestKey struct{}

func TestConvert_AllocatorUsesCallContext(t *testing.T) {
	g := newRecordingGuest()
	g.result = []byte{0xFF, 0xD8, 0xFF, 0xD9}

	ctx := context.WithValue(context.Background(), requestKey{}, "req-1")
	if _, err := convert(ctx, g, []byte("source"), 1, 1); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(g.ctxs) != 3 {
		t.Fatalf("allocator calls = %d, want 3", len(g.ctxs))
	}
	for i, c := range g.ctxs {
		if c.Value(requestKey{}) != "req-1" {
			t.Fatalf("allocator call %d did not receive the call context", i)
		}
	}
}

func TestConvert_FreesAfterCancel(t *testing.T) {
	g := newRecordingGuest()
	ctx, cancel := context.WithCancel(context.Background())
	g.callErr = errors.New("interrupted")

	// cancel between allocate and the deferred deallocate
	g.onThumbnail = cancel

	if _, err := convert(ctx, g, []byte("abc"), 1, 1); err == nil {
		t.Fatal("expected error")
	}
	free := g.ctxs[len(g.ctxs)-1]
	if free.Err() != nil {
		t.Fatalf("deallocate got a cancelled context: %v", free.Err())
	}
	if last := g.calls[len(g.calls)-1]; last != "deallocate(0x100,3)" {
		t.Fatalf("last call = %s", last)
	}
}
