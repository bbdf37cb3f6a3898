package host

import (
	"bytes"
	"context"
	"errors"
	"image"
	"slices"
	"strings"
	"testing"

	wterrors "github.com/wippyai/wasm-thumbnail/errors"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

type stubConverter struct {
	name    string
	formats []string
	err     error
	calls   *[]string
}

func (s stubConverter) Convert(_ context.Context, req Request) (Result, error) {
	*s.calls = append(*s.calls, s.name)
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{Image: []byte(s.name), Format: "jpeg"}, nil
}

func (s stubConverter) IsFormatSupported(format string) bool {
	return slices.Contains(s.formats, format)
}

func TestChain_PrefersFormatSupport(t *testing.T) {
	var calls []string
	chain := NewChain(
		stubConverter{name: "generic", formats: nil, calls: &calls},
		stubConverter{name: "png-only", formats: []string{"png"}, calls: &calls},
	)

	res, err := chain.Convert(context.Background(), Request{Format: "png"})
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Image) != "png-only" {
		t.Fatalf("result from %q, want png-only", res.Image)
	}
	if !slices.Equal(calls, []string{"png-only"}) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestChain_FallsThrough(t *testing.T) {
	var calls []string
	chain := NewChain(
		stubConverter{name: "a", formats: []string{"png"}, err: errors.New("a broke"), calls: &calls},
		stubConverter{name: "b", calls: &calls},
	)

	res, err := chain.Convert(context.Background(), Request{Format: "png"})
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Image) != "b" {
		t.Fatalf("result from %q", res.Image)
	}
	// "a" supports png and failed; it is not retried.
	if !slices.Equal(calls, []string{"a", "b"}) {
		t.Fatalf("calls = %v", calls)
	}
}

func TestChain_AllFail(t *testing.T) {
	var calls []string
	chain := NewChain(
		stubConverter{name: "a", err: errors.New("first failure"), calls: &calls},
		stubConverter{name: "b", err: errors.New("second failure"), calls: &calls},
	)

	_, err := chain.Convert(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, s := range []string{"all converters failed", "first failure", "second failure"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error %q should contain %q", err, s)
		}
	}

	_, err = NewChain().Convert(context.Background(), Request{Format: "png"})
	if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseCall, Kind: wterrors.KindNotFound}) {
		t.Fatalf("empty chain: %v", err)
	}
}

func TestChain_Canceled(t *testing.T) {
	var calls []string
	chain := NewChain(stubConverter{name: "a", calls: &calls})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := chain.Convert(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("converter called after cancel: %v", calls)
	}
}

func TestChain_IsFormatSupported(t *testing.T) {
	var calls []string
	chain := NewChain(stubConverter{formats: []string{"webp"}, calls: &calls}, NewNative())
	if !chain.IsFormatSupported("webp") || !chain.IsFormatSupported("png") {
		t.Error("expected support from either converter")
	}
	if chain.IsFormatSupported("heic") {
		t.Error("heic is not supported")
	}
}

func TestNative(t *testing.T) {
	n := NewNative(thumbnail.WithFilter(thumbnail.Lanczos))
	ctx := context.Background()

	res, err := n.Convert(ctx, Request{Source: samplePNG(t, 100, 100), Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Format != "jpeg" {
		t.Errorf("format = %q", res.Format)
	}
	img, _, err := image.Decode(bytes.NewReader(res.Image))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if n.Outstanding() != 0 {
		t.Fatalf("outstanding regions = %d", n.Outstanding())
	}

	for _, req := range []Request{
		{Source: nil, Width: 50, Height: 50},
		{Source: []byte("junk"), Width: 50, Height: 50},
		{Source: samplePNG(t, 8, 8), Width: 0, Height: 8},
	} {
		_, err := n.Convert(ctx, req)
		if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseCall, Kind: wterrors.KindEmptyResult}) {
			t.Fatalf("expected empty result, got %v", err)
		}
	}
	if n.Outstanding() != 0 {
		t.Fatalf("failed conversions leaked %d region(s)", n.Outstanding())
	}
}

func TestNative_LongRunningBalancedUse(t *testing.T) {
	if testing.Short() {
		t.Skip("moves 5 GiB through the in-process guest")
	}
	n := NewNative()
	ctx := context.Background()
	junk := make([]byte, 64<<20)

	for i := 0; i < 80; i++ {
		_, err := n.Convert(ctx, Request{Source: junk, Width: 8, Height: 8})
		if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseCall, Kind: wterrors.KindEmptyResult}) {
			t.Fatalf("iteration %d: expected empty result, got %v", i, err)
		}
	}
	if n.Outstanding() != 0 {
		t.Fatalf("outstanding regions = %d", n.Outstanding())
	}

	res, err := n.Convert(ctx, Request{Source: samplePNG(t, 16, 16), Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("Convert after long run: %v", err)
	}
	if len(res.Image) == 0 {
		t.Fatal("empty image after long run")
	}
}
