package abi

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	wterrors "github.com/wippyai/wasm-thumbnail/errors"
	"github.com/wippyai/wasm-thumbnail/internal/wasmtest"
)

func compile(t *testing.T, bin []byte) wazero.CompiledModule {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.CompileModule(ctx, bin)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return mod
}

func TestCoreType(t *testing.T) {
	tests := []struct {
		witType wit.Type
		want    api.ValueType
	}{
		{wit.Bool{}, api.ValueTypeI32},
		{wit.U8{}, api.ValueTypeI32},
		{wit.U32{}, api.ValueTypeI32},
		{wit.S32{}, api.ValueTypeI32},
		{wit.U64{}, api.ValueTypeI64},
		{wit.S64{}, api.ValueTypeI64},
		{wit.F32{}, api.ValueTypeF32},
		{wit.F64{}, api.ValueTypeF64},
	}

	for _, tt := range tests {
		t.Run(TypeName(tt.witType), func(t *testing.T) {
			got, err := CoreType(tt.witType)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("CoreType = %s, want %s", api.ValueTypeName(got), api.ValueTypeName(tt.want))
			}
		})
	}

	if _, err := CoreType(wit.String{}); err == nil {
		t.Error("expected error for string")
	}
}

func TestExports(t *testing.T) {
	f, ok := Lookup(Thumbnail)
	if !ok {
		t.Fatal("thumbnail not declared")
	}
	want := []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}
	if !slices.Equal(f.CoreParams(), want) {
		t.Errorf("params = %v", f.CoreParams())
	}
	if !slices.Equal(f.CoreResults(), []api.ValueType{api.ValueTypeI64}) {
		t.Errorf("results = %v", f.CoreResults())
	}
	if got := f.String(); got != "thumbnail: func(ptr: u32, len: u32, width: u32, height: u32) -> u64" {
		t.Errorf("String = %q", got)
	}

	d, _ := Lookup(Deallocate)
	if got := d.String(); got != "deallocate: func(ptr: u32, size: u32)" {
		t.Errorf("String = %q", got)
	}
	if len(d.CoreResults()) != 0 {
		t.Error("deallocate must have no results")
	}

	if _, ok := Lookup("realloc"); ok {
		t.Error("unexpected export")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(compile(t, wasmtest.EchoGuest())); err != nil {
		t.Fatalf("echo guest: %v", err)
	}
}

func TestValidate_Missing(t *testing.T) {
	err := Validate(compile(t, wasmtest.WithoutExport(Deallocate, Memory)))

	var missing *wterrors.MissingExportsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingExportsError, got %v", err)
	}
	if !slices.Equal(missing.Exports, []string{Memory, Deallocate}) {
		t.Errorf("missing = %v", missing.Exports)
	}
}

func TestValidate_WrongSignature(t *testing.T) {
	err := Validate(compile(t, wasmtest.WrongSignatureGuest()))
	if !errors.Is(err, &wterrors.Error{Phase: wterrors.PhaseValidate, Kind: wterrors.KindTypeMismatch}) {
		t.Fatalf("expected type mismatch, got %v", err)
	}

	var werr *wterrors.Error
	errors.As(err, &werr)
	if !slices.Equal(werr.Path, []string{Thumbnail, "results"}) {
		t.Errorf("path = %v", werr.Path)
	}
	if werr.CoreType != "(i32)" {
		t.Errorf("core type = %q", werr.CoreType)
	}
}

func TestHasInitialize(t *testing.T) {
	if HasInitialize(compile(t, wasmtest.EchoGuest())) {
		t.Error("echo guest has no _initialize")
	}
}
