package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseValidate,
				Kind:     KindTypeMismatch,
				Path:     []string{"thumbnail", "result", "0"},
				WitType:  "u64",
				CoreType: "i32",
				Detail:   "unexpected result",
			},
			contains: []string{"[validate]", "type_mismatch", "thumbnail.result.0", "u64", "i32", "unexpected result"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInvalidData,
			},
			contains: []string{"[decode]", "invalid_data"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[call]", "allocation", "memory full", "caused by", "underlying error"},
		},
		{
			name: "core type only",
			err: &Error{
				Phase:    PhaseValidate,
				Kind:     KindTypeMismatch,
				CoreType: "f32",
			},
			contains: []string{"core type f32"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not walk to cause")
	}
}

func TestError_Is(t *testing.T) {
	err := DecodeFailed("png", errors.New("bad crc"))

	if !errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindInvalidData}) {
		t.Error("Is should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseEncode, Kind: KindInvalidData}) {
		t.Error("Is should not match different phase")
	}
	if errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}

	var target *Error
	if !errors.As(err, &target) || target.Value != "png" {
		t.Errorf("errors.As = %v, want value png", target)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseValidate, KindTypeMismatch).
		Path("allocate", "param", "0").
		WitType("u32").
		CoreType("i64").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "i32", "i64").
		Build()

	if err.Phase != PhaseValidate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseValidate)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 3 || err.Path[0] != "allocate" {
		t.Errorf("Path = %v, want [allocate param 0]", err.Path)
	}
	if err.WitType != "u32" || err.CoreType != "i64" {
		t.Errorf("WitType=%v CoreType=%v", err.WitType, err.CoreType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected i32, got i64" {
		t.Errorf("Detail = %v, want 'expected i32, got i64'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnsupportedFormat", func(t *testing.T) {
		err := UnsupportedFormat(errors.New("image: unknown format"))
		if err.Phase != PhaseSniff || err.Kind != KindUnsupportedFormat {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("InvalidDimensions", func(t *testing.T) {
		err := InvalidDimensions(PhaseEncode, 0, 10)
		if err.Kind != KindInvalidDimensions {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidDimensions)
		}
		if !strings.Contains(err.Detail, "0x10") {
			t.Errorf("Detail = %q, should contain dimensions", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseCall, 65530, 10, 65536)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if !strings.Contains(err.Detail, "[65530, 65540)") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseBridge, uint64(1)<<33, "u32")
		if err.Kind != KindOverflow || err.WitType != "u32" {
			t.Errorf("got %v/%v", err.Kind, err.WitType)
		}
	})

	t.Run("EmptyResult", func(t *testing.T) {
		if got := EmptyResult("").Detail; got != "guest returned an empty result" {
			t.Errorf("Detail = %q", got)
		}
		if got := EmptyResult("decode failed").Detail; !strings.HasSuffix(got, ": decode failed") {
			t.Errorf("Detail = %q", got)
		}
	})

	t.Run("Call", func(t *testing.T) {
		err := Call("thumbnail", errors.New("trap"))
		if len(err.Path) != 1 || err.Path[0] != "thumbnail" {
			t.Errorf("Path = %v", err.Path)
		}
	})
}

func TestMissingExportsError(t *testing.T) {
	t.Run("lists exports", func(t *testing.T) {
		err := NewMissingExportsError([]string{"allocate", "thumbnail"})
		msg := err.Error()
		for _, s := range []string{"missing 2 export(s)", "- allocate", "- thumbnail"} {
			if !strings.Contains(msg, s) {
				t.Errorf("error %q should contain %q", msg, s)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingExportsError(nil)
		if !strings.Contains(err.Error(), "no exports specified") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		var err error = NewMissingExportsError([]string{"deallocate"})
		if !errors.Is(err, &MissingExportsError{}) {
			t.Error("errors.Is should match MissingExportsError")
		}
	})
}

func TestIsKind(t *testing.T) {
	inner := EmptyResult("bad png")
	outer := Wrap(PhaseCall, KindInvalidData, inner, "fallback failed")
	wrapped := fmt.Errorf("convert: %w", outer)

	if !IsKind(wrapped, KindEmptyResult) {
		t.Error("IsKind should find a kind nested in Cause")
	}
	if !IsKind(wrapped, KindInvalidData) {
		t.Error("IsKind should match the outermost error")
	}
	if IsKind(wrapped, KindOverflow) {
		t.Error("IsKind matched an absent kind")
	}
	if IsKind(fmt.Errorf("plain"), KindEmptyResult) {
		t.Error("IsKind matched a non-structured error")
	}
	if IsKind(nil, KindEmptyResult) {
		t.Error("IsKind matched nil")
	}
}
