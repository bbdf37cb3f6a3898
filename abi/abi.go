package abi

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-thumbnail/errors"
)

// Export names
const (
	Allocate   = "allocate"
	Deallocate = "deallocate"
	Thumbnail  = "thumbnail"
	Memory     = "memory"

	// Initialize is the reactor entry point of Go and TinyGo guests.
	Initialize = "_initialize"
)

// Param is a named parameter.
type Param struct {
	Type wit.Type
	Name string
}

// Func describes one export.
type Func struct {
	Name    string
	Doc     string
	Params  []Param
	Results []wit.Type
}

// Exports lists the function exports every guest must provide.
var Exports = []Func{
	{
		Name:    Allocate,
		Doc:     "reserve size bytes owned by the caller",
		Params:  []Param{{Name: "size", Type: wit.U32{}}},
		Results: []wit.Type{wit.U32{}},
	},
	{
		Name:   Deallocate,
		Doc:    "return a region; size must match exactly",
		Params: []Param{{Name: "ptr", Type: wit.U32{}}, {Name: "size", Type: wit.U32{}}},
	},
	{
		Name: Thumbnail,
		Doc:  "encode a JPEG thumbnail; (ptr << 32) | len, zero len on failure",
		Params: []Param{
			{Name: "ptr", Type: wit.U32{}},
			{Name: "len", Type: wit.U32{}},
			{Name: "width", Type: wit.U32{}},
			{Name: "height", Type: wit.U32{}},
		},
		Results: []wit.Type{wit.U64{}},
	},
}

// Lookup returns the description of the named export.
func Lookup(name string) (Func, bool) {
	for _, f := range Exports {
		if f.Name == name {
			return f, true
		}
	}
	return Func{}, false
}

// CoreType lowers a WIT scalar to its core wasm value type.
func CoreType(t wit.Type) (api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
			WitType(TypeName(t)).
			Detail("not a scalar type").
			Build()
	}
}

// CoreParams returns the lowered parameter types.
func (f Func) CoreParams() []api.ValueType {
	return lower(paramTypes(f.Params))
}

// CoreResults returns the lowered result types.
func (f Func) CoreResults() []api.ValueType {
	return lower(f.Results)
}

// String renders the export in WIT syntax.
func (f Func) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(": func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", p.Name, TypeName(p.Type))
	}
	b.WriteByte(')')
	if len(f.Results) == 1 {
		b.WriteString(" -> ")
		b.WriteString(TypeName(f.Results[0]))
	}
	return b.String()
}

// TypeName returns the WIT spelling of a scalar type.
func TypeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func paramTypes(params []Param) []wit.Type {
	out := make([]wit.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

func lower(types []wit.Type) []api.ValueType {
	out := make([]api.ValueType, 0, len(types))
	for _, t := range types {
		// Exports only declares scalars.
		vt, _ := CoreType(t)
		out = append(out, vt)
	}
	return out
}
