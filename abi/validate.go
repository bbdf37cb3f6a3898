package abi

import (
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-thumbnail/errors"
)

// Module is the part of a compiled module inspected by Validate.
// wazero.CompiledModule implements it.
type Module interface {
	ExportedFunctions() map[string]api.FunctionDefinition
	ExportedMemories() map[string]api.MemoryDefinition
}

// Validate checks that mod exports linear memory and every function in
// Exports with the exact core signature. Missing exports are reported
// together as *errors.MissingExportsError.
func Validate(mod Module) error {
	funcs := mod.ExportedFunctions()

	var missing []string
	if _, ok := mod.ExportedMemories()[Memory]; !ok {
		missing = append(missing, Memory)
	}
	for _, f := range Exports {
		if _, ok := funcs[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingExportsError(missing)
	}

	for _, f := range Exports {
		def := funcs[f.Name]
		if err := checkTypes(f, "params", f.CoreParams(), def.ParamTypes()); err != nil {
			return err
		}
		if err := checkTypes(f, "results", f.CoreResults(), def.ResultTypes()); err != nil {
			return err
		}
	}
	return nil
}

// HasInitialize reports whether the module is a reactor needing _initialize.
func HasInitialize(mod Module) bool {
	def, ok := mod.ExportedFunctions()[Initialize]
	return ok && len(def.ParamTypes()) == 0 && len(def.ResultTypes()) == 0
}

func checkTypes(f Func, where string, want, got []api.ValueType) error {
	if slices.Equal(want, got) {
		return nil
	}
	return errors.New(errors.PhaseValidate, errors.KindTypeMismatch).
		Path(f.Name, where).
		WitType(f.String()).
		CoreType(signature(got)).
		Detail("expected %s", signature(want)).
		Build()
}

func signature(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, " ") + ")"
}
