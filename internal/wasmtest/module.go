package wasmtest

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

// Export kinds
const (
	KindFunc   byte = 0x00
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

const (
	magic   = 0x6d736100
	version = 1

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	funcTypeByte = 0x60
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function import. Imports take the lowest function indices.
type Import struct {
	Module string
	Name   string
	Type   uint32
}

// Func is a defined function. Body must not include the final end opcode.
type Func struct {
	Type   uint32
	Locals []ValType
	Body   []byte
}

// Global is a global initialized with a constant.
type Global struct {
	Type    ValType
	Mutable bool
	Init    int64
}

// Export names an entity by kind and index.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Data is an active segment in memory 0.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module is a core module under construction.
type Module struct {
	Types   []FuncType
	Imports []Import
	Funcs   []Func
	Globals []Global
	Exports []Export
	Data    []Data
	// MemoryPages is the minimum size of memory 0; zero means no memory.
	MemoryPages uint32
}

// Encode returns the binary encoding of m.
func (m *Module) Encode() []byte {
	var w []byte
	w = appendU32LE(w, magic)
	w = appendU32LE(w, version)

	if len(m.Types) > 0 {
		sec := appendU32(nil, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec = append(sec, funcTypeByte)
			sec = appendValTypes(sec, ft.Params)
			sec = appendValTypes(sec, ft.Results)
		}
		w = appendSection(w, sectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := appendU32(nil, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec = appendName(sec, imp.Module)
			sec = appendName(sec, imp.Name)
			sec = append(sec, KindFunc)
			sec = appendU32(sec, imp.Type)
		}
		w = appendSection(w, sectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := appendU32(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			sec = appendU32(sec, f.Type)
		}
		w = appendSection(w, sectionFunction, sec)
	}

	if m.MemoryPages > 0 {
		sec := appendU32(nil, 1)
		sec = append(sec, 0x00) // min only
		sec = appendU32(sec, m.MemoryPages)
		w = appendSection(w, sectionMemory, sec)
	}

	if len(m.Globals) > 0 {
		sec := appendU32(nil, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec = append(sec, byte(g.Type))
			if g.Mutable {
				sec = append(sec, 0x01)
			} else {
				sec = append(sec, 0x00)
			}
			sec = appendConst(sec, g.Type, g.Init)
			sec = append(sec, OpEnd)
		}
		w = appendSection(w, sectionGlobal, sec)
	}

	if len(m.Exports) > 0 {
		sec := appendU32(nil, uint32(len(m.Exports)))
		for _, e := range m.Exports {
			sec = appendName(sec, e.Name)
			sec = append(sec, e.Kind)
			sec = appendU32(sec, e.Index)
		}
		w = appendSection(w, sectionExport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := appendU32(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			body := appendU32(nil, uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body = appendU32(body, 1)
				body = append(body, byte(l))
			}
			body = append(body, f.Body...)
			body = append(body, OpEnd)
			sec = appendU32(sec, uint32(len(body)))
			sec = append(sec, body...)
		}
		w = appendSection(w, sectionCode, sec)
	}

	if len(m.Data) > 0 {
		sec := appendU32(nil, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec = appendU32(sec, 0) // active, memory 0
			sec = appendConst(sec, I32, int64(int32(d.Offset)))
			sec = append(sec, OpEnd)
			sec = appendU32(sec, uint32(len(d.Bytes)))
			sec = append(sec, d.Bytes...)
		}
		w = appendSection(w, sectionData, sec)
	}

	return w
}

func appendSection(w []byte, id byte, data []byte) []byte {
	w = append(w, id)
	w = appendU32(w, uint32(len(data)))
	return append(w, data...)
}

func appendValTypes(w []byte, types []ValType) []byte {
	w = appendU32(w, uint32(len(types)))
	for _, t := range types {
		w = append(w, byte(t))
	}
	return w
}

func appendName(w []byte, s string) []byte {
	w = appendU32(w, uint32(len(s)))
	return append(w, s...)
}

func appendConst(w []byte, t ValType, v int64) []byte {
	if t == I64 {
		return appendS64(append(w, OpI64Const), v)
	}
	return appendS64(append(w, OpI32Const), int64(int32(v)))
}

func appendU32LE(w []byte, v uint32) []byte {
	return append(w, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// appendU32 appends v as unsigned LEB128.
func appendU32(w []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w = append(w, b)
		if v == 0 {
			return w
		}
	}
}

// appendS64 appends v as signed LEB128.
func appendS64(w []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w = append(w, b)
		if done {
			return w
		}
	}
}
