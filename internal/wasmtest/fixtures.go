package wasmtest

import "encoding/binary"

// HeapBase is where the fixture bump allocators start handing out memory.
const HeapBase = 1024

// Exported globals of the echo guest.
const (
	GlobalHeap       = "heap"
	GlobalFreedCalls = "freed_calls"
	GlobalFreedBytes = "freed_bytes"
)

var (
	sigAllocate   = FuncType{Params: []ValType{I32}, Results: []ValType{I32}}
	sigDeallocate = FuncType{Params: []ValType{I32, I32}}
	sigThumbnail  = FuncType{Params: []ValType{I32, I32, I32, I32}, Results: []ValType{I64}}
	sigFdWrite    = FuncType{Params: []ValType{I32, I32, I32, I32}, Results: []ValType{I32}}
)

// bumpAllocate returns the current heap top and advances it by the argument.
func bumpAllocate(heap uint32) Func {
	return Func{Type: 0, Body: Code(
		GlobalGet(heap),
		GlobalGet(heap), LocalGet(0), Op(OpI32Add), GlobalSet(heap),
	)}
}

// countingDeallocate records calls and bytes in two globals.
func countingDeallocate(calls, bytes uint32) Func {
	return Func{Type: 1, Body: Code(
		GlobalGet(calls), I32Const(1), Op(OpI32Add), GlobalSet(calls),
		GlobalGet(bytes), LocalGet(1), Op(OpI32Add), GlobalSet(bytes),
	)}
}

// rejectEmpty returns 0 when len, width or height is zero.
func rejectEmpty() []byte {
	return Code(
		LocalGet(1), Op(OpI32Eqz),
		LocalGet(2), Op(OpI32Eqz), Op(OpI32Or),
		LocalGet(3), Op(OpI32Eqz), Op(OpI32Or),
		If(I64Const(0), Op(OpReturn)),
	)
}

func abiModule(thumbnail Func) *Module {
	return &Module{
		Types: []FuncType{sigAllocate, sigDeallocate, sigThumbnail},
		Funcs: []Func{
			bumpAllocate(0),
			countingDeallocate(1, 2),
			thumbnail,
		},
		Globals: []Global{
			{Type: I32, Mutable: true, Init: HeapBase},
			{Type: I32, Mutable: true},
			{Type: I32, Mutable: true},
		},
		Exports: []Export{
			{Name: "memory", Kind: KindMemory},
			{Name: "allocate", Kind: KindFunc, Index: 0},
			{Name: "deallocate", Kind: KindFunc, Index: 1},
			{Name: "thumbnail", Kind: KindFunc, Index: 2},
			{Name: GlobalHeap, Kind: KindGlobal, Index: 0},
			{Name: GlobalFreedCalls, Kind: KindGlobal, Index: 1},
			{Name: GlobalFreedBytes, Kind: KindGlobal, Index: 2},
		},
		MemoryPages: 1,
	}
}

// EchoGuest implements the thumbnail ABI by copying the source into a fresh
// allocation and returning it. Empty source or a zero dimension yields 0.
func EchoGuest() []byte {
	return abiModule(Func{Type: 2, Locals: []ValType{I32}, Body: Code(
		rejectEmpty(),
		GlobalGet(0), LocalSet(4),
		GlobalGet(0), LocalGet(1), Op(OpI32Add), GlobalSet(0),
		LocalGet(4), LocalGet(0), LocalGet(1), MemoryCopy(),
		Pack(4, 1),
	)}).Encode()
}

// ConstGuest returns packed from every thumbnail call.
func ConstGuest(packed uint64) []byte {
	return abiModule(Func{Type: 2, Body: I64Const(int64(packed))}).Encode()
}

// TrapGuest traps inside thumbnail.
func TrapGuest() []byte {
	return abiModule(Func{Type: 2, Body: Op(OpUnreachable)}).Encode()
}

// StderrGuest writes msg to fd 2 through WASI and returns an empty result.
func StderrGuest(msg string) []byte {
	const (
		iovAddr     = 16
		nwritten    = 8
		messageAddr = 32
	)
	iov := make([]byte, 8)
	binary.LittleEndian.PutUint32(iov[0:], messageAddr)
	binary.LittleEndian.PutUint32(iov[4:], uint32(len(msg)))

	m := abiModule(Func{Type: 2, Body: Code(
		I32Const(2), I32Const(iovAddr), I32Const(1), I32Const(nwritten),
		Call(0), Op(OpDrop),
		I64Const(0),
	)})
	m.Types = append(m.Types, sigFdWrite)
	m.Imports = []Import{{Module: "wasi_snapshot_preview1", Name: "fd_write", Type: 3}}
	// The import shifts every defined function index by one.
	for i := range m.Exports {
		if m.Exports[i].Kind == KindFunc {
			m.Exports[i].Index++
		}
	}
	m.Data = []Data{
		{Offset: iovAddr, Bytes: iov},
		{Offset: messageAddr, Bytes: []byte(msg)},
	}
	return m.Encode()
}

// WithoutExport returns the echo guest minus the named exports.
func WithoutExport(names ...string) []byte {
	m := abiModule(Func{Type: 2, Body: I64Const(0)})
	kept := m.Exports[:0]
	for _, e := range m.Exports {
		drop := false
		for _, n := range names {
			if e.Name == n {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, e)
		}
	}
	m.Exports = kept
	return m.Encode()
}

// WrongSignatureGuest exports thumbnail returning i32 instead of i64.
func WrongSignatureGuest() []byte {
	m := abiModule(Func{Type: 3, Body: I32Const(0)})
	m.Types = append(m.Types, FuncType{
		Params:  []ValType{I32, I32, I32, I32},
		Results: []ValType{I32},
	})
	return m.Encode()
}
