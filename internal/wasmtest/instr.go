package wasmtest

// Opcodes used by the fixtures.
const (
	OpUnreachable   byte = 0x00
	OpIf            byte = 0x04
	OpEnd           byte = 0x0b
	OpReturn        byte = 0x0f
	OpCall          byte = 0x10
	OpDrop          byte = 0x1a
	OpLocalGet      byte = 0x20
	OpLocalSet      byte = 0x21
	OpGlobalGet     byte = 0x23
	OpGlobalSet     byte = 0x24
	OpI32Const      byte = 0x41
	OpI64Const      byte = 0x42
	OpI32Eqz        byte = 0x45
	OpI32Add        byte = 0x6a
	OpI32Or         byte = 0x72
	OpI64Or         byte = 0x84
	OpI64Shl        byte = 0x86
	OpI64ExtendI32U byte = 0xad
	OpPrefixFC      byte = 0xfc

	blockEmpty     byte = 0x40
	memoryCopyCode      = 0x0a
)

// Code concatenates instruction sequences.
func Code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func LocalGet(i uint32) []byte  { return appendU32([]byte{OpLocalGet}, i) }
func LocalSet(i uint32) []byte  { return appendU32([]byte{OpLocalSet}, i) }
func GlobalGet(i uint32) []byte { return appendU32([]byte{OpGlobalGet}, i) }
func GlobalSet(i uint32) []byte { return appendU32([]byte{OpGlobalSet}, i) }
func Call(i uint32) []byte      { return appendU32([]byte{OpCall}, i) }
func I32Const(v int32) []byte   { return appendS64([]byte{OpI32Const}, int64(v)) }
func I64Const(v int64) []byte   { return appendS64([]byte{OpI64Const}, v) }

// Op wraps single-byte instructions.
func Op(ops ...byte) []byte {
	return ops
}

// If wraps body in an if block without results.
func If(body ...[]byte) []byte {
	out := []byte{OpIf, blockEmpty}
	out = append(out, Code(body...)...)
	return append(out, OpEnd)
}

// MemoryCopy is memory.copy within memory 0; operands are dst, src, n.
func MemoryCopy() []byte {
	return []byte{OpPrefixFC, memoryCopyCode, 0x00, 0x00}
}

// Pack computes (hi << 32) | lo on the stack from two i32 locals.
func Pack(hi, lo uint32) []byte {
	return Code(
		LocalGet(hi), Op(OpI64ExtendI32U), I64Const(32), Op(OpI64Shl),
		LocalGet(lo), Op(OpI64ExtendI32U),
		Op(OpI64Or),
	)
}
