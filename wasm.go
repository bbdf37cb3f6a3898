package wasmthumbnail

import "context"

// Memory is a linear address space addressed by 32-bit offsets.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// MemorySizer provides the current size of a linear address space in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator hands out regions of a linear address space.
// Free must be called with the exact size passed to Alloc.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr, size uint32)
}
