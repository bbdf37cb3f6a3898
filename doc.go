// Package wasmthumbnail implements an image thumbnailer that runs inside a
// memory-isolated WebAssembly guest, together with the Go host that drives it.
//
// The guest exposes three core functions that only take and return scalars:
//
//	allocate(size u32) -> u32
//	deallocate(ptr u32, size u32)
//	thumbnail(ptr u32, len u32, width u32, height u32) -> u64
//
// The thumbnail result packs the address of the JPEG bytes in the high 32 bits
// and their length in the low 32 bits. A length of zero means the transform
// failed; the address must not be dereferenced in that case.
//
// # Architecture Overview
//
//	wasmthumbnail/       Root package with the Memory and Allocator contracts
//	├── alloc/           Ownership-tagged region table for the guest address space
//	├── bridge/          (ptr, len) pairs <-> owned byte buffers, u64 packing
//	├── thumbnail/       Sniff, decode, resample and JPEG-encode pipeline
//	├── guest/           Scalar export layer used by cmd/thumbnail-guest
//	├── abi/             Export names and signatures of the boundary
//	├── host/            wazero caller running the boundary protocol
//	├── errors/          Structured error types
//	├── internal/
//	│   └── wasmtest/    Tiny module assembler for host tests
//	├── cmd/             Guest reactor binary and host CLI
//	└── examples/        Usage examples
//
// # Building the guest
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared \
//	    -o thumbnail.wasm ./cmd/thumbnail-guest
//
// # Quick Start
//
//	rt, err := host.New(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	jpeg, err := rt.Thumbnail(ctx, pngBytes, 64, 64)
//
// # Ownership
//
// Every region returned by allocate, and every thumbnail result, belongs to
// the caller until it is passed back to deallocate with its exact size. A
// region passed as a call argument is only borrowed for the duration of that
// call; the guest copies it before doing anything else.
//
// # Thread Safety
//
// A guest instance executes one export call at a time. The host never shares
// an instance between goroutines: each conversion runs in a fresh instance.
package wasmthumbnail
