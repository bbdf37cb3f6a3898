//go:build wasip1

// Command thumbnail-guest is the reactor module exposing the thumbnail ABI.
//
// Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o thumbnail.wasm ./cmd/thumbnail-guest
//
// The host must call _initialize before any export. Diagnostics are written
// to stderr as JSON lines; they are not part of the boundary protocol.
package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-thumbnail/alloc"
	"github.com/wippyai/wasm-thumbnail/guest"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

//go:generate sh -c "GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o ../../host/testdata/thumbnail.wasm ."

var exports *guest.Exports

func init() {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stderr), zap.WarnLevel)
	log := zap.New(core)

	guest.SetLogger(log.Named("guest"))
	alloc.SetLogger(log.Named("alloc"))
	thumbnail.SetLogger(log.Named("thumbnail"))

	exports = guest.New()
}

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return exports.Allocate(size)
}

//go:wasmexport deallocate
func deallocate(ptr, size uint32) {
	exports.Deallocate(ptr, size)
}

//go:wasmexport thumbnail
func thumbnailExport(ptr, length, width, height uint32) uint64 {
	return exports.Thumbnail(ptr, length, width, height)
}

func main() {}
