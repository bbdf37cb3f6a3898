// Command thumbnail converts images to JPEG thumbnails with a wasm guest or
// the in-process pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-thumbnail/abi"
	"github.com/wippyai/wasm-thumbnail/alloc"
	"github.com/wippyai/wasm-thumbnail/guest"
	"github.com/wippyai/wasm-thumbnail/host"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to thumbnail guest module (default: in-process)")
		inFile      = flag.String("in", "", "Source image, - for stdin")
		outFile     = flag.String("out", "-", "Output JPEG, - for stdout")
		width       = flag.Uint("width", 128, "Thumbnail width in pixels")
		height      = flag.Uint("height", 128, "Thumbnail height in pixels")
		filter      = flag.String("filter", string(thumbnail.DefaultFilter), "Resample filter for in-process conversion")
		jobsFile    = flag.String("jobs", "", "YAML file describing a batch of conversions")
		parallel    = flag.Int("parallel", 4, "Concurrent conversions in batch mode")
		fallback    = flag.Bool("fallback", false, "Fall back to in-process conversion when the guest fails")
		memoryPages = flag.Uint("memory-pages", 0, "Guest memory limit in 64KiB pages (0 = default)")
		cacheSize   = flag.Int("cache", 0, "Number of results to cache")
		list        = flag.Bool("list", false, "List the guest ABI and exit")
		verbose     = flag.Bool("v", false, "Debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *list {
		printABI(os.Stdout)
		return
	}

	if *interactive {
		if *wasmFile == "" {
			fmt.Fprintln(os.Stderr, "Error: -i requires -wasm")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *inFile == "" && *jobsFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: thumbnail -in <image> [-out file.jpg] [-width N] [-height N] [-wasm guest.wasm]")
		fmt.Fprintln(os.Stderr, "       thumbnail -jobs jobs.yaml [-parallel N] [-wasm guest.wasm]")
		fmt.Fprintln(os.Stderr, "       thumbnail -wasm guest.wasm -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       thumbnail -list")
		os.Exit(1)
	}

	w, errW := uint32Flag("width", *width, thumbnail.MaxDimension)
	h, errH := uint32Flag("height", *height, thumbnail.MaxDimension)
	pages, errP := uint32Flag("memory-pages", *memoryPages, math.MaxUint32)
	for _, err := range []error{errW, errH, errP} {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			flag.Usage()
			os.Exit(2)
		}
	}

	logger := newLogger(*verbose)
	defer func() { _ = logger.Sync() }()

	cfg := converterConfig{
		wasmFile:    *wasmFile,
		filter:      *filter,
		fallback:    *fallback,
		memoryPages: pages,
		cacheSize:   *cacheSize,
		logger:      logger,
	}

	var err error
	if *jobsFile != "" {
		err = runJobs(cfg, *jobsFile, *parallel)
	} else {
		err = runSingle(cfg, *inFile, *outFile, w, h)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// uint32Flag narrows a flag value, rejecting anything above limit.
func uint32Flag(name string, v uint, limit uint32) (uint32, error) {
	if uint64(v) > uint64(limit) {
		return 0, fmt.Errorf("-%s %d out of range (max %d)", name, v, limit)
	}
	return uint32(v), nil
}

func newLogger(verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	logger := zap.New(core)

	host.SetLogger(logger.Named("host"))
	guest.SetLogger(logger.Named("guest"))
	alloc.SetLogger(logger.Named("alloc"))
	thumbnail.SetLogger(logger.Named("thumbnail"))
	return logger
}

type converterConfig struct {
	logger      *zap.Logger
	registry    *prometheus.Registry
	wasmFile    string
	filter      string
	memoryPages uint32
	cacheSize   int
	fallback    bool
}

// newConverter builds the converter chain described by cfg. The returned
// function releases it.
func newConverter(ctx context.Context, cfg converterConfig) (host.Converter, func(), error) {
	f, err := thumbnail.ParseFilter(cfg.filter)
	if err != nil {
		return nil, nil, err
	}
	native := host.NewNative(thumbnail.WithFilter(f))

	if cfg.wasmFile == "" {
		return host.NewChain(native), func() {}, nil
	}

	data, err := os.ReadFile(cfg.wasmFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read guest: %w", err)
	}

	opts := []host.Option{
		host.WithLogger(cfg.logger.Named("host")),
		host.WithMemoryLimitPages(cfg.memoryPages),
		host.WithCacheSize(cfg.cacheSize),
	}
	if cfg.registry != nil {
		opts = append(opts, host.WithMetrics(host.NewMetrics(cfg.registry)))
	}
	rt, err := host.New(ctx, data, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load guest %s: %w", cfg.wasmFile, err)
	}

	converters := []host.Converter{rt}
	if cfg.fallback {
		converters = append(converters, native)
	}
	return host.NewChain(converters...), func() { _ = rt.Close(ctx) }, nil
}

func runSingle(cfg converterConfig, inFile, outFile string, width, height uint32) error {
	ctx := context.Background()

	if outFile == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("refusing to write JPEG data to a terminal; use -out")
	}

	src, err := readInput(inFile)
	if err != nil {
		return err
	}

	conv, release, err := newConverter(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	res, err := conv.Convert(ctx, host.Request{
		Source: src,
		Width:  width,
		Height: height,
		Format: formatHint(inFile),
	})
	if err != nil {
		return fmt.Errorf("convert %s: %w", inFile, err)
	}
	return writeOutput(outFile, res.Image)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// formatHint derives a format name from a file extension. It only orders
// converters; the guest always sniffs content.
func formatHint(path string) string {
	if path == "-" {
		return ""
	}
	return thumbnail.NormalizeFormat(filepath.Ext(path))
}

func printABI(w io.Writer) {
	fmt.Fprintln(w, "Exports:")
	for _, f := range abi.Exports {
		fmt.Fprintf(w, "  %-60s %s\n", f.String(), f.Doc)
	}
	fmt.Fprintln(w, "\nResult packing: (ptr << 32) | len, len == 0 means failure")
	fmt.Fprintf(w, "Supported sources: %v\n", thumbnail.SupportedFormats())
}
