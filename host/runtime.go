package host

import (
	"context"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-thumbnail/abi"
	"github.com/wippyai/wasm-thumbnail/errors"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

// Runtime holds a compiled thumbnail guest. It is safe for concurrent use;
// every conversion gets its own instance.
type Runtime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	cache    *resultCache
	cfg      config
	reactor  bool
}

// New compiles wasmBytes and checks that it implements the thumbnail ABI.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*Runtime, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.memoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Load("compile guest module", err)
	}
	if err := abi.Validate(compiled); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	cache, err := newResultCache(cfg.cacheSize)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.InvalidInput(errors.PhaseLoad, err.Error())
	}

	r := &Runtime{
		runtime:  rt,
		compiled: compiled,
		cache:    cache,
		cfg:      cfg,
		reactor:  abi.HasInitialize(compiled),
	}
	cfg.logger.Debug("guest compiled",
		zap.Int("size", len(wasmBytes)),
		zap.Bool("reactor", r.reactor),
		zap.Uint32("memory_limit_pages", cfg.memoryLimitPages))
	return r, nil
}

// Instantiate creates a fresh guest instance. The caller must Close it.
func (r *Runtime) Instantiate(ctx context.Context) (*Instance, error) {
	stderr := &lockedBuffer{}

	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithStderr(stderr)
	if r.reactor {
		modCfg = modCfg.WithStartFunctions(abi.Initialize)
	} else {
		modCfg = modCfg.WithStartFunctions()
	}

	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	inst, err := newInstance(mod, stderr, r.cfg.logger)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	r.cfg.metrics.instanceDelta(1)
	return inst, nil
}

// Thumbnail converts src to a width x height JPEG in a fresh guest instance.
func (r *Runtime) Thumbnail(ctx context.Context, src []byte, width, height uint32) ([]byte, error) {
	start := time.Now()

	key := cacheKey(src, width, height)
	if out, ok := r.cache.get(key); ok {
		r.cfg.metrics.observeCall(outcomeCacheHit, 0)
		return out, nil
	}

	out, err := r.convertGuest(ctx, src, width, height)
	if err != nil && r.cfg.fallback != nil && ctx.Err() == nil {
		r.cfg.logger.Warn("guest conversion failed, using fallback",
			zap.Int("src_len", len(src)),
			zap.Uint32("width", width),
			zap.Uint32("height", height),
			zap.Error(err))
		res, ferr := r.cfg.fallback.Convert(ctx, Request{Source: src, Width: width, Height: height})
		if ferr == nil {
			r.cfg.metrics.observeCall(outcomeFallback, time.Since(start).Seconds())
			r.cfg.metrics.observeResult(len(res.Image))
			r.cache.add(key, res.Image)
			return res.Image, nil
		}
		err = errors.Wrap(errors.PhaseCall, errors.KindInvalidData, ferr, "fallback failed after: "+err.Error())
	}

	elapsed := time.Since(start).Seconds()
	switch {
	case err == nil:
		r.cfg.metrics.observeCall(outcomeOK, elapsed)
		r.cfg.metrics.observeResult(len(out))
		r.cache.add(key, out)
	case isEmptyResult(err):
		r.cfg.metrics.observeCall(outcomeEmpty, elapsed)
	default:
		r.cfg.metrics.observeCall(outcomeError, elapsed)
	}
	return out, err
}

func (r *Runtime) convertGuest(ctx context.Context, src []byte, width, height uint32) ([]byte, error) {
	inst, err := r.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		r.cfg.metrics.observePages(inst.Pages())
		r.cfg.metrics.instanceDelta(-1)
		if err := inst.Close(ctx); err != nil {
			r.cfg.logger.Warn("close guest instance", zap.Error(err))
		}
	}()

	out, err := inst.Convert(ctx, src, width, height)
	if err != nil {
		if diag := inst.Diagnostics(); diag != "" {
			r.cfg.logger.Debug("guest diagnostics", zap.String("stderr", diag))
		}
		return nil, err
	}
	return out, nil
}

// Convert implements Converter.
func (r *Runtime) Convert(ctx context.Context, req Request) (Result, error) {
	out, err := r.Thumbnail(ctx, req.Source, req.Width, req.Height)
	if err != nil {
		return Result{}, err
	}
	return Result{Image: out, Format: "jpeg"}, nil
}

// IsFormatSupported implements Converter.
func (r *Runtime) IsFormatSupported(format string) bool {
	return thumbnail.IsSupported(format)
}

// Reactor reports whether the guest exports _initialize.
func (r *Runtime) Reactor() bool {
	return r.reactor
}

// CachedResults returns the number of cached thumbnails.
func (r *Runtime) CachedResults() int {
	return r.cache.len()
}

// Close releases the compiled module and all instances.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

func isEmptyResult(err error) bool {
	return errors.IsKind(err, errors.KindEmptyResult)
}
