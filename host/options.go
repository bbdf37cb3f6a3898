package host

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

type config struct {
	logger           *zap.Logger
	metrics          *Metrics
	fallback         Converter
	memoryLimitPages uint32
	cacheSize        int
}

// Option configures a Runtime.
type Option func(*config)

// WithLogger sets the logger for this runtime. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMemoryLimitPages caps guest memory in 64KiB pages.
// 0 keeps the wazero default (65536 pages = 4GiB).
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithMetrics records call outcomes and latencies.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithCacheSize keeps up to n results keyed by (source, width, height).
// Conversions are deterministic, so cached results are exact.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithFallback converts in-process when the guest fails.
func WithFallback(opts ...thumbnail.Option) Option {
	return func(c *config) {
		c.fallback = NewNative(opts...)
	}
}

// WithFallbackConverter is WithFallback with an arbitrary converter.
func WithFallbackConverter(conv Converter) Option {
	return func(c *config) {
		c.fallback = conv
	}
}
