package host

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-thumbnail/errors"
)

// Request is one conversion.
type Request struct {
	// Format is an optional hint such as "png"; converters declaring
	// support for it are tried first.
	Format string
	Source []byte
	Width  uint32
	Height uint32
}

// Result is a converted thumbnail.
type Result struct {
	Format string
	Image  []byte
}

// Converter produces thumbnails.
type Converter interface {
	Convert(ctx context.Context, req Request) (Result, error)
	IsFormatSupported(format string) bool
}

// Chain tries converters in order until one succeeds.
type Chain struct {
	logger     *zap.Logger
	converters []Converter
}

// NewChain creates a chain over converters.
func NewChain(converters ...Converter) *Chain {
	return &Chain{converters: converters, logger: Logger()}
}

// Convert tries converters that support the format hint first, then every
// remaining converter. The error lists every failure.
func (c *Chain) Convert(ctx context.Context, req Request) (Result, error) {
	tried := make([]bool, len(c.converters))
	var errs []error

	attempt := func(i int) (Result, bool) {
		tried[i] = true
		res, err := c.converters[i].Convert(ctx, req)
		if err == nil {
			return res, true
		}
		c.logger.Debug("converter failed",
			zap.Int("converter", i),
			zap.String("format", req.Format),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("converter %d: %w", i, err))
		return Result{}, false
	}

	if req.Format != "" {
		for i, conv := range c.converters {
			if !conv.IsFormatSupported(req.Format) {
				continue
			}
			if res, ok := attempt(i); ok {
				return res, nil
			}
		}
	}
	for i := range c.converters {
		if tried[i] {
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if res, ok := attempt(i); ok {
			return res, nil
		}
	}

	if len(errs) == 0 {
		return Result{}, errors.NotFound(errors.PhaseCall, "converter", req.Format)
	}
	return Result{}, errors.Wrap(errors.PhaseCall, errors.KindInvalidData, stderrors.Join(errs...), "all converters failed")
}

// IsFormatSupported reports whether any converter supports format.
func (c *Chain) IsFormatSupported(format string) bool {
	for _, conv := range c.converters {
		if conv.IsFormatSupported(format) {
			return true
		}
	}
	return false
}
