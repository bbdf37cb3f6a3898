package thumbnail

import (
	"bytes"
	stderrors "errors"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-thumbnail/errors"
)

// MaxDimension is the largest side a baseline JPEG frame header can carry.
const MaxDimension = 65535

// Pipeline converts encoded images into JPEG thumbnails.
// A Pipeline is immutable and safe for concurrent use.
type Pipeline struct {
	filter    Filter
	maxPixels uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFilter selects the resampling kernel. Unknown names fall back to
// DefaultFilter.
func WithFilter(f Filter) Option {
	return func(p *Pipeline) {
		if _, ok := kernels[f]; ok {
			p.filter = f
		}
	}
}

// WithMaxPixels rejects sources whose declared width*height exceeds n
// before any pixel data is decoded. Zero disables the check.
func WithMaxPixels(n uint64) Option {
	return func(p *Pipeline) {
		p.maxPixels = n
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{filter: DefaultFilter}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Filter returns the configured resampling kernel.
func (p *Pipeline) Filter() Filter {
	return p.filter
}

// Sniff detects the source format from its content and reads the declared
// dimensions without decoding pixel data.
func (p *Pipeline) Sniff(src []byte) (image.Config, string, error) {
	if len(src) == 0 {
		return image.Config{}, "", errors.UnsupportedFormat(stderrors.New("empty source"))
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return image.Config{}, "", errors.UnsupportedFormat(err)
	}
	if p.maxPixels > 0 && uint64(cfg.Width)*uint64(cfg.Height) > p.maxPixels {
		return cfg, format, errors.New(errors.PhaseSniff, errors.KindInvalidDimensions).
			Value([2]int{cfg.Width, cfg.Height}).
			Detail("source %dx%d exceeds %d pixels", cfg.Width, cfg.Height, p.maxPixels).
			Build()
	}
	return cfg, format, nil
}

// Decode sniffs and decodes src into an opaque raster. Alpha is discarded,
// not composited: each pixel keeps its straight RGB samples.
func (p *Pipeline) Decode(src []byte) (*image.NRGBA, string, error) {
	_, format, err := p.Sniff(src)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, format, errors.DecodeFailed(format, err)
	}
	return dropAlpha(imaging.Clone(img)), format, nil
}

// Resize resamples img to exactly width x height.
func (p *Pipeline) Resize(img image.Image, width, height uint32) (*image.NRGBA, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	out := imaging.Resize(img, int(width), int(height), p.filter.kernel())
	if out.Bounds().Dx() != int(width) || out.Bounds().Dy() != int(height) {
		return nil, errors.InvalidDimensions(errors.PhaseResize, width, height)
	}
	return dropAlpha(out), nil
}

// Encode writes img as a baseline JPEG with the encoder's default quality.
func (p *Pipeline) Encode(img *image.NRGBA) ([]byte, error) {
	b := img.Bounds()
	if err := checkDimensions(uint32(b.Dx()), uint32(b.Dy())); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, asRGBA(img), nil); err != nil {
		return nil, errors.EncodeFailed(err)
	}
	return buf.Bytes(), nil
}

// Thumbnail runs the whole pipeline and reports the failing step.
func (p *Pipeline) Thumbnail(src []byte, width, height uint32) ([]byte, error) {
	img, _, err := p.Decode(src)
	if err != nil {
		return nil, err
	}
	resized, err := p.Resize(img, width, height)
	if err != nil {
		return nil, err
	}
	return p.Encode(resized)
}

// Transform is Thumbnail with the failure cause discarded. The result is
// empty on any failure and never nil.
func (p *Pipeline) Transform(src []byte, width, height uint32) []byte {
	out, err := p.Thumbnail(src, width, height)
	if err != nil {
		Logger().Debug("thumbnail failed",
			zap.Int("src_len", len(src)),
			zap.Uint32("width", width),
			zap.Uint32("height", height),
			zap.Error(err))
		return []byte{}
	}
	return out
}

// checkDimensions rejects sizes the JPEG encoder cannot represent. Zero is
// checked here rather than left to the encoder so no raster is allocated.
func checkDimensions(width, height uint32) error {
	if width == 0 || height == 0 || width > MaxDimension || height > MaxDimension {
		return errors.InvalidDimensions(errors.PhaseEncode, width, height)
	}
	return nil
}

// dropAlpha forces every pixel opaque in place.
func dropAlpha(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = 0xff
		}
	}
	return img
}

// asRGBA reinterprets an opaque NRGBA raster as RGBA. For opaque pixels the
// two layouts are identical, and *image.RGBA takes the encoder's fast path.
func asRGBA(img *image.NRGBA) *image.RGBA {
	return &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
}
