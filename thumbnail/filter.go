package thumbnail

import (
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/wippyai/wasm-thumbnail/errors"
)

// Filter names a resampling kernel.
type Filter string

const (
	NearestNeighbor   Filter = "NearestNeighbor"
	Box               Filter = "Box"
	Linear            Filter = "Linear" // triangle; the default
	Hermite           Filter = "Hermite"
	MitchellNetravali Filter = "MitchellNetravali"
	CatmullRom        Filter = "CatmullRom"
	BSpline           Filter = "BSpline"
	Gaussian          Filter = "Gaussian"
	Bartlett          Filter = "Bartlett"
	Lanczos           Filter = "Lanczos"
	Hann              Filter = "Hann"
	Hamming           Filter = "Hamming"
	Blackman          Filter = "Blackman"
	Welch             Filter = "Welch"
	Cosine            Filter = "Cosine"
)

// DefaultFilter is the triangle filter used when no other is configured.
const DefaultFilter = Linear

var kernels = map[Filter]imaging.ResampleFilter{
	NearestNeighbor:   imaging.NearestNeighbor,
	Box:               imaging.Box,
	Linear:            imaging.Linear,
	Hermite:           imaging.Hermite,
	MitchellNetravali: imaging.MitchellNetravali,
	CatmullRom:        imaging.CatmullRom,
	BSpline:           imaging.BSpline,
	Gaussian:          imaging.Gaussian,
	Bartlett:          imaging.Bartlett,
	Lanczos:           imaging.Lanczos,
	Hann:              imaging.Hann,
	Hamming:           imaging.Hamming,
	Blackman:          imaging.Blackman,
	Welch:             imaging.Welch,
	Cosine:            imaging.Cosine,
}

// ParseFilter resolves a filter name, ignoring case.
func ParseFilter(name string) (Filter, error) {
	if name == "" {
		return DefaultFilter, nil
	}
	for f := range kernels {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	return "", errors.InvalidInput(errors.PhaseResize, "unknown resample filter "+name)
}

// Filters returns every known filter name in sorted order.
func Filters() []Filter {
	out := make([]Filter, 0, len(kernels))
	for f := range kernels {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f Filter) kernel() imaging.ResampleFilter {
	if k, ok := kernels[f]; ok {
		return k
	}
	return imaging.Linear
}
