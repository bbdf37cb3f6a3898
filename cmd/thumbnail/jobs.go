package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-thumbnail/host"
	"github.com/wippyai/wasm-thumbnail/thumbnail"
)

// job is one conversion in a batch file.
type job struct {
	In     string `yaml:"in"`
	Out    string `yaml:"out"`
	Format string `yaml:"format"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// jobFile is the batch file layout:
//
//	defaults:
//	  width: 128
//	  height: 128
//	jobs:
//	  - in: photo.png
//	    out: photo.thumb.jpg
//	  - in: scan.tiff
//	    width: 64
type jobFile struct {
	Defaults job   `yaml:"defaults"`
	Jobs     []job `yaml:"jobs"`
}

func loadJobs(path string) ([]job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}
	return parseJobs(data, filepath.Dir(path))
}

// parseJobs applies defaults and resolves relative paths against dir.
func parseJobs(data []byte, dir string) ([]job, error) {
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse jobs: %w", err)
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("parse jobs: no jobs")
	}

	jobs := make([]job, len(f.Jobs))
	for i, j := range f.Jobs {
		if j.In == "" {
			return nil, fmt.Errorf("job %d: missing in", i)
		}
		if j.Width == 0 {
			j.Width = f.Defaults.Width
		}
		if j.Height == 0 {
			j.Height = f.Defaults.Height
		}
		if j.Width == 0 || j.Height == 0 {
			return nil, fmt.Errorf("job %d (%s): width and height are required", i, j.In)
		}
		if j.Width > thumbnail.MaxDimension || j.Height > thumbnail.MaxDimension {
			return nil, fmt.Errorf("job %d (%s): %dx%d exceeds %d", i, j.In, j.Width, j.Height, thumbnail.MaxDimension)
		}
		if j.Out == "" {
			j.Out = strings.TrimSuffix(j.In, filepath.Ext(j.In)) + ".thumb.jpg"
		}
		if j.Format == "" {
			j.Format = formatHint(j.In)
		}
		j.In = resolve(dir, j.In)
		j.Out = resolve(dir, j.Out)
		jobs[i] = j
	}
	return jobs, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

func runJobs(cfg converterConfig, path string, parallel int) error {
	jobs, err := loadJobs(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg.registry = prometheus.NewRegistry()
	conv, release, err := newConverter(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for _, j := range jobs {
		g.Go(func() error {
			if err := runJob(ctx, conv, j); err != nil {
				failed.Add(1)
				cfg.logger.Error("job failed", zap.String("in", j.In), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(os.Stderr, "converted %d/%d\n", int64(len(jobs))-failed.Load(), len(jobs))
	printStats(cfg.registry)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d job(s) failed", n)
	}
	return nil
}

func runJob(ctx context.Context, conv host.Converter, j job) error {
	src, err := os.ReadFile(j.In)
	if err != nil {
		return err
	}
	res, err := conv.Convert(ctx, host.Request{
		Source: src,
		Width:  j.Width,
		Height: j.Height,
		Format: j.Format,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(j.Out, res.Image, 0o644)
}

// printStats writes the guest call counters, if any were recorded.
func printStats(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		if mf.GetName() != "wasm_thumbnail_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				fmt.Fprintf(os.Stderr, "  %-10s %.0f\n", l.GetValue(), m.GetCounter().GetValue())
			}
		}
	}
}
