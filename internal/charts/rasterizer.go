package charts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"carbonsink/internal/logger"
)

// ErrRenderTimeout is returned when the renderer does not finish in time
var ErrRenderTimeout = errors.New("chart render timed out")

// Image formats
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// DefaultRenderTimeout bounds a single chart render
const DefaultRenderTimeout = time.Second

// ImageOptions sizes a rasterized chart. Zero fields take the defaults:
// 800x400 CSS pixels, png, pixel ratio 2.
type ImageOptions struct {
	Width      int
	Height     int
	Format     string
	PixelRatio float64
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 400
	}
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.PixelRatio <= 0 {
		o.PixelRatio = 2
	}
	return o
}

func (o ImageOptions) mimeType() string {
	if o.Format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Rasterizer turns chart configurations into embedded-data image URLs.
// Each call draws on its own temporary surface, so calls never share state.
type Rasterizer struct {
	renderer Renderer
	workDir  string
	timeout  time.Duration
	log      *logger.Logger
}

// NewRasterizer creates a rasterizer that stages surfaces in workDir
// (the system temp dir when empty)
func NewRasterizer(renderer Renderer, workDir string, timeout time.Duration) *Rasterizer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &Rasterizer{
		renderer: renderer,
		workDir:  workDir,
		timeout:  timeout,
		log:      logger.Component("rasterizer"),
	}
}

// Rasterize renders cfg and returns a data URL. The surface is removed
// before returning on every path, including a render timeout.
func (r *Rasterizer) Rasterize(ctx context.Context, cfg Config, opts ImageOptions) (string, error) {
	opts = opts.withDefaults()
	if opts.Format != FormatPNG && opts.Format != FormatSVG {
		return "", fmt.Errorf("unsupported image format %q", opts.Format)
	}

	surface, err := os.CreateTemp(r.workDir, "chart-surface-*."+opts.Format)
	if err != nil {
		return "", fmt.Errorf("failed to create chart surface: %w", err)
	}
	defer func() {
		surface.Close()
		if err := os.Remove(surface.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("Failed to remove chart surface", logger.Fields{"path": surface.Name(), "error": err.Error()})
		}
	}()

	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.renderer.Render(renderCtx, cfg, opts, surface)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return "", err
		}
	case <-timer.C:
		r.log.Warn("Chart render did not complete", logger.Fields{"kind": string(cfg.Kind), "timeout": r.timeout.String()})
		return "", fmt.Errorf("%s chart: %w", cfg.Kind, ErrRenderTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if _, err := surface.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind chart surface: %w", err)
	}
	raw, err := io.ReadAll(surface)
	if err != nil {
		return "", fmt.Errorf("failed to read chart surface: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%s chart rendered an empty image", cfg.Kind)
	}

	return "data:" + opts.mimeType() + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// Job names one chart to rasterize
type Job struct {
	Name    string
	Config  Config
	Options ImageOptions
}

// RasterizeAll renders jobs one after another. A failed chart maps to ""
// so the report can still be produced with a blank chart region.
func (r *Rasterizer) RasterizeAll(ctx context.Context, jobs []Job) map[string]string {
	results := make(map[string]string, len(jobs))
	for _, job := range jobs {
		url, err := r.Rasterize(ctx, job.Config, job.Options)
		if err != nil {
			r.log.Error("Failed to rasterize chart", err, logger.Fields{"chart": job.Name})
			results[job.Name] = ""
			continue
		}
		results[job.Name] = url
	}
	return results
}
