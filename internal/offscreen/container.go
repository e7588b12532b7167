package offscreen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"carbonsink/internal/layout"
	"carbonsink/internal/logger"
	"carbonsink/internal/models"
)

var (
	// ErrNotMounted is returned when a container has no rendered content
	ErrNotMounted = errors.New("container has no mounted content")
	// ErrRemoved is returned when a container is used after Remove
	ErrRemoved = errors.New("container was removed")
)

// View lays out a report record
type View interface {
	Build(data *models.ReportData) (*layout.Document, error)
}

// Container is an isolated staging area holding one rendered report page.
// It starts hidden; Reveal makes it visible to the encoder.
type Container struct {
	id     string
	dir    string
	opts   Options
	stager *Stager
	log    *logger.Logger

	mu      sync.Mutex
	doc     *layout.Document
	visible bool
	removed bool
}

// ID returns the container id
func (c *Container) ID() string { return c.id }

// Dir returns the staging directory
func (c *Container) Dir() string { return c.dir }

// Mount renders data through view into the container, writing the page and its image assets
func (c *Container) Mount(view View, data *models.ReportData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removed {
		return ErrRemoved
	}
	if c.doc != nil {
		return fmt.Errorf("container %s is already mounted", c.id)
	}

	doc, err := view.Build(data)
	if err != nil {
		return fmt.Errorf("failed to lay out report: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(c.dir, assetsDir), 0755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}
	for _, img := range doc.Images() {
		if img.Broken {
			continue
		}
		if err := c.writeAsset(img); err != nil {
			c.log.Warn("Image could not be staged", logger.Fields{"image": img.ID, "error": err.Error()})
			img.Broken = true
		}
	}

	var page bytes.Buffer
	if err := doc.WriteHTML(&page); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, pageFile), page.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}

	c.doc = doc
	c.log.Debug("Report mounted", logger.Fields{"images": len(doc.Images()), "bytes": page.Len()})
	return nil
}

func (c *Container) writeAsset(img *layout.Image) error {
	ext, data, err := decodeDataURL(img.Source)
	if err != nil {
		return err
	}
	rel := filepath.ToSlash(filepath.Join(assetsDir, img.ID+ext))
	if err := os.WriteFile(filepath.Join(c.dir, filepath.FromSlash(rel)), data, 0644); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	img.AssetPath = rel
	return nil
}

// WaitReady lets the layout settle: one frame, then every image finishes loading
// (success or failure, each bounded by the image timeout), then the layout settle delay.
func (c *Container) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	doc, removed := c.doc, c.removed
	c.mu.Unlock()

	if removed {
		return ErrRemoved
	}
	if doc == nil {
		return ErrNotMounted
	}

	if err := sleep(ctx, frameDelay); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, img := range doc.Images() {
		if img.Broken || img.AssetPath == "" {
			continue
		}
		img := img
		g.Go(func() error {
			if err := c.awaitImage(gctx, img); err != nil {
				c.log.Warn("Image failed to load", logger.Fields{"image": img.ID, "error": err.Error()})
				img.Broken = true
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	return sleep(ctx, c.opts.LayoutSettle)
}

// awaitImage decodes the staged asset, bounded by the image timeout
func (c *Container) awaitImage(ctx context.Context, img *layout.Image) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ImageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- checkImage(filepath.Join(c.dir, filepath.FromSlash(img.AssetPath)))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("image load timed out: %w", ctx.Err())
	}
}

// Reveal makes the container visible without giving it a layout footprint, then waits for the reveal to settle
func (c *Container) Reveal(ctx context.Context) error {
	c.mu.Lock()
	if c.removed {
		c.mu.Unlock()
		return ErrRemoved
	}
	if err := os.Remove(filepath.Join(c.dir, hiddenMarker)); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.mu.Unlock()
		return fmt.Errorf("failed to reveal container: %w", err)
	}
	c.visible = true
	c.mu.Unlock()

	return sleep(ctx, c.opts.RevealSettle)
}

// Root returns the rendered report root, or false when no page has been rendered
func (c *Container) Root() (*Element, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc == nil || c.removed {
		return nil, false
	}
	if _, err := os.Stat(filepath.Join(c.dir, pageFile)); err != nil {
		return nil, false
	}
	return &Element{container: c, doc: c.doc}, true
}

// Element returns the container element itself
func (c *Container) Element() *Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Element{container: c, doc: c.doc}
}

// Unmount discards the rendered content, keeping the empty container
func (c *Container) Unmount() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removed {
		return ErrRemoved
	}
	c.doc = nil
	var errs []error
	for _, name := range []string{pageFile, assetsDir} {
		if err := os.RemoveAll(filepath.Join(c.dir, name)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to unmount container: %w", err)
	}
	return nil
}

// Remove deletes the container and everything in it
func (c *Container) Remove() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removed {
		return nil
	}
	c.removed = true
	c.doc = nil
	c.stager.release(c.id)

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	c.log.Debug("Staging container removed")
	return nil
}

func (c *Container) isVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible && !c.removed
}

// Element is a handle on rendered report content
type Element struct {
	container *Container
	doc       *layout.Document
}

// Visible reports whether the element can be captured
func (e *Element) Visible() bool {
	return e.container.isVisible()
}

// Document returns the laid out report, nil when nothing is mounted
func (e *Element) Document() *layout.Document {
	return e.doc
}

// Dir returns the directory image asset paths are relative to
func (e *Element) Dir() string {
	return e.container.dir
}

// PagePath returns the rendered page file
func (e *Element) PagePath() string {
	return filepath.Join(e.container.dir, pageFile)
}

// decodeDataURL splits a base64 data URL into a file extension and its payload
func decodeDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.New("data URL is not base64 encoded")
	}

	var ext string
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	case "image/svg+xml":
		ext = ".svg"
	default:
		return "", nil, fmt.Errorf("unsupported image type %q", meta)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid data URL payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty image")
	}
	return ext, data, nil
}

// checkImage verifies a staged asset can be decoded
func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		if !bytes.Contains(head[:n], []byte("<svg")) {
			return errors.New("not an SVG document")
		}
		return nil
	}

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
