package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"carbonsink/internal/charts"
	"carbonsink/internal/logger"
	"carbonsink/internal/models"
	"carbonsink/internal/offscreen"
	"carbonsink/internal/pdf"
)

// ChartRasterizer turns a chart configuration into an image data URL
type ChartRasterizer interface {
	Rasterize(ctx context.Context, cfg charts.Config, opts charts.ImageOptions) (string, error)
}

// DocumentEncoder captures a rendered element as a PDF
type DocumentEncoder interface {
	Encode(ctx context.Context, el pdf.Element, opts pdf.Options, w io.Writer) (int, error)
}

// ExportResult describes a finished export
type ExportResult struct {
	ReportID    string `json:"report_id"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	HTMLPath    string `json:"html_path,omitempty"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages"`
	NDVIChart   bool   `json:"ndvi_chart"`
	CarbonChart bool   `json:"carbon_chart"`
}

// Exporter runs the zone report pipeline: assemble, rasterize charts, stage the
// layout off screen, capture it as a PDF and store it.
type Exporter struct {
	assembler  *Assembler
	rasterizer ChartRasterizer
	stager     *offscreen.Stager
	view       offscreen.View
	encoder    DocumentEncoder
	store      *StorageOrchestrator

	PDFOptions   pdf.Options
	ChartOptions charts.ImageOptions

	now func() time.Time
	log *logger.Logger
}

// NewExporter wires an exporter from its stages
func NewExporter(assembler *Assembler, rasterizer ChartRasterizer, stager *offscreen.Stager, view offscreen.View, encoder DocumentEncoder, store *StorageOrchestrator) *Exporter {
	return &Exporter{
		assembler:    assembler,
		rasterizer:   rasterizer,
		stager:       stager,
		view:         view,
		encoder:      encoder,
		store:        store,
		PDFOptions:   pdf.DefaultOptions(),
		ChartOptions: charts.ImageOptions{Width: 800, Height: 400, Format: charts.FormatPNG, PixelRatio: 2},
		now:          time.Now,
		log:          logger.Component("exporter"),
	}
}

// Export produces and stores the PDF report for zone. The staging container is
// always removed before returning; cleanup failures are logged only.
func (e *Exporter) Export(ctx context.Context, zone *models.Zone, data *models.ChartData) (*ExportResult, error) {
	if zone == nil {
		return nil, ErrZoneRequired
	}
	log := e.log.With(logger.Fields{"zone_id": zone.ID})
	log.Info("Starting PDF export", logger.Fields{"zone": zone.Name, "samples": data.Len()})

	report, err := e.assembler.Build(ctx, zone, data)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble report data: %w", err)
	}

	if !data.Empty() {
		report.NDVIChartURL = e.chart(ctx, log, string(charts.KindNDVI), charts.NDVIConfig(data))
		report.CarbonChartURL = e.chart(ctx, log, string(charts.KindCarbon), charts.CarbonConfig(data))
	}

	container, err := e.stager.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create staging container: %w", err)
	}
	defer func() {
		if uerr := container.Unmount(); uerr != nil {
			log.Error("Failed to unmount staging container", uerr, logger.Fields{"container": container.ID()})
		}
		if rerr := container.Remove(); rerr != nil {
			log.Error("Failed to remove staging container", rerr, logger.Fields{"container": container.ID()})
		}
	}()

	if err := container.Mount(e.view, report); err != nil {
		return nil, fmt.Errorf("failed to mount report layout: %w", err)
	}
	if err := container.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("report layout did not become ready: %w", err)
	}
	if err := container.Reveal(ctx); err != nil {
		return nil, fmt.Errorf("failed to reveal report layout: %w", err)
	}

	el, ok := container.Root()
	if !ok {
		log.Warn("Report root not found, capturing the whole container")
		el = container.Element()
	}

	var out bytes.Buffer
	pages, err := e.encoder.Encode(ctx, el, e.PDFOptions, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode PDF: %w", err)
	}

	var page bytes.Buffer
	if doc := el.Document(); doc != nil {
		if herr := doc.WriteStandaloneHTML(&page); herr != nil {
			log.Warn("Failed to render standalone HTML", logger.Fields{"error": herr.Error()})
			page.Reset()
		}
	}

	stored, err := e.store.StoreReport(ctx, zone, e.now(), out.Bytes(), page.Bytes())
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		ReportID:    report.ReportID,
		Filename:    stored.Filename,
		Path:        stored.Path,
		HTMLPath:    stored.HTMLPath,
		Size:        stored.Size,
		Pages:       pages,
		NDVIChart:   report.NDVIChartURL != "",
		CarbonChart: report.CarbonChartURL != "",
	}
	log.Info("PDF export completed", logger.Fields{"path": result.Path, "pages": pages, "bytes": result.Size})
	return result, nil
}

// chart rasterizes one chart; a failure leaves that chart blank
func (e *Exporter) chart(ctx context.Context, log *logger.Logger, name string, cfg charts.Config) string {
	url, err := e.rasterizer.Rasterize(ctx, cfg, e.ChartOptions)
	if err != nil {
		log.Error("Chart image generation failed", err, logger.Fields{"chart": name})
		return ""
	}
	return url
}
