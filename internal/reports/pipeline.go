package reports

import (
	"carbonsink/internal/charts"
	"carbonsink/internal/config"
	"carbonsink/internal/layout"
	"carbonsink/internal/offscreen"
	"carbonsink/internal/pdf"
	"carbonsink/internal/storage"
)

// NewExporterFromConfig wires the standard pipeline: go-chart rasterizer,
// offscreen stager, markdown layout, PDF encoder and the given storage.
func NewExporterFromConfig(cfg *config.Config, prices PriceSource, client storage.StorageClient) *Exporter {
	rasterizer := charts.NewRasterizer(charts.NewGoChartRenderer(), cfg.WorkDir, cfg.RenderTimeout)
	stager := offscreen.NewStager(cfg.WorkDir, offscreen.Options{
		ImageTimeout: cfg.ImageLoadTimeout,
		LayoutSettle: cfg.LayoutSettleDelay,
		RevealSettle: cfg.RevealSettleDelay,
	})

	exporter := NewExporter(
		NewAssembler(prices),
		rasterizer,
		stager,
		layout.NewView(),
		pdf.NewEncoder(),
		NewStorageOrchestrator(client),
	)
	exporter.PDFOptions.FontFile = cfg.PDFFontFile
	return exporter
}
