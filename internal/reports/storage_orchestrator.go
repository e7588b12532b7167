package reports

import (
	"context"
	"fmt"
	"time"

	"carbonsink/internal/logger"
	"carbonsink/internal/models"
	"carbonsink/internal/storage"
)

// StoredReport locates the artifacts of one stored report
type StoredReport struct {
	Filename string
	Path     string
	HTMLPath string
	Size     int64
}

// StorageOrchestrator places report artifacts in the zone's report folder
type StorageOrchestrator struct {
	storage storage.StorageClient
	log     *logger.Logger
}

// NewStorageOrchestrator creates a new storage orchestrator
func NewStorageOrchestrator(client storage.StorageClient) *StorageOrchestrator {
	return &StorageOrchestrator{
		storage: client,
		log:     logger.Component("storage"),
	}
}

// StoreReport writes the PDF as <label>-<zone-name>-<date>.pdf in the zone folder,
// then the HTML layout next to it. Only the PDF is required to succeed.
func (so *StorageOrchestrator) StoreReport(ctx context.Context, zone *models.Zone, date time.Time, pdfData, htmlData []byte) (*StoredReport, error) {
	filename := storage.ReportFilename(zone.Name, date)
	stored := &StoredReport{
		Filename: filename,
		Path:     storage.ReportPath(zone.ID, filename),
		Size:     int64(len(pdfData)),
	}

	if err := so.storage.StoreFile(ctx, stored.Path, pdfData); err != nil {
		return nil, fmt.Errorf("failed to store PDF: %w", err)
	}

	if len(htmlData) > 0 {
		htmlPath := stored.Path + ".html"
		if err := so.storage.StoreFile(ctx, htmlPath, htmlData); err != nil {
			so.log.Warn("Failed to store HTML layout", logger.Fields{"path": htmlPath, "error": err.Error()})
		} else {
			stored.HTMLPath = htmlPath
		}
	}

	so.log.Info("Report stored", logger.Fields{"zone_id": zone.ID, "path": stored.Path, "bytes": stored.Size})
	return stored, nil
}
