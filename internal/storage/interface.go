package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a stored object does not exist
var ErrNotFound = errors.New("object not found")

// ErrInvalidPath is returned for object paths that escape the storage root
var ErrInvalidPath = errors.New("invalid object path")

// StorageClient stores report artifacts by slash-separated object path
type StorageClient interface {
	// Close releases the client
	Close() error

	// StoreFile writes data at objectPath, creating parents as needed
	StoreFile(ctx context.Context, objectPath string, data []byte) error

	// GetFile reads the object at objectPath
	GetFile(ctx context.Context, objectPath string) ([]byte, error)

	// FileExists reports whether objectPath exists
	FileExists(ctx context.Context, objectPath string) (bool, error)

	// ListReports returns stored PDF reports, newest first, at most limit when limit > 0
	ListReports(ctx context.Context, limit int) ([]ReportInfo, error)
}

// ReportInfo describes a stored report
type ReportInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	ZoneID  int64     `json:"zone_id"`
	Size    int64     `json:"size"`
	Updated time.Time `json:"updated"`
}
