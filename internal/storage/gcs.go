package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"carbonsink/internal/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSClient handles Google Cloud Storage operations
type GCSClient struct {
	client *storage.Client
	bucket string
	log    *logger.Logger
}

// NewGCSClient creates a new GCS client
func NewGCSClient(ctx context.Context, bucketName string) (*GCSClient, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("GCS bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client: client,
		bucket: bucketName,
		log:    logger.Component("gcs"),
	}, nil
}

// Close closes the GCS client
func (g *GCSClient) Close() error {
	return g.client.Close()
}

// StoreFile uploads data to gs://<bucket>/<objectPath>
func (g *GCSClient) StoreFile(ctx context.Context, objectPath string, data []byte) error {
	objectPath, err := CleanObjectPath(objectPath)
	if err != nil {
		return err
	}

	g.log.Info("Storing file to GCS", logger.Fields{"bucket": g.bucket, "object": objectPath, "bytes": len(data)})

	writer := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	writer.ContentType = GetContentType(objectPath)
	writer.CacheControl = "private, max-age=300"
	writer.Metadata = map[string]string{
		"generated-at": time.Now().UTC().Format(time.RFC3339),
		"filename":     path.Base(objectPath),
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write file to GCS: %w", err)
	}

	// Close finalizes the upload
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS file upload: %w", err)
	}
	return nil
}

// GetFile downloads an object
func (g *GCSClient) GetFile(ctx context.Context, objectPath string) ([]byte, error) {
	objectPath, err := CleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(g.bucket).Object(objectPath).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reader for file %s: %w", objectPath, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", objectPath, err)
	}
	return data, nil
}

// FileExists checks the object's attributes
func (g *GCSClient) FileExists(ctx context.Context, objectPath string) (bool, error) {
	objectPath, err := CleanObjectPath(objectPath)
	if err != nil {
		return false, err
	}
	_, err = g.client.Bucket(g.bucket).Object(objectPath).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", objectPath, err)
	}
	return true, nil
}

// ListReports lists PDF objects under zones/, newest first
func (g *GCSClient) ListReports(ctx context.Context, limit int) ([]ReportInfo, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: ZonesPrefix})

	var reports []ReportInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if !strings.HasSuffix(strings.ToLower(attrs.Name), ".pdf") {
			continue
		}
		reports = append(reports, ReportInfo{
			Path:    attrs.Name,
			Name:    path.Base(attrs.Name),
			ZoneID:  ZoneIDFromPath(attrs.Name),
			Size:    attrs.Size,
			Updated: attrs.Updated,
		})
	}

	return sortAndLimit(reports, limit), nil
}
