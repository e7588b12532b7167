package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"carbonsink/internal/models"
)

// ListMeasurements pages through a zone's samples
func (c *Client) ListMeasurements(ctx context.Context, s *Session, zoneID int64, skip, limit int) ([]models.Measurement, error) {
	query := map[string]string{}
	if skip > 0 {
		query["skip"] = strconv.Itoa(skip)
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}

	var out []models.Measurement
	err := c.do(ctx, s, call{
		method: http.MethodGet,
		path:   fmt.Sprintf("/measurements/zone/%d", zoneID),
		query:  query,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements for zone %d: %w", zoneID, err)
	}
	return out, nil
}

// GetChartData returns the zone's aligned NDVI and carbon series
func (c *Client) GetChartData(ctx context.Context, s *Session, zoneID int64) (*models.ChartData, error) {
	var data models.ChartData
	if err := c.do(ctx, s, call{method: http.MethodGet, path: fmt.Sprintf("/measurements/zone/%d/chart", zoneID)}, &data); err != nil {
		return nil, fmt.Errorf("failed to get chart data for zone %d: %w", zoneID, err)
	}
	return &data, nil
}

// CreateMeasurement records a sample
func (c *Client) CreateMeasurement(ctx context.Context, s *Session, in models.MeasurementCreate) (*models.Measurement, error) {
	var out models.Measurement
	if err := c.do(ctx, s, call{method: http.MethodPost, path: "/measurements/", body: in}, &out); err != nil {
		return nil, fmt.Errorf("failed to create measurement: %w", err)
	}
	return &out, nil
}
