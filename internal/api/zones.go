package api

import (
	"context"
	"fmt"
	"net/http"

	"carbonsink/internal/models"
)

// ListZones returns the zones visible to the session's user
func (c *Client) ListZones(ctx context.Context, s *Session) ([]models.Zone, error) {
	var zones []models.Zone
	if err := c.do(ctx, s, call{method: http.MethodGet, path: "/zones/"}, &zones); err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}

// GetZone returns one zone
func (c *Client) GetZone(ctx context.Context, s *Session, id int64) (*models.Zone, error) {
	var zone models.Zone
	if err := c.do(ctx, s, call{method: http.MethodGet, path: fmt.Sprintf("/zones/%d", id)}, &zone); err != nil {
		return nil, fmt.Errorf("failed to get zone %d: %w", id, err)
	}
	return &zone, nil
}

// CreateZone creates a zone; the backend computes its area
func (c *Client) CreateZone(ctx context.Context, s *Session, in models.ZoneCreate) (*models.Zone, error) {
	var zone models.Zone
	if err := c.do(ctx, s, call{method: http.MethodPost, path: "/zones/", body: in}, &zone); err != nil {
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}
	return &zone, nil
}

// UpdateZone applies a partial update
func (c *Client) UpdateZone(ctx context.Context, s *Session, id int64, in models.ZoneUpdate) (*models.Zone, error) {
	var zone models.Zone
	if err := c.do(ctx, s, call{method: http.MethodPut, path: fmt.Sprintf("/zones/%d", id), body: in}, &zone); err != nil {
		return nil, fmt.Errorf("failed to update zone %d: %w", id, err)
	}
	return &zone, nil
}

// DeleteZone removes a zone
func (c *Client) DeleteZone(ctx context.Context, s *Session, id int64) error {
	if err := c.do(ctx, s, call{method: http.MethodDelete, path: fmt.Sprintf("/zones/%d", id)}, nil); err != nil {
		return fmt.Errorf("failed to delete zone %d: %w", id, err)
	}
	return nil
}
