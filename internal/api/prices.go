package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"carbonsink/internal/models"
)

// DefaultPriceHistoryLimit is used when no positive limit is given
const DefaultPriceHistoryLimit = 30

// GetCurrentPrice returns the latest carbon-market price
func (c *Client) GetCurrentPrice(ctx context.Context, s *Session) (*models.CarbonPrice, error) {
	var price models.CarbonPrice
	if err := c.do(ctx, s, call{method: http.MethodGet, path: "/prices/current"}, &price); err != nil {
		return nil, fmt.Errorf("failed to get current price: %w", err)
	}
	return &price, nil
}

// GetPriceHistory returns up to limit recent prices
func (c *Client) GetPriceHistory(ctx context.Context, s *Session, limit int) ([]models.CarbonPrice, error) {
	if limit <= 0 {
		limit = DefaultPriceHistoryLimit
	}
	var prices []models.CarbonPrice
	err := c.do(ctx, s, call{
		method: http.MethodGet,
		path:   "/prices/history",
		query:  map[string]string{"limit": strconv.Itoa(limit)},
	}, &prices)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	return prices, nil
}

// GenerateMockPrice asks the backend to record a simulated price
func (c *Client) GenerateMockPrice(ctx context.Context, s *Session) (*models.CarbonPrice, error) {
	var price models.CarbonPrice
	if err := c.do(ctx, s, call{method: http.MethodPost, path: "/prices/generate-mock"}, &price); err != nil {
		return nil, fmt.Errorf("failed to generate mock price: %w", err)
	}
	return &price, nil
}
