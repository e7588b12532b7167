package api

import (
	"context"

	"carbonsink/internal/models"
)

// Bound pairs a client with one session so it can stand in for the
// backend interfaces consumed by the report pipeline and HTTP handlers.
type Bound struct {
	client  *Client
	session *Session
}

// Bind returns a view of the client that always uses s
func (c *Client) Bind(s *Session) *Bound {
	return &Bound{client: c, session: s}
}

// Session returns the bound session
func (b *Bound) Session() *Session {
	return b.session
}

func (b *Bound) ListZones(ctx context.Context) ([]models.Zone, error) {
	return b.client.ListZones(ctx, b.session)
}

func (b *Bound) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	return b.client.GetZone(ctx, b.session, id)
}

func (b *Bound) GetChartData(ctx context.Context, zoneID int64) (*models.ChartData, error) {
	return b.client.GetChartData(ctx, b.session, zoneID)
}

func (b *Bound) GetCurrentPrice(ctx context.Context) (*models.CarbonPrice, error) {
	return b.client.GetCurrentPrice(ctx, b.session)
}

func (b *Bound) GetPriceHistory(ctx context.Context, limit int) ([]models.CarbonPrice, error) {
	return b.client.GetPriceHistory(ctx, b.session, limit)
}
