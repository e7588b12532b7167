package mocks

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"carbonsink/internal/models"
)

//go:embed data/*.json
var fixtures embed.FS

// ErrZoneNotFound is returned for zone ids missing from the fixtures
var ErrZoneNotFound = errors.New("mock zone not found")

// Service serves zones, chart data and prices from embedded fixtures.
// It stands in for the monitoring backend in mockup mode.
type Service struct {
	zones  []models.Zone
	charts map[int64]*models.ChartData
	prices []models.CarbonPrice

	// shift moves fixture timestamps so the newest sample is today
	shift time.Duration
}

// NewService loads the embedded fixtures
func NewService() (*Service, error) {
	return newService(time.Now())
}

func newService(now time.Time) (*Service, error) {
	s := &Service{charts: make(map[int64]*models.ChartData)}

	if err := loadTypedJSONFile("zones.json", &s.zones); err != nil {
		return nil, err
	}
	if err := loadTypedJSONFile("prices.json", &s.prices); err != nil {
		return nil, err
	}

	var raw map[string]*models.ChartData
	if err := loadTypedJSONFile("chart_data.json", &raw); err != nil {
		return nil, err
	}
	for key, data := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid zone id %q in chart fixtures: %w", key, err)
		}
		s.charts[id] = data
	}

	// Update timestamps to the current day for fresh reports
	var newest time.Time
	for _, data := range s.charts {
		if n := data.Len(); n > 0 && data.Timestamps[n-1].After(newest) {
			newest = data.Timestamps[n-1]
		}
	}
	if !newest.IsZero() {
		today := now.UTC().Truncate(24 * time.Hour)
		s.shift = today.Sub(newest.Truncate(24 * time.Hour))
	}
	return s, nil
}

// ListZones returns every fixture zone
func (s *Service) ListZones(ctx context.Context) ([]models.Zone, error) {
	return append([]models.Zone(nil), s.zones...), nil
}

// GetZone returns one fixture zone
func (s *Service) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	for _, z := range s.zones {
		if z.ID == id {
			zone := z
			return &zone, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrZoneNotFound, id)
}

// GetChartData returns the zone's series with timestamps moved to the present.
// Zones without fixtures have empty chart data.
func (s *Service) GetChartData(ctx context.Context, zoneID int64) (*models.ChartData, error) {
	data, ok := s.charts[zoneID]
	if !ok {
		if _, err := s.GetZone(ctx, zoneID); err != nil {
			return nil, err
		}
		return &models.ChartData{}, nil
	}

	out := &models.ChartData{
		Timestamps:   make([]time.Time, len(data.Timestamps)),
		NDVIValues:   append([]float64(nil), data.NDVIValues...),
		CarbonValues: append([]float64(nil), data.CarbonValues...),
	}
	for i, ts := range data.Timestamps {
		out.Timestamps[i] = ts.Add(s.shift)
	}
	return out, nil
}

// GetCurrentPrice returns the newest fixture price
func (s *Service) GetCurrentPrice(ctx context.Context) (*models.CarbonPrice, error) {
	if len(s.prices) == 0 {
		return nil, fmt.Errorf("no mock prices available")
	}
	price := s.prices[len(s.prices)-1]
	price.Timestamp = models.Time{Time: price.Timestamp.Add(s.shift)}
	return &price, nil
}

// GetPriceHistory returns up to limit prices, newest first
func (s *Service) GetPriceHistory(ctx context.Context, limit int) ([]models.CarbonPrice, error) {
	if limit <= 0 || limit > len(s.prices) {
		limit = len(s.prices)
	}
	history := make([]models.CarbonPrice, 0, limit)
	for i := len(s.prices) - 1; i >= 0 && len(history) < limit; i-- {
		price := s.prices[i]
		price.Timestamp = models.Time{Time: price.Timestamp.Add(s.shift)}
		history = append(history, price)
	}
	return history, nil
}

// loadTypedJSONFile unmarshals an embedded fixture into target
func loadTypedJSONFile(filename string, target interface{}) error {
	content, err := fixtures.ReadFile("data/" + filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if err := json.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to unmarshal file %s: %w", filename, err)
	}
	return nil
}
