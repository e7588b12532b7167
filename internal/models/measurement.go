package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Measurement is a single remote-sensing sample for a zone
type Measurement struct {
	ID               int64   `json:"id"`
	ZoneID           int64   `json:"zone_id"`
	NDVI             float64 `json:"ndvi"`
	CarbonAbsorption float64 `json:"carbon_absorption"` // tonnes per day
	Timestamp        Time    `json:"timestamp"`
}

// MeasurementCreate is the payload for recording a sample
type MeasurementCreate struct {
	ZoneID           int64   `json:"zone_id"`
	NDVI             float64 `json:"ndvi"`
	CarbonAbsorption float64 `json:"carbon_absorption"`
}

// ChartData holds index-aligned time series for a zone: sample i of each
// slice describes the same observation instant.
type ChartData struct {
	Timestamps   []time.Time `json:"timestamps"`
	NDVIValues   []float64   `json:"ndvi_values"`
	CarbonValues []float64   `json:"carbon_values"`
}

// Len returns the number of observations
func (c *ChartData) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Timestamps)
}

// Empty reports whether there are no observations.
// Value slices are ignored when there are no timestamps.
func (c *ChartData) Empty() bool {
	return c.Len() == 0
}

// NDVIAt returns the vegetation index at i, or 0 for a missing sample
func (c *ChartData) NDVIAt(i int) float64 {
	if c.Empty() || i < 0 || i >= len(c.NDVIValues) {
		return 0
	}
	return c.NDVIValues[i]
}

// CarbonAt returns the carbon absorption at i, or 0 for a missing sample
func (c *ChartData) CarbonAt(i int) float64 {
	if c.Empty() || i < 0 || i >= len(c.CarbonValues) {
		return 0
	}
	return c.CarbonValues[i]
}

// UnmarshalJSON accepts the backend's naive timestamps
func (c *ChartData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamps   []Time    `json:"timestamps"`
		NDVIValues   []float64 `json:"ndvi_values"`
		CarbonValues []float64 `json:"carbon_values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode chart data: %w", err)
	}
	c.Timestamps = make([]time.Time, len(raw.Timestamps))
	for i, ts := range raw.Timestamps {
		c.Timestamps[i] = ts.Time
	}
	c.NDVIValues = raw.NDVIValues
	c.CarbonValues = raw.CarbonValues
	return nil
}
