package reports

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"carbonsink/internal/format"
	"carbonsink/internal/logger"
	"carbonsink/internal/models"
)

// ErrZoneRequired is returned when an export or assembly is started without a zone
var ErrZoneRequired = errors.New("zone is required")

// Conversion constants
const (
	SquareMetersPerMu = 666.67
	TonnesCO2PerCar   = 2.4 // annual emission of one passenger car
)

// Fixed report texts
const (
	unnamedZone           = "Unnamed zone"
	geoLocationSet        = "see zone boundary map"
	geoLocationUnset      = "not set"
	toBeSupplemented      = "to be supplemented"
	remoteSensingSource   = "satellite remote sensing data"
	calculationModel      = "integrated space-air-ground carbon sink model"
	uncertaintyPercentage = "5-10"
	priceSource           = "carbon market real-time price"
	managementMeasures    = "replanting, fertilization, pest control"
)

// PriceSource supplies the current carbon-market price
type PriceSource interface {
	GetCurrentPrice(ctx context.Context) (*models.CarbonPrice, error)
}

// Assembler builds the flat report field set for one zone
type Assembler struct {
	prices PriceSource
	now    func() time.Time
	log    *logger.Logger
}

// NewAssembler creates an assembler backed by prices
func NewAssembler(prices PriceSource) *Assembler {
	return &Assembler{
		prices: prices,
		now:    time.Now,
		log:    logger.Component("assembler"),
	}
}

// VegetationStatus classifies an average NDVI; each tier includes its lower bound
func VegetationStatus(avgNDVI float64) string {
	switch {
	case avgNDVI >= 0.7:
		return "excellent"
	case avgNDVI >= 0.5:
		return "good"
	case avgNDVI >= 0.3:
		return "average"
	default:
		return "poor"
	}
}

// TrendLabel classifies an NDVI change over the period
func TrendLabel(trend float64) string {
	switch {
	case trend > 0.05:
		return "rising"
	case trend < -0.05:
		return "falling"
	default:
		return "stable"
	}
}

// Build assembles report data. A failing price source is tolerated and
// reported as a zero price; the only error is a missing zone.
func (a *Assembler) Build(ctx context.Context, zone *models.Zone, data *models.ChartData) (*models.ReportData, error) {
	if zone == nil {
		return nil, ErrZoneRequired
	}

	now := a.now()
	price := a.currentPrice(ctx, zone.ID)
	stats := CalculateStatistics(data, now)

	total := stats.TotalCarbon
	if zone.TotalCarbonAbsorption != nil && *zone.TotalCarbonAbsorption != 0 {
		total = *zone.TotalCarbonAbsorption
	}

	areaInMu := 0.0
	if zone.Area > 0 {
		areaInMu = zone.Area / SquareMetersPerMu
	}
	carbonPerMu := "0"
	if areaInMu > 0 {
		carbonPerMu = format.Fixed(total/areaInMu, 3)
	}

	startDate := stats.StartDate
	if startDate == "" {
		created := zone.CreatedAt.Time
		if created.IsZero() {
			created = now
		}
		startDate = format.Date(created)
	}
	endDate := stats.EndDate
	if endDate == "" {
		endDate = format.Date(now)
	}

	generationTime := format.DateTime(now)
	dataUpdateTime := stats.LastUpdateTime
	if dataUpdateTime == "" {
		dataUpdateTime = generationTime
	}

	name := zone.Name
	if name == "" {
		name = unnamedZone
	}
	geo := geoLocationUnset
	if len(zone.Coordinates) > 0 {
		geo = geoLocationSet
	}
	summary := "stable"
	if stats.AvgNDVI >= 0.5 {
		summary = "positive"
	}

	totalStr := format.Fixed(total, 3)
	priceStr := format.Fixed(price, 2)

	report := &models.ReportData{
		ReportID:       fmt.Sprintf("RPT-%d-%d", zone.ID, now.UnixMilli()),
		StartDate:      startDate,
		EndDate:        endDate,
		GenerationTime: generationTime,

		ProjectID:       fmt.Sprintf("PRJ-%d", zone.ID),
		ProjectName:     name,
		GeoLocation:     geo,
		ProjectArea:     format.Fixed(areaInMu, 2),
		DominantSpecies: toBeSupplemented,
		ForestType:      toBeSupplemented,

		TotalCarbonSink:        totalStr,
		EquivalentCars:         strconv.FormatFloat(math.Round(total/TonnesCO2PerCar), 'f', 0, 64),
		AvgNDVI:                format.Fixed(stats.AvgNDVI, 4),
		VegetationStatus:       VegetationStatus(stats.AvgNDVI),
		CurrentCarbonPrice:     priceStr,
		EstimatedEconomicValue: format.Fixed(total*price, 2),

		CarbonTotalValue: totalStr,
		CarbonPerMu:      carbonPerMu,
		DataUpdateTime:   dataUpdateTime,

		NDVIStart:     format.Fixed(stats.NDVIStart, 4),
		NDVIEnd:       format.Fixed(stats.NDVIEnd, 4),
		NDVITrend:     TrendLabel(stats.NDVITrend),
		PeakMonth:     strconv.Itoa(int(stats.PeakMonth)),
		NDVIPeakValue: format.Fixed(stats.NDVIPeak, 4),

		RemoteSensingSource:   remoteSensingSource,
		CalculationModel:      calculationModel,
		UncertaintyPercentage: uncertaintyPercentage,
		ReferencedPrice:       priceStr,
		PriceSource:           priceSource,
		PriceUpdateDate:       format.Date(now),

		PerformanceSummary: summary,
		ManagementMeasures: managementMeasures,
	}

	a.log.Debug("Report data assembled", logger.Fields{
		"zone_id":   zone.ID,
		"report_id": report.ReportID,
		"samples":   data.Len(),
		"price":     price,
	})
	return report, nil
}

func (a *Assembler) currentPrice(ctx context.Context, zoneID int64) float64 {
	if a.prices == nil {
		return 0
	}
	p, err := a.prices.GetCurrentPrice(ctx)
	if err != nil {
		a.log.Warn("Carbon price unavailable, using 0", logger.Fields{
			"zone_id": zoneID,
			"error":   err.Error(),
		})
		return 0
	}
	if p == nil {
		return 0
	}
	return p.Price
}
