package models

import (
	"reflect"
	"strings"
	"time"
)

// Statistics summarizes a ChartData series for one export.
// Date strings are empty when there were no observations.
type Statistics struct {
	AvgNDVI        float64
	NDVIStart      float64
	NDVIEnd        float64
	NDVITrend      float64
	NDVIPeak       float64
	PeakIndex      int
	PeakMonth      time.Month
	TotalCarbon    float64
	StartDate      string
	EndDate        string
	LastUpdateTime string
}

// ReportData is the flat, display-ready field set a report layout consumes.
// Every numeric value is formatted when the record is built.
type ReportData struct {
	// Report metadata
	ReportID       string `json:"report_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	GenerationTime string `json:"generation_time"`

	// Project
	ProjectID       string `json:"project_id"`
	ProjectName     string `json:"project_name"`
	GeoLocation     string `json:"geo_location"`
	ProjectArea     string `json:"project_area"` // mu
	DominantSpecies string `json:"dominant_species"`
	ForestType      string `json:"forest_type"`

	// Executive summary
	TotalCarbonSink        string `json:"total_carbon_sink"`
	EquivalentCars         string `json:"equivalent_cars"`
	AvgNDVI                string `json:"avg_ndvi"`
	VegetationStatus       string `json:"vegetation_status"`
	CurrentCarbonPrice     string `json:"current_carbon_price"`
	EstimatedEconomicValue string `json:"estimated_economic_value"`

	// Measurement results
	CarbonTotalValue string `json:"carbon_total_value"`
	CarbonPerMu      string `json:"carbon_per_mu"`
	DataUpdateTime   string `json:"data_update_time"`

	// Vegetation
	NDVIStart     string `json:"ndvi_start"`
	NDVIEnd       string `json:"ndvi_end"`
	NDVITrend     string `json:"ndvi_trend"`
	PeakMonth     string `json:"peak_month"`
	NDVIPeakValue string `json:"ndvi_peak_value"`

	// Data quality
	RemoteSensingSource   string `json:"remote_sensing_source"`
	CalculationModel      string `json:"calculation_model"`
	UncertaintyPercentage string `json:"uncertainty_percentage"`
	ReferencedPrice       string `json:"referenced_price"`
	PriceSource           string `json:"price_source"`
	PriceUpdateDate       string `json:"price_update_date"`

	// Conclusions
	PerformanceSummary string `json:"performance_summary"`
	ManagementMeasures string `json:"management_measures"`

	// Embedded images, filled in by the exporter
	BoundaryImageURL string `json:"boundary_image_url"`
	NDVIChartURL     string `json:"ndvi_chart_url"`
	CarbonChartURL   string `json:"carbon_chart_url"`
}

// Fields returns the record as a field-name to value map keyed by the json names
func (r *ReportData) Fields() map[string]string {
	fields := make(map[string]string)
	if r == nil {
		return fields
	}
	v := reflect.ValueOf(*r)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = v.Field(i).String()
	}
	return fields
}

// ReplaceTemplateVariables substitutes every {{name}} placeholder with its field value.
// Unknown placeholders are left untouched.
func ReplaceTemplateVariables(template string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields)*2)
	for name, value := range fields {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
