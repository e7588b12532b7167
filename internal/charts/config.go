// Package charts builds the vegetation-index and carbon-flux chart
// configurations and renders them as static images or an interactive page.
package charts

import (
	"time"

	"carbonsink/internal/format"
	"carbonsink/internal/models"
)

// Kind identifies a chart in a report
type Kind string

const (
	KindNDVI   Kind = "ndvi"
	KindCarbon Kind = "carbon"
)

// NoDataTitle is the title of a chart built from an empty series
const NoDataTitle = "No data"

const (
	ndviColor   = "#67c23a"
	carbonColor = "#409eff"

	// CarbonUnit is the unit of carbon absorption samples
	CarbonUnit = "t/day"
)

// Series is one line on a chart
type Series struct {
	Name   string
	Values []float64
	Color  string // hex, e.g. #67c23a
	// AreaOpacity fills the area under the line; 0 disables the fill
	AreaOpacity float64
	Smooth      bool
}

// Config describes a chart independently of the library that draws it.
// The same value drives the interactive page and the raster renderer.
type Config struct {
	Kind     Kind
	Title    string
	Times    []time.Time
	XLabels  []string
	YName    string
	YMin     *float64
	YMax     *float64
	Series   []Series
	Tooltips []string
}

// Empty reports whether the chart has nothing to plot
func (c Config) Empty() bool {
	return len(c.Times) == 0 || len(c.Series) == 0
}

func floatPtr(v float64) *float64 { return &v }

// NDVIConfig builds the vegetation-index chart: fixed 0..1 axis, green line
func NDVIConfig(data *models.ChartData) Config {
	if data.Empty() {
		return Config{Kind: KindNDVI, Title: NoDataTitle}
	}
	values := alignedValues(data, data.NDVIAt)
	return Config{
		Kind:    KindNDVI,
		Title:   "NDVI trend",
		Times:   data.Timestamps,
		XLabels: axisLabels(data.Timestamps),
		YName:   "NDVI",
		YMin:    floatPtr(0),
		YMax:    floatPtr(1),
		Series: []Series{{
			Name:        "NDVI",
			Values:      values,
			Color:       ndviColor,
			AreaOpacity: 0.2,
			Smooth:      true,
		}},
		Tooltips: tooltips(data.Timestamps, "NDVI", values, ""),
	}
}

// CarbonConfig builds the carbon-absorption chart: free axis, blue line
func CarbonConfig(data *models.ChartData) Config {
	if data.Empty() {
		return Config{Kind: KindCarbon, Title: NoDataTitle}
	}
	values := alignedValues(data, data.CarbonAt)
	return Config{
		Kind:    KindCarbon,
		Title:   "Carbon absorption trend",
		Times:   data.Timestamps,
		XLabels: axisLabels(data.Timestamps),
		YName:   "Carbon absorption (" + CarbonUnit + ")",
		Series: []Series{{
			Name:        "Carbon absorption",
			Values:      values,
			Color:       carbonColor,
			AreaOpacity: 0.2,
			Smooth:      true,
		}},
		Tooltips: tooltips(data.Timestamps, "Carbon absorption", values, CarbonUnit),
	}
}

// alignedValues returns one value per timestamp, 0 for missing samples
func alignedValues(data *models.ChartData, at func(int) float64) []float64 {
	values := make([]float64, data.Len())
	for i := range values {
		values[i] = at(i)
	}
	return values
}

func axisLabels(times []time.Time) []string {
	labels := make([]string, len(times))
	for i, t := range times {
		labels[i] = format.ChartDate(t)
	}
	return labels
}

func tooltips(times []time.Time, series string, values []float64, unit string) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = format.ChartTooltip(t, series, values[i], unit)
	}
	return out
}
