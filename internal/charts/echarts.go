package charts

import (
	"encoding/json"
	"fmt"
	"io"

	"carbonsink/internal/format"
	"carbonsink/internal/models"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// RenderDashboard writes an interactive page with one line chart per config
func RenderDashboard(w io.Writer, zone *models.Zone, configs ...Config) error {
	page := DashboardPage(zone, configs...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

// DashboardPage assembles the interactive zone page
func DashboardPage(zone *models.Zone, configs ...Config) *components.Page {
	page := components.NewPage()
	page.PageTitle = "Zone dashboard"
	if zone != nil {
		area := zone.Area
		page.PageTitle = fmt.Sprintf("%s (%s)", zone.Name, format.Area(&area))
	}
	for _, cfg := range configs {
		page.AddCharts(lineChart(cfg))
	}
	return page
}

func lineChart(cfg Config) *charts.Line {
	line := charts.NewLine()

	if cfg.Empty() {
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme:  types.ThemeWesteros,
				Width:  "800px",
				Height: "400px",
			}),
			charts.WithTitleOpts(opts.Title{
				Title: cfg.Title,
				Left:  "center",
				Top:   "middle",
			}),
		)
		return line
	}

	yAxis := opts.YAxis{Name: cfg.YName, Type: "value"}
	if cfg.YMin != nil {
		yAxis.Min = *cfg.YMin
	}
	if cfg.YMax != nil {
		yAxis.Max = *cfg.YMax
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  "800px",
			Height: "400px",
		}),
		charts.WithTitleOpts(opts.Title{Title: cfg.Title}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      true,
			Trigger:   "axis",
			Formatter: tooltipFormatter(cfg.Tooltips),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Show: true, Rotate: 45},
		}),
		charts.WithYAxisOpts(yAxis),
		charts.WithLegendOpts(opts.Legend{Show: true}),
	)

	line.SetXAxis(cfg.XLabels)
	for _, s := range cfg.Series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{Smooth: s.Smooth}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		}
		if s.AreaOpacity > 0 {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Color: rgba(s.Color, s.AreaOpacity)}))
		}
		line.AddSeries(s.Name, data, seriesOpts...)
	}
	return line
}

// tooltipFormatter looks up the preformatted tooltip for the hovered sample
func tooltipFormatter(tooltips []string) string {
	if len(tooltips) == 0 {
		return ""
	}
	encoded, err := json.Marshal(tooltips)
	if err != nil {
		return ""
	}
	return opts.FuncOpts(fmt.Sprintf("function (params) { var t = %s; return t[params[0].dataIndex]; }", encoded))
}

// rgba converts a #rrggbb color and an opacity to a CSS rgba() value
func rgba(hex string, opacity float64) string {
	c := hexColor(hex)
	return fmt.Sprintf("rgba(%d, %d, %d, %.1f)", c.R, c.G, c.B, opacity)
}
