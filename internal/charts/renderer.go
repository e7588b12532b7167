package charts

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Renderer draws a chart configuration onto a surface
type Renderer interface {
	Render(ctx context.Context, cfg Config, opts ImageOptions, w io.Writer) error
}

// maxAxisTicks bounds the number of x-axis labels so dense series stay legible
const maxAxisTicks = 8

// minPlotPoints is the floor of the per-series point budget
const minPlotPoints = 16

// GoChartRenderer renders configurations with go-chart
type GoChartRenderer struct{}

// NewGoChartRenderer creates a go-chart backed renderer
func NewGoChartRenderer() *GoChartRenderer {
	return &GoChartRenderer{}
}

// Render draws cfg as a PNG or SVG image sized by opts
func (r *GoChartRenderer) Render(ctx context.Context, cfg Config, opts ImageOptions, w io.Writer) error {
	provider := chart.PNG
	if opts.Format == FormatSVG {
		provider = chart.SVG
	}

	graph := r.build(cfg, opts)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", cfg.Kind, err)
	}
	return nil
}

func (r *GoChartRenderer) build(cfg Config, opts ImageOptions) chart.Chart {
	ratio := opts.PixelRatio
	width := int(math.Round(float64(opts.Width) * ratio))
	height := int(math.Round(float64(opts.Height) * ratio))

	graph := chart.Chart{
		Title: cfg.Title,
		TitleStyle: chart.Style{
			FontSize:  16,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			FillColor: drawing.ColorWhite,
			Padding: chart.Box{
				Top:    int(50 * ratio),
				Left:   int(20 * ratio),
				Right:  int(30 * ratio),
				Bottom: int(20 * ratio),
			},
		},
		Width:  width,
		Height: height,
		DPI:    96 * ratio,
	}

	if cfg.Empty() {
		// go-chart refuses to draw without a series; a hidden one keeps the title-only frame
		graph.TitleStyle.FontColor = drawing.ColorFromHex("999999")
		graph.XAxis.Style.Hidden = true
		graph.YAxis.Style.Hidden = true
		graph.Series = []chart.Series{chart.ContinuousSeries{
			Style:   chart.Style{Hidden: true},
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
		}}
		return graph
	}

	graph.XAxis = chart.XAxis{
		Style: chart.Style{FontSize: 9},
		ValueFormatter: func(v interface{}) string {
			if t, ok := v.(time.Time); ok {
				return t.Format("1/2 15:04")
			}
			return ""
		},
		Ticks: timeTicks(cfg.Times, cfg.XLabels),
	}
	if len(cfg.Times) == 1 {
		center := chart.TimeToFloat64(cfg.Times[0])
		span := float64(time.Hour)
		graph.XAxis.Range = &chart.ContinuousRange{Min: center - span, Max: center + span}
	}

	yMin, yMax := yRange(cfg)
	graph.YAxis = chart.YAxis{
		Name:      cfg.YName,
		NameStyle: chart.Style{FontSize: 11},
		Style:     chart.Style{FontSize: 10},
		Range:     &chart.ContinuousRange{Min: yMin, Max: yMax},
	}

	// one point per CSS pixel of width is all the plot can show
	budget := max(opts.Width, minPlotPoints)
	for _, s := range cfg.Series {
		times, values := decimate(cfg.Times, s.Values, budget)
		color := hexColor(s.Color)
		style := chart.Style{
			StrokeColor: color,
			StrokeWidth: 2 * ratio,
			DotColor:    color,
			DotWidth:    2 * ratio,
		}
		if len(values) < len(s.Values) {
			style.DotWidth = 0
		}
		if s.AreaOpacity > 0 {
			style.FillColor = color.WithAlpha(uint8(math.Round(255 * s.AreaOpacity)))
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    s.Name,
			Style:   style,
			XValues: times,
			YValues: values,
		})
	}
	return graph
}

// decimate reduces a series to at most limit points by keeping the minimum and
// maximum of each bucket in time order, so peaks survive
func decimate(times []time.Time, values []float64, limit int) ([]time.Time, []float64) {
	n := min(len(times), len(values))
	if n <= limit || limit < 2 {
		return times[:n], values[:n]
	}
	buckets := limit / 2
	outT := make([]time.Time, 0, limit)
	outV := make([]float64, 0, limit)
	for b := 0; b < buckets; b++ {
		lo, hi := b*n/buckets, (b+1)*n/buckets
		if lo >= hi {
			continue
		}
		lowest, highest := lo, lo
		for i := lo + 1; i < hi; i++ {
			if values[i] < values[lowest] {
				lowest = i
			}
			if values[i] > values[highest] {
				highest = i
			}
		}
		first, second := min(lowest, highest), max(lowest, highest)
		outT = append(outT, times[first])
		outV = append(outV, values[first])
		if second != first {
			outT = append(outT, times[second])
			outV = append(outV, values[second])
		}
	}
	return outT, outV
}

// timeTicks spreads at most maxAxisTicks labels evenly over the series
func timeTicks(times []time.Time, labels []string) []chart.Tick {
	if len(times) < 2 {
		return nil
	}
	step := 1
	if len(times) > maxAxisTicks {
		step = int(math.Ceil(float64(len(times)-1) / float64(maxAxisTicks-1)))
	}
	var ticks []chart.Tick
	for i := 0; i < len(times); i += step {
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(times[i]), Label: labels[i]})
	}
	if last := len(times) - 1; last%step != 0 {
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(times[last]), Label: labels[last]})
	}
	return ticks
}

// yRange uses the configured bounds, otherwise 0..max with headroom
func yRange(cfg Config) (float64, float64) {
	if cfg.YMin != nil && cfg.YMax != nil {
		return *cfg.YMin, *cfg.YMax
	}
	lo, hi := 0.0, 0.0
	for _, s := range cfg.Series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if cfg.YMin != nil {
		lo = *cfg.YMin
	}
	if hi <= lo {
		hi = lo + 1
	} else {
		hi += (hi - lo) * 0.1
	}
	return lo, hi
}

func hexColor(hex string) drawing.Color {
	hex = strings.TrimPrefix(hex, "#")
	if hex == "" {
		return drawing.ColorBlack
	}
	return drawing.ColorFromHex(hex)
}
