package pdf

import "slices"

// Page break avoidance targets
const (
	AvoidSection = "section"
	AvoidTable   = "table"
	AvoidChart   = "chart"
)

// Options control page geometry and pagination
type Options struct {
	MarginMM         float64
	PageSize         string
	Orientation      string
	Scale            float64 // device pixels per CSS pixel of embedded rasters
	AvoidBreakInside []string
	// FontFile is a TrueType font used for all text in place of the embedded DejaVu faces,
	// needed for scripts DejaVu does not cover such as CJK
	FontFile string

	uncompressed bool
}

// DefaultOptions returns 10mm margins on portrait A4 at scale 2, keeping sections, tables and charts whole
func DefaultOptions() Options {
	return Options{
		MarginMM:         10,
		PageSize:         "A4",
		Orientation:      "P",
		Scale:            2,
		AvoidBreakInside: []string{AvoidSection, AvoidTable, AvoidChart},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MarginMM <= 0 {
		o.MarginMM = d.MarginMM
	}
	if o.PageSize == "" {
		o.PageSize = d.PageSize
	}
	if o.Orientation == "" {
		o.Orientation = d.Orientation
	}
	if o.Scale <= 0 {
		o.Scale = d.Scale
	}
	return o
}

func (o Options) avoids(kind string) bool {
	return slices.Contains(o.AvoidBreakInside, kind)
}
