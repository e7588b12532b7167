// Package format renders measurement values and timestamps as display strings
// for reports, chart axes and tooltips.
package format

import (
	"fmt"
	"strconv"
	"time"
)

// NotAvailable is shown for absent values
const NotAvailable = "N/A"

const squareMetersPerHectare = 10000

// Area formats a surface in square meters, switching to hectares from 1 ha upward
func Area(area *float64) string {
	if area == nil {
		return NotAvailable
	}
	if *area >= squareMetersPerHectare {
		return Fixed(*area/squareMetersPerHectare, 2) + " ha"
	}
	return Fixed(*area, 2) + " m²"
}

// Date formats a calendar date, e.g. 2024/3/7
func Date(t time.Time) string {
	return t.Format("2006/1/2")
}

// DateTime formats a date with seconds, e.g. 2024/3/7 09:05:00
func DateTime(t time.Time) string {
	return t.Format("2006/1/2 15:04:05")
}

// Timestamp formats a record timestamp with zero-padded fields, or N/A for the zero time
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format("2006/01/02 15:04")
}

// ChartDate formats an axis label as M/D H:mm
func ChartDate(t time.Time) string {
	return fmt.Sprintf("%d/%d %d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// ChartTooltip formats a tooltip line for one series sample.
// Values with a unit get six decimals, unitless index values get four.
func ChartTooltip(t time.Time, series string, value float64, unit string) string {
	valueStr := Fixed(value, 4)
	if unit != "" {
		valueStr = Fixed(value, 6) + " " + unit
	}
	return fmt.Sprintf("%s %s<br/>%s: %s", Date(t), t.Format("15:04"), series, valueStr)
}

// Fixed formats v with exactly n decimals
func Fixed(v float64, n int) string {
	return strconv.FormatFloat(v, 'f', n, 64)
}
