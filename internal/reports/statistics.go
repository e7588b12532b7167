package reports

import (
	"time"

	"carbonsink/internal/format"
	"carbonsink/internal/models"
)

// CalculateStatistics summarizes a chart series. It never fails: an absent or
// empty series yields a zeroed result whose peak month is now's month.
func CalculateStatistics(data *models.ChartData, now time.Time) models.Statistics {
	if data.Empty() {
		return models.Statistics{PeakMonth: now.Month()}
	}

	var stats models.Statistics

	ndviCount := len(data.NDVIValues)
	if ndviCount > 0 {
		sum := 0.0
		for i := 0; i < ndviCount; i++ {
			sum += data.NDVIAt(i)
		}
		stats.AvgNDVI = sum / float64(ndviCount)
		stats.NDVIStart = data.NDVIAt(0)
		stats.NDVIEnd = data.NDVIAt(ndviCount - 1)
	}
	stats.NDVITrend = stats.NDVIEnd - stats.NDVIStart

	// Strict > keeps the first occurrence of the maximum
	for i := 0; i < ndviCount; i++ {
		if v := data.NDVIAt(i); v > stats.NDVIPeak {
			stats.NDVIPeak = v
			stats.PeakIndex = i
		}
	}
	peakAt := data.Timestamps[len(data.Timestamps)-1]
	if stats.PeakIndex < len(data.Timestamps) {
		peakAt = data.Timestamps[stats.PeakIndex]
	}
	stats.PeakMonth = peakAt.Month()

	for i := range data.CarbonValues {
		stats.TotalCarbon += data.CarbonAt(i)
	}

	first, last := data.Timestamps[0], data.Timestamps[len(data.Timestamps)-1]
	stats.StartDate = format.Date(first)
	stats.EndDate = format.Date(last)
	stats.LastUpdateTime = format.DateTime(last)

	return stats
}
