package profiling

import (
	"github.com/montanaflynn/stats"
)

// DistributionAnalyzer computes summary statistics of numeric samples
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// Summarize computes location, spread and quartiles. An empty sample is an error.
func (da *DistributionAnalyzer) Summarize(data []float64) (SummaryStats, error) {
	summary := SummaryStats{}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	// population standard deviation
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}

	// Quartiles for IQR-based outlier detection
	q25, err := quartile(data, 25)
	if err != nil {
		return summary, err
	}

	q75, err := quartile(data, 75)
	if err != nil {
		return summary, err
	}

	sum, err := stats.Sum(data)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = q25
	summary.Q75 = q75
	summary.Sum = sum
	summary.Outliers = detectOutliers(data, q25, q75)

	return summary, nil
}

// quartile interpolates where the sample is large enough and falls back to
// the nearest rank for small samples
func quartile(data []float64, percent float64) (float64, error) {
	q, err := stats.Percentile(data, percent)
	if err == nil {
		return q, nil
	}
	return stats.PercentileNearestRank(data, percent)
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}

	return outlierCount
}
