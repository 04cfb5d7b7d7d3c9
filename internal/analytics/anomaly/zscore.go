package anomaly

import (
	"fmt"
	"math"
)

// ZScoreDetector flags residuals (actual - predicted) whose standard score
// exceeds the configured threshold. Unlike Brutlag it uses one global spread
// for the whole series, so it serves as a baseline for comparison.
type ZScoreDetector struct{}

func init() {
	RegisterDetector("zscore", &ZScoreDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return "zscore"
}

// Detect finds anomalies using the Z-Score of the residuals
func (z *ZScoreDetector) Detect(data []DataPoint, predicted []float64, config DetectorConfig) ([]AnomalyResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrInvalidInput)
	}
	if len(data) != len(predicted) {
		return nil, fmt.Errorf("%w: %d actual values but %d predictions", ErrInvalidInput, len(data), len(predicted))
	}
	if config.Threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive, got %v", ErrInvalidInput, config.Threshold)
	}

	residuals := make([]float64, len(data))
	for i, dp := range data {
		residuals[i] = dp.Value - predicted[i]
	}
	mean, stdDev := CalculateMeanStdDev(residuals)

	// A perfect fit leaves nothing to flag
	if stdDev == 0 {
		return nil, nil
	}

	var results []AnomalyResult
	for i, r := range residuals {
		zScore := CalculateZScore(r, mean, stdDev)
		if math.Abs(zScore) <= config.Threshold {
			continue
		}

		anomalyType := AnomalyTypeSpike
		if zScore < 0 {
			anomalyType = AnomalyTypeDrop
		}
		results = append(results, AnomalyResult{
			Index: i,
			Score: math.Abs(zScore),
			Type:  anomalyType,
			Expected: &Range{
				Min: predicted[i] + mean - config.Threshold*stdDev,
				Max: predicted[i] + mean + config.Threshold*stdDev,
			},
		})
	}

	return results, nil
}

// CalculateZScore calculates Z-Score for a single value given mean and stdDev
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// CalculateMeanStdDev calculates mean and population standard deviation
func CalculateMeanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var varianceSum float64
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	stdDev = math.Sqrt(varianceSum / float64(len(values)))

	return mean, stdDev
}
