package anomaly

import (
	"math"
)

// BrutlagDetector adapts Compute to the AnomalyDetector registry
type BrutlagDetector struct{}

func init() {
	RegisterDetector("brutlag", &BrutlagDetector{})
}

// Name returns the algorithm name
func (b *BrutlagDetector) Name() string {
	return "brutlag"
}

// Detect runs Compute and reports the anomalous indices
func (b *BrutlagDetector) Detect(data []DataPoint, predicted []float64, config DetectorConfig) ([]AnomalyResult, error) {
	actual := make([]float64, len(data))
	for i, dp := range data {
		actual[i] = dp.Value
	}

	res, err := Compute(actual, predicted, config.Brutlag)
	if err != nil {
		return nil, err
	}
	return ResultsFromDetection(res), nil
}

// ResultsFromDetection turns the anomalous indices of a detection run into results.
func ResultsFromDetection(res *DetectionResult) []AnomalyResult {
	var results []AnomalyResult
	for _, i := range res.AnomalyIndices() {
		typ := AnomalyTypeSpike
		if res.Diff[i] < 0 {
			typ = AnomalyTypeDrop
		}
		results = append(results, AnomalyResult{
			Index:    i,
			Score:    bandScore(res.Diff[i], res.Config.ScalingFactor*res.Deviation[i]),
			Type:     typ,
			Expected: &Range{Min: res.Lower[i], Max: res.Upper[i]},
		})
	}
	return results
}

// bandScore is 1 on the band edge and grows with the distance outside it.
// A zero-width band scores 1.
func bandScore(diff, halfWidth float64) float64 {
	if halfWidth <= 0 || math.IsNaN(halfWidth) || math.IsInf(halfWidth, 0) {
		return 1
	}
	return math.Abs(diff) / halfWidth
}
