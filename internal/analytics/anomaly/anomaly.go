package anomaly

import (
	"fmt"
	"sort"
	"time"

	"github.com/soltixdb/brutlag/internal/analytics"
)

// AnomalyType represents the direction of a detected anomaly
type AnomalyType string

const (
	AnomalyTypeSpike AnomalyType = "spike" // Actual at or above the upper bound
	AnomalyTypeDrop  AnomalyType = "drop"  // Actual at or below the lower bound
)

// Anomaly represents a detected anomaly in a named series
type Anomaly struct {
	Time      string      `json:"time"`
	Series    string      `json:"series"`
	Index     int         `json:"index"`
	Value     float64     `json:"value"`
	Predicted float64     `json:"predicted"`
	Expected  *Range      `json:"expected,omitempty"`
	Score     float64     `json:"score"`     // |actual - predicted| relative to the band half-width
	Type      AnomalyType `json:"type"`      // Type of anomaly
	Algorithm string      `json:"algorithm"` // Which algorithm detected it
}

// Range represents expected value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// DetectorConfig holds configuration for anomaly detection
type DetectorConfig struct {
	Brutlag BrutlagConfig

	// Threshold is the number of standard deviations for residual z-score detection
	Threshold float64
}

// DefaultConfig returns default detector configuration
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		Brutlag:   DefaultBrutlagConfig(),
		Threshold: 3.0,
	}
}

// AnomalyDetector is implemented by detectors that judge observations
// against a positionally aligned prediction series.
type AnomalyDetector interface {
	// Name returns the algorithm name
	Name() string

	// Detect returns one result per anomalous index
	Detect(data []DataPoint, predicted []float64, config DetectorConfig) ([]AnomalyResult, error)
}

// AnomalyResult contains detection result for a single point
type AnomalyResult struct {
	Index    int         // Index in original data
	Score    float64     // Anomaly score
	Type     AnomalyType // Type of anomaly
	Expected *Range      // Expected range
}

var detectorRegistry = make(map[string]AnomalyDetector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector AnomalyDetector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (AnomalyDetector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the registered detector names, sorted
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectAnomalies is a helper function to detect anomalies using specified algorithm
func DetectAnomalies(algorithm string, data []DataPoint, predicted []float64, config DetectorConfig) ([]AnomalyResult, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}
	return detector.Detect(data, predicted, config)
}

// ToAnomalies converts detector results into Anomaly records for series.
func ToAnomalies(series, algorithm string, data []DataPoint, predicted []float64, results []AnomalyResult) []Anomaly {
	out := make([]Anomaly, 0, len(results))
	for _, r := range results {
		a := Anomaly{
			Time:      data[r.Index].Time.Format(time.RFC3339),
			Series:    series,
			Index:     r.Index,
			Value:     data[r.Index].Value,
			Predicted: predicted[r.Index],
			Expected:  r.Expected,
			Score:     r.Score,
			Type:      r.Type,
			Algorithm: algorithm,
		}
		out = append(out, a)
	}
	return out
}
