package models

import (
	"time"

	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
)

// AnomalyEvent is published once per anomalous point of an analysis
type AnomalyEvent struct {
	ReportID   string              `json:"report_id"`
	Series     string              `json:"series"`
	Time       string              `json:"time"`
	Index      int                 `json:"index"`
	Value      float64             `json:"value"`
	Predicted  float64             `json:"predicted"`
	Lower      float64             `json:"lower"`
	Upper      float64             `json:"upper"`
	Score      float64             `json:"score"`
	Type       anomaly.AnomalyType `json:"type"`
	Algorithm  string              `json:"algorithm"`
	DetectedAt time.Time           `json:"detected_at"`
}

// NewAnomalyEvent builds the event for a detected anomaly
func NewAnomalyEvent(reportID string, a anomaly.Anomaly, detectedAt time.Time) AnomalyEvent {
	e := AnomalyEvent{
		ReportID:   reportID,
		Series:     a.Series,
		Time:       a.Time,
		Index:      a.Index,
		Value:      a.Value,
		Predicted:  a.Predicted,
		Score:      a.Score,
		Type:       a.Type,
		Algorithm:  a.Algorithm,
		DetectedAt: detectedAt,
	}
	if a.Expected != nil {
		e.Lower = a.Expected.Min
		e.Upper = a.Expected.Max
	}
	return e
}
