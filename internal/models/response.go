package models

import (
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/analytics/decompose"
	"github.com/soltixdb/brutlag/internal/analytics/forecast"
	"github.com/soltixdb/brutlag/internal/reports"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DetectPoint is a detection point with its optional timestamp
type DetectPoint struct {
	Time string `json:"time,omitempty"`
	anomaly.DetectionPoint
}

// DetectResponse represents the outcome of a raw detection run
type DetectResponse struct {
	Config         anomaly.BrutlagConfig `json:"config"`
	Points         []DetectPoint         `json:"points"`
	AnomalyIndices []int                 `json:"anomaly_indices"`
}

// DecomposeResponse represents a seasonal decomposition
type DecomposeResponse struct {
	Model    decompose.Model `json:"model"`
	Period   int             `json:"period"`
	Strength float64         `json:"seasonal_strength"`
	Rows     []decompose.Row `json:"rows"`
}

// ForecastResponse represents forecast output
type ForecastResponse struct {
	Method      string                   `json:"method"`
	Predictions []forecast.ForecastPoint `json:"predictions"`
	ModelInfo   forecast.ModelInfo       `json:"model_info"`
}

// ReportListResponse represents list reports response
type ReportListResponse struct {
	Reports []reports.Summary `json:"reports"`
	Count   int               `json:"count"`
}

// SeriesAnomaliesResponse lists the stored anomalies of one series
type SeriesAnomaliesResponse struct {
	Series    string            `json:"series"`
	Anomalies []anomaly.Anomaly `json:"anomalies"`
	Count     int               `json:"count"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
