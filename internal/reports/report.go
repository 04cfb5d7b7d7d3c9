// Package reports persists the outcome of analysis runs and renders them as
// tables for export.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
	"github.com/soltixdb/brutlag/internal/analytics/forecast"
)

var (
	// ErrNotFound is returned when no report has the requested ID
	ErrNotFound = errors.New("report not found")

	// ErrInvalidID is returned for IDs that are not UUIDs
	ErrInvalidID = errors.New("invalid report id")
)

// Point is a detection point anchored to its observation time
type Point struct {
	Time time.Time `json:"time"`
	anomaly.DetectionPoint
}

// Summary condenses a report for listings
type Summary struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	Series       string     `json:"series"`
	Method       string     `json:"method"`
	Points       int        `json:"points"`
	Anomalies    int        `json:"anomalies"`
	Spikes       int        `json:"spikes"`
	Drops        int        `json:"drops"`
	AnomalyRate  float64    `json:"anomaly_rate"`
	FirstAnomaly *time.Time `json:"first_anomaly,omitempty"`
	LastAnomaly  *time.Time `json:"last_anomaly,omitempty"`
}

// Report is the stored result of one analysis run
type Report struct {
	ID         string                `json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	Series     string                `json:"series"`
	Method     string                `json:"method"`
	Algorithm  string                `json:"algorithm,omitempty"` // Detector that produced Anomalies
	TrainSize  float64               `json:"train_size"`
	SplitIndex int                   `json:"split_index"`
	Detector   anomaly.BrutlagConfig `json:"detector"`
	Model      *forecast.ModelInfo   `json:"model,omitempty"`
	Points     []Point               `json:"points"`
	Anomalies  []anomaly.Anomaly     `json:"anomalies"`
	Summary    Summary               `json:"summary"`
}

// New builds a report with a fresh ID from a detection result over times
func New(series, method string, times []time.Time, res *anomaly.DetectionResult, anomalies []anomaly.Anomaly) (*Report, error) {
	if len(times) != res.Len() {
		return nil, fmt.Errorf("report needs one timestamp per point: %d times, %d points", len(times), res.Len())
	}

	r := &Report{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Series:    series,
		Method:    method,
		Detector:  res.Config,
		Points:    make([]Point, res.Len()),
		Anomalies: anomalies,
	}
	for i := range r.Points {
		r.Points[i] = Point{Time: times[i], DetectionPoint: res.Point(i)}
	}
	if r.Anomalies == nil {
		r.Anomalies = []anomaly.Anomaly{}
	}
	r.Summarize()
	return r, nil
}

// Relabel marks exactly the points listed in Anomalies as anomalous and
// refreshes the summary. Bands are left as computed.
func (r *Report) Relabel() {
	flagged := make(map[int]bool, len(r.Anomalies))
	for _, a := range r.Anomalies {
		flagged[a.Index] = true
	}
	for i := range r.Points {
		if flagged[r.Points[i].Index] {
			r.Points[i].Label = anomaly.LabelAnomaly
		} else {
			r.Points[i].Label = anomaly.LabelNormal
		}
	}
	r.Summarize()
}

// Summarize recomputes Summary from Points and Anomalies
func (r *Report) Summarize() {
	s := Summary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Series:    r.Series,
		Method:    r.Method,
		Points:    len(r.Points),
	}
	for i := range r.Points {
		p := &r.Points[i]
		if p.Label != anomaly.LabelAnomaly {
			continue
		}
		s.Anomalies++
		if p.Diff < 0 {
			s.Drops++
		} else {
			s.Spikes++
		}
		t := p.Time
		if s.FirstAnomaly == nil {
			s.FirstAnomaly = &t
		}
		s.LastAnomaly = &t
	}
	if s.Points > 0 {
		s.AnomalyRate = float64(s.Anomalies) / float64(s.Points)
	}
	r.Summary = s
}

// Store persists reports
type Store interface {
	// Save stores r, replacing any report with the same ID
	Save(ctx context.Context, r *Report) error

	// Get loads a report by ID
	Get(ctx context.Context, id string) (*Report, error)

	// List returns up to limit summaries, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Close releases resources held by the store
	Close() error
}

// AnomalyFinder is implemented by stores that index anomalies per series
type AnomalyFinder interface {
	SeriesAnomalies(ctx context.Context, series string, limit int) ([]anomaly.Anomaly, error)
}

// ValidateID rejects IDs that could not have been produced by New
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
