// Package dataset loads univariate series from CSV files and splits them
// into train and test portions.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soltixdb/brutlag/internal/aggregation"
	"github.com/soltixdb/brutlag/internal/analytics"
)

var (
	// ErrEmptyDataset is returned when a file has a header but no rows
	ErrEmptyDataset = errors.New("dataset has no rows")

	// ErrInvalidTrainSize is returned for a train size outside [0, 1]
	ErrInvalidTrainSize = errors.New("invalid train size, should be a float between 0.0 and 1.0")

	// ErrInvalidScale is returned for a zero scale factor
	ErrInvalidScale = errors.New("scale factor must be non-zero")
)

// DefaultTimeLayouts are tried in order when Options.TimeLayout is empty
var DefaultTimeLayouts = []string{"2006-01-02", "2006-01", time.RFC3339, "2006-01-02 15:04:05"}

// Options controls how CSV columns are interpreted
type Options struct {
	TimeColumn  string // Header of the time column, default "date"
	ValueColumn string // Header of the value column, default first non-time column
	TimeLayout  string // Go time layout; empty tries DefaultTimeLayouts
}

// TimeSeries is a loaded series plus its train/test split
type TimeSeries struct {
	Name  string
	Data  analytics.TimeSeriesData
	Train analytics.TimeSeriesData
	Test  analytics.TimeSeriesData

	// SplitIndex is int(N*trainSize) after Split, len(Data) before
	SplitIndex int
	split      bool
}

// LoadCSV reads the series from a CSV file. The series is named after the file.
func LoadCSV(path string, opts Options) (*TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ts, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ts, nil
}

// ReadCSV parses a header row followed by time/value rows. Rows are sorted by
// time, and the whole series starts out as the training portion.
func ReadCSV(r io.Reader, opts Options) (*TimeSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	timeCol, valueCol, err := resolveColumns(header, opts)
	if err != nil {
		return nil, err
	}

	var data analytics.TimeSeriesData
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		t, err := ParseTime(strings.TrimSpace(record[timeCol]), opts.TimeLayout)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		raw := strings.TrimSpace(record[valueCol])
		if raw == "" {
			return nil, fmt.Errorf("row %d: missing value in column %q", row, header[valueCol])
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid value %q: %w", row, raw, err)
		}

		data = append(data, analytics.TimeSeriesPoint{Time: t, Value: v})
	}

	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}

	sort.SliceStable(data, func(i, j int) bool { return data[i].Time.Before(data[j].Time) })
	if err := data.Validate(); err != nil {
		return nil, err
	}

	return &TimeSeries{Data: data, Train: data, SplitIndex: len(data)}, nil
}

// New wraps an in-memory series. Points must already be in strictly increasing time order.
func New(name string, data analytics.TimeSeriesData) (*TimeSeries, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &TimeSeries{Name: name, Data: data, Train: data, SplitIndex: len(data)}, nil
}

func resolveColumns(header []string, opts Options) (timeCol, valueCol int, err error) {
	timeName := opts.TimeColumn
	if timeName == "" {
		timeName = "date"
	}

	timeCol, valueCol = -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case strings.EqualFold(h, timeName):
			timeCol = i
		case opts.ValueColumn != "" && h == opts.ValueColumn:
			valueCol = i
		}
	}

	if timeCol < 0 {
		return 0, 0, fmt.Errorf("time column %q not found in header %v", timeName, header)
	}
	if valueCol < 0 {
		if opts.ValueColumn != "" {
			return 0, 0, fmt.Errorf("value column %q not found in header %v", opts.ValueColumn, header)
		}
		for i := range header {
			if i != timeCol {
				valueCol = i
				break
			}
		}
		if valueCol < 0 {
			return 0, 0, fmt.Errorf("header %v has no value column", header)
		}
	}
	return timeCol, valueCol, nil
}

// ParseTime parses s with layout, or with each of DefaultTimeLayouts when layout is empty
func ParseTime(s, layout string) (time.Time, error) {
	if layout != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
		}
		return t, nil
	}
	for _, l := range DefaultTimeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: no known layout matches", s)
}

// Split divides the series at int(N*trainSize). The test portion starts one
// point before the split so the two overlap by a single observation. With a
// split of 0 that point wraps around and the test portion is the last
// observation alone.
func (ts *TimeSeries) Split(trainSize float64) error {
	if math.IsNaN(trainSize) || trainSize < 0 || trainSize > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidTrainSize, trainSize)
	}

	ts.SplitIndex = int(float64(len(ts.Data)) * trainSize)
	ts.split = true
	ts.apply()
	return nil
}

func (ts *TimeSeries) apply() {
	ts.Train = ts.Data[:ts.SplitIndex]
	switch {
	case !ts.split:
		ts.Test = nil
	case ts.SplitIndex == 0:
		ts.Test = ts.Data[max(len(ts.Data)-1, 0):]
	default:
		ts.Test = ts.Data[ts.SplitIndex-1:]
	}
}

// Resample rolls the series up into level buckets reduced by fn, with
// bucket boundaries in loc. It undoes any earlier split.
func (ts *TimeSeries) Resample(level aggregation.Level, fn aggregation.Function, loc *time.Location) error {
	data, err := aggregation.Resample(ts.Data, level, fn, loc)
	if err != nil {
		return err
	}
	ts.Data = data
	ts.SplitIndex = len(data)
	ts.split = false
	ts.apply()
	return nil
}

// Scale divides every value by factor
func (ts *TimeSeries) Scale(factor float64) error {
	if factor == 0 {
		return ErrInvalidScale
	}
	ts.Data = ts.Data.Scaled(factor)
	ts.apply()
	return nil
}
