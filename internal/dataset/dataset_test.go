package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soltixdb/brutlag/internal/aggregation"
	"github.com/soltixdb/brutlag/internal/analytics"
)

const salesCSV = `date,sales
2020-01-01,266
2020-02-01,145.9
2020-03-01,183.1
2020-04-01,119.3
2020-05-01,180.3
2020-06-01,168.5
2020-07-01,231.8
2020-08-01,224.5
2020-09-01,192.8
2020-10-01,122.9
`

func TestReadCSV(t *testing.T) {
	ts, err := ReadCSV(strings.NewReader(salesCSV), Options{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if ts.Data.Len() != 10 {
		t.Fatalf("Expected 10 points, got %d", ts.Data.Len())
	}
	if !ts.Data[0].Time.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected first time: %s", ts.Data[0].Time)
	}
	if ts.Data[1].Value != 145.9 {
		t.Errorf("Expected 145.9, got %f", ts.Data[1].Value)
	}
	if ts.Train.Len() != 10 || ts.Test != nil {
		t.Errorf("Unsplit series should be all train, got %d/%d", ts.Train.Len(), ts.Test.Len())
	}
}

func TestReadCSV_SortsAndSelectsColumns(t *testing.T) {
	input := "id,month,temp\n1,2021-03,5\n2,2021-01,3\n3,2021-02,4\n"

	ts, err := ReadCSV(strings.NewReader(input), Options{TimeColumn: "month", ValueColumn: "temp", TimeLayout: "2006-01"})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	got := ts.Data.Values()
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		want  string
	}{
		{"empty", "", Options{}, "no rows"},
		{"header only", "date,value\n", Options{}, "no rows"},
		{"no time column", "when,value\n2020-01-01,1\n", Options{}, "time column"},
		{"missing value column", "date,value\n2020-01-01,1\n", Options{ValueColumn: "sales"}, "value column"},
		{"only time column", "date\n2020-01-01\n", Options{}, "no value column"},
		{"bad time", "date,value\nyesterday,1\n", Options{}, "row 2"},
		{"blank value", "date,value\n2020-01-01,1\n2020-02-01,\n", Options{}, "row 3"},
		{"bad value", "date,value\n2020-01-01,abc\n", Options{}, "invalid value"},
		{"duplicate", "date,value\n2020-01-01,1\n2020-01-01,2\n", Options{}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	_, err := ReadCSV(strings.NewReader("date,value\n2020-01-01,1\n2020-01-01,2\n"), Options{})
	if !errors.Is(err, analytics.ErrDuplicateTime) {
		t.Errorf("expected ErrDuplicateTime, got %v", err)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shampoo_sales.csv")
	if err := os.WriteFile(path, []byte(salesCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ts, err := LoadCSV(path, Options{})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if ts.Name != "shampoo_sales" {
		t.Errorf("Expected name from file, got %q", ts.Name)
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), Options{}); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSplit(t *testing.T) {
	ts, err := ReadCSV(strings.NewReader(salesCSV), Options{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if err := ts.Split(0.7); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if ts.SplitIndex != 7 || ts.Train.Len() != 7 || ts.Test.Len() != 4 {
		t.Fatalf("Expected 7 train and 4 test points, got %d/%d", ts.Train.Len(), ts.Test.Len())
	}
	if !ts.Test[0].Time.Equal(ts.Train[6].Time) {
		t.Error("Test should start with the last training point")
	}

	if err := ts.Split(0); err != nil {
		t.Fatalf("Split(0) failed: %v", err)
	}
	if ts.Train.Len() != 0 || ts.Test.Len() != 1 {
		t.Errorf("Split(0) should keep only the last point in test, got %d/%d", ts.Train.Len(), ts.Test.Len())
	}
	if !ts.Test[0].Time.Equal(ts.Data[9].Time) {
		t.Error("Split(0) test point should be the last observation")
	}

	if err := ts.Split(1); err != nil {
		t.Fatalf("Split(1) failed: %v", err)
	}
	if ts.Train.Len() != 10 || ts.Test.Len() != 1 {
		t.Errorf("Split(1) should keep one overlapping test point, got %d/%d", ts.Train.Len(), ts.Test.Len())
	}

	for _, bad := range []float64{-0.1, 1.5} {
		if err := ts.Split(bad); !errors.Is(err, ErrInvalidTrainSize) {
			t.Errorf("Split(%v): expected ErrInvalidTrainSize, got %v", bad, err)
		}
	}
}

func TestScale(t *testing.T) {
	ts, err := ReadCSV(strings.NewReader(salesCSV), Options{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if err := ts.Split(0.5); err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if err := ts.Scale(0); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("expected ErrInvalidScale, got %v", err)
	}

	if err := ts.Scale(2); err != nil {
		t.Fatalf("Scale failed: %v", err)
	}
	if ts.Data[0].Value != 133 || ts.Train[0].Value != 133 {
		t.Errorf("Expected 133 after scaling, got %f/%f", ts.Data[0].Value, ts.Train[0].Value)
	}
	if ts.Test.Len() != 6 || ts.Test[0].Value != ts.Data[4].Value {
		t.Errorf("Test portion should follow the scaled data")
	}
}

func TestNew(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data := analytics.TimeSeriesData{
		{Time: base, Value: 1},
		{Time: base.AddDate(0, 1, 0), Value: 2},
	}

	ts, err := New("api", data)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ts.Name != "api" || ts.SplitIndex != 2 || ts.Train.Len() != 2 {
		t.Errorf("unexpected series: %+v", ts)
	}

	if _, err := New("empty", nil); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}

	unordered := analytics.TimeSeriesData{data[1], data[0]}
	if _, err := New("bad", unordered); !errors.Is(err, analytics.ErrUnorderedSeries) {
		t.Errorf("expected ErrUnorderedSeries, got %v", err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in     string
		layout string
		want   time.Time
	}{
		{"2024-03-01", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01T12:30:00Z", "", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"01/03/2024", "02/01/2006", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in, tt.layout)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseTime("yesterday", ""); err == nil {
		t.Error("expected error for unparseable time")
	}
}

func TestTimeSeries_Resample(t *testing.T) {
	csv := "date,visits\n2024-01-30,1\n2024-01-31,2\n2024-02-01,3\n2024-02-02,4\n2024-03-01,5\n"
	ts, err := ReadCSV(strings.NewReader(csv), Options{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if err := ts.Split(0.5); err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if err := ts.Resample(aggregation.LevelMonthly, aggregation.FuncSum, time.UTC); err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if ts.Data.Len() != 3 {
		t.Fatalf("expected 3 monthly points, got %d", ts.Data.Len())
	}
	want := []float64{3, 7, 5}
	for i, w := range want {
		if ts.Data[i].Value != w {
			t.Errorf("month %d: got %v, want %v", i, ts.Data[i].Value, w)
		}
	}
	if ts.SplitIndex != 3 || ts.Test != nil || ts.Train.Len() != 3 {
		t.Errorf("resample should reset the split, got split %d", ts.SplitIndex)
	}
}
